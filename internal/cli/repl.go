package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

const helpText = `Type a question and press Enter to ask the tutor.
Commands:
  /new            start a new conversation
  /threads        list your conversations
  /open <id>      continue a conversation
  /topic <TOPIC>  tag your next messages (GENERAL, DSA, AI, DBMS, OS, NET; "auto" to let the router decide)
  /quiz [TOPIC]   quiz yourself on this conversation
  /plan [TOPIC]   seven day study plan
  /save <title>   save the last quiz or plan
  /saved          list saved quizzes and plans
  /flush          retry saving messages that were not stored
  /quit           exit`

// REPL is the interactive loop of the terminal client.
type REPL struct {
	client *Client
	log    logrus.FieldLogger

	mu       sync.Mutex
	out      io.Writer
	threadID string
	hint     domain.Topic
	seen     map[string]bool
	last     *domain.SaveArtifactRequest
}

// NewREPL creates a REPL writing to out.
func NewREPL(client *Client, out io.Writer, log logrus.FieldLogger) *REPL {
	return &REPL{
		client: client,
		log:    log,
		out:    out,
		seen:   make(map[string]bool),
	}
}

// ThreadID returns the conversation the REPL is on.
func (r *REPL) ThreadID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threadID
}

// Run reads lines from in until EOF, /quit, or ctx ends.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	r.printf("%s\n\n", helpText)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := r.Handle(ctx, line)
			if err != nil {
				r.printf("error: %v\n", err)
			}
			if quit {
				r.printf("Bye!\n")
				return nil
			}
		}
	}
}

// Handle runs one input line.
func (r *REPL) Handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, r.send(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		r.printf("%s\n", helpText)
		return false, nil
	case "/new":
		return false, r.newConversation(ctx)
	case "/threads":
		return false, r.listThreads(ctx)
	case "/open":
		if arg == "" {
			return false, errors.New("usage: /open <thread id>")
		}
		return false, r.open(ctx, arg)
	case "/topic":
		r.setHint(arg)
		return false, nil
	case "/quiz":
		return false, r.quiz(ctx, arg)
	case "/plan":
		return false, r.plan(ctx, arg)
	case "/save":
		return false, r.save(ctx, arg)
	case "/saved":
		return false, r.listSaved(ctx)
	case "/flush":
		return false, r.flush(ctx)
	default:
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}
}

// OnChange prints turns written to the current conversation by another
// client session of the same owner.
func (r *REPL) OnChange(ev domain.ChangeEvent) {
	if ev.Kind != domain.ChangeTurnAppended || ev.Turn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev.ThreadID != r.threadID || r.seen[ev.Turn.LocalID] {
		return
	}
	r.seen[ev.Turn.LocalID] = true
	fmt.Fprintf(r.out, "%s (elsewhere)\n", formatTurn(domain.ViewTurn{Turn: *ev.Turn}))
}

func (r *REPL) send(ctx context.Context, text string) error {
	r.mu.Lock()
	threadID, hint := r.threadID, r.hint
	r.mu.Unlock()

	resp, err := r.client.Send(ctx, threadID, text, hint)
	r.showView(resp)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable {
		return fmt.Errorf("%s (use /flush to retry saving)", apiErr.Message)
	}
	return err
}

func (r *REPL) flush(ctx context.Context) error {
	resp, err := r.client.Flush(ctx)
	if err != nil {
		return err
	}
	r.showView(resp)
	r.printf("All messages saved.\n")
	return nil
}

func (r *REPL) newConversation(ctx context.Context) error {
	if _, err := r.client.NewConversation(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.threadID = ""
	r.mu.Unlock()
	r.printf("Started a new conversation.\n")
	return nil
}

func (r *REPL) open(ctx context.Context, threadID string) error {
	turns, err := r.client.Turns(ctx, threadID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.threadID = threadID
	fmt.Fprintf(r.out, "Opened %s\n", threadID)
	for _, t := range turns {
		r.seen[t.LocalID] = true
		fmt.Fprintln(r.out, formatTurn(domain.ViewTurn{Turn: t}))
	}
	return nil
}

func (r *REPL) listThreads(ctx context.Context) error {
	threads, err := r.client.Threads(ctx, 0)
	if err != nil {
		return err
	}
	if len(threads) == 0 {
		r.printf("No conversations yet.\n")
		return nil
	}
	current := r.ThreadID()
	for _, t := range threads {
		marker := " "
		if t.ID == current {
			marker = "*"
		}
		r.printf("%s %s  [%s] %s\n", marker, t.ID, t.Topic, t.Title)
	}
	return nil
}

func (r *REPL) setHint(arg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if arg == "" || strings.EqualFold(arg, "auto") {
		r.hint = ""
		fmt.Fprintln(r.out, "Topic: automatic")
		return
	}
	r.hint = domain.ParseTopic(arg)
	fmt.Fprintf(r.out, "Topic: %s\n", r.hint.Label())
}

func (r *REPL) topicArg(arg string) domain.Topic {
	if arg != "" {
		return domain.ParseTopic(arg)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hint
}

func (r *REPL) quiz(ctx context.Context, arg string) error {
	topic := r.topicArg(arg)
	quiz, err := r.client.Quiz(ctx, r.ThreadID(), topic)
	if err != nil {
		return err
	}
	r.remember(domain.ArtifactKindQuiz, topic, quiz)

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, q := range quiz.Questions {
		fmt.Fprintf(r.out, "%d. %s\n", i+1, q.Q)
		for j, opt := range q.Options {
			fmt.Fprintf(r.out, "   %c) %s\n", 'A'+j, opt)
		}
		fmt.Fprintf(r.out, "   answer: %s. %s\n", q.Answer, q.Why)
	}
	return nil
}

func (r *REPL) plan(ctx context.Context, arg string) error {
	topic := r.topicArg(arg)
	if topic == "" {
		topic = domain.TopicGeneral
	}
	plan, err := r.client.StudyPlan(ctx, topic)
	if err != nil {
		return err
	}
	r.remember(domain.ArtifactKindStudyPlan, topic, plan)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range plan.Plan {
		fmt.Fprintf(r.out, "Day %d (%d min): %s\n", d.Day, d.Minutes, strings.Join(d.Topics, "; "))
	}
	return nil
}

func (r *REPL) remember(kind domain.ArtifactKind, topic domain.Topic, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.WithError(err).Warn("could not keep artifact for saving")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &domain.SaveArtifactRequest{
		ThreadID: r.threadID,
		Kind:     kind,
		Topic:    topic,
		Payload:  data,
	}
}

func (r *REPL) save(ctx context.Context, title string) error {
	r.mu.Lock()
	last := r.last
	r.mu.Unlock()
	if last == nil {
		return errors.New("nothing to save, run /quiz or /plan first")
	}
	if title == "" {
		return errors.New("usage: /save <title>")
	}

	req := *last
	req.Title = title
	a, err := r.client.SaveArtifact(ctx, req)
	if err != nil {
		return err
	}
	r.printf("Saved %s %q (%s)\n", a.Kind, a.Title, a.ID)
	return nil
}

func (r *REPL) listSaved(ctx context.Context) error {
	artifacts, err := r.client.Artifacts(ctx)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		r.printf("Nothing saved yet.\n")
		return nil
	}
	for _, a := range artifacts {
		r.printf("%s  %-10s [%s] %s\n", a.ID, a.Kind, a.Topic, a.Title)
	}
	return nil
}

// showView prints the turns of resp not printed before.
func (r *REPL) showView(resp *domain.SendMessageResponse) {
	if resp == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if resp.ThreadID != "" {
		r.threadID = resp.ThreadID
	}
	for _, t := range resp.Turns {
		if t.Pending {
			// Printed again once stored.
			fmt.Fprintln(r.out, formatTurn(t))
			continue
		}
		if r.seen[t.LocalID] {
			continue
		}
		r.seen[t.LocalID] = true
		fmt.Fprintln(r.out, formatTurn(t))
	}
}

func (r *REPL) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func formatTurn(t domain.ViewTurn) string {
	who := "you"
	if t.Role == domain.RoleAssistant {
		who = "tutor"
	}
	s := fmt.Sprintf("%s [%s]: %s", who, t.Topic, t.Text)
	if t.Pending {
		s += " (not saved)"
	}
	return s
}
