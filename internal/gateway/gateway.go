// Package gateway adapts conversation history into AI completion calls and
// normalizes the replies into chat text, quizzes, and study plans.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/AsfandAhmad/Study-ChatBot/internal/adapter/llm"
	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
	"github.com/AsfandAhmad/Study-ChatBot/internal/metrics"
)

// Operation names used in errors and metrics.
const (
	OpReply     = "reply"
	OpQuiz      = "generate_quiz"
	OpStudyPlan = "generate_study_plan"
)

const (
	minQuizQuestions = 3
	maxQuizQuestions = 5
	quizOptions      = 4

	// DefaultMaxDailyMinutes is the study time ceiling asked of the model.
	DefaultMaxDailyMinutes = 90
)

var errEmptyReply = errors.New("model returned no usable text")

// Message is one prior conversation message handed to the gateway.
type Message struct {
	Role  domain.Role
	Text  string
	Topic domain.Topic
}

// Gateway wraps an LLMClient with the tutor's prompts and reply normalization.
type Gateway struct {
	client          llm.LLMClient
	metrics         *metrics.Metrics
	maxDailyMinutes int
}

// New creates a gateway. maxDailyMinutes <= 0 selects DefaultMaxDailyMinutes.
func New(client llm.LLMClient, maxDailyMinutes int, m *metrics.Metrics) *Gateway {
	if maxDailyMinutes <= 0 {
		maxDailyMinutes = DefaultMaxDailyMinutes
	}
	return &Gateway{client: client, metrics: m, maxDailyMinutes: maxDailyMinutes}
}

// Reply asks the model to answer message given the ordered history. The
// history slice is copied, never modified. Errors are *domain.UpstreamError.
func (g *Gateway) Reply(ctx context.Context, history []Message, message string) (string, error) {
	msgs := make([]llm.Message, 0, len(history)+1)
	for _, h := range history {
		msgs = append(msgs, llm.Message{Role: wireRole(h.Role), Content: h.Text})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	text, err := g.complete(ctx, OpReply, &llm.CompletionRequest{
		System:   tutorPreamble,
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateQuiz builds a 3-5 question quiz from recent messages.
func (g *Gateway) GenerateQuiz(ctx context.Context, topic domain.Topic, recent []Message) (domain.Quiz, error) {
	text, err := g.complete(ctx, OpQuiz, &llm.CompletionRequest{
		System:   fmt.Sprintf(quizPreamble, minQuizQuestions, maxQuizQuestions, quizOptions),
		Messages: []llm.Message{{Role: llm.RoleUser, Content: quizUserPrompt(topic, recent)}},
		JSON:     true,
	})
	if err != nil {
		return domain.Quiz{}, err
	}

	raw, ok := extractArray(text, "questions")
	if !ok {
		return domain.Quiz{}, &domain.UpstreamError{Op: OpQuiz, Err: errors.New("reply has no questions array")}
	}
	var questions []domain.QuizQuestion
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return domain.Quiz{}, &domain.UpstreamError{Op: OpQuiz, Err: fmt.Errorf("decode questions: %w", err)}
	}

	quiz := NormalizeQuiz(domain.Quiz{Questions: questions})
	if len(quiz.Questions) == 0 {
		return domain.Quiz{}, &domain.UpstreamError{Op: OpQuiz, Err: errors.New("model returned an empty quiz")}
	}
	return quiz, nil
}

// GenerateStudyPlan builds a seven day plan for topic. The daily minutes
// ceiling is requested from the model but not enforced on the result.
func (g *Gateway) GenerateStudyPlan(ctx context.Context, topic domain.Topic) (domain.StudyPlan, error) {
	text, err := g.complete(ctx, OpStudyPlan, &llm.CompletionRequest{
		System:   fmt.Sprintf(planPreamble, g.maxDailyMinutes),
		Messages: []llm.Message{{Role: llm.RoleUser, Content: planUserPrompt(topic)}},
		JSON:     true,
	})
	if err != nil {
		return domain.StudyPlan{}, err
	}

	raw, ok := extractArray(text, "plan")
	if !ok {
		return domain.StudyPlan{}, &domain.UpstreamError{Op: OpStudyPlan, Err: errors.New("reply has no plan array")}
	}
	var days []domain.StudyDay
	if err := json.Unmarshal([]byte(raw), &days); err != nil {
		return domain.StudyPlan{}, &domain.UpstreamError{Op: OpStudyPlan, Err: fmt.Errorf("decode plan: %w", err)}
	}

	plan, err := NormalizeStudyPlan(domain.StudyPlan{Plan: days})
	if err != nil {
		return domain.StudyPlan{}, &domain.UpstreamError{Op: OpStudyPlan, Err: err}
	}
	return plan, nil
}

func (g *Gateway) complete(ctx context.Context, op string, req *llm.CompletionRequest) (string, error) {
	start := time.Now()
	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		g.metrics.ObserveLLM(op, "error", time.Since(start))
		return "", &domain.UpstreamError{Op: op, Err: err}
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		g.metrics.ObserveLLM(op, "empty", time.Since(start))
		return "", &domain.UpstreamError{Op: op, Err: errEmptyReply}
	}
	g.metrics.ObserveLLM(op, "ok", time.Since(start))
	return text, nil
}

// NormalizeQuiz drops malformed questions and keeps at most five. The
// model is asked for at least minQuizQuestions, but any usable question is
// kept.
func NormalizeQuiz(q domain.Quiz) domain.Quiz {
	out := make([]domain.QuizQuestion, 0, len(q.Questions))
	for _, question := range q.Questions {
		fixed, ok := normalizeQuestion(question)
		if !ok {
			continue
		}
		out = append(out, fixed)
		if len(out) == maxQuizQuestions {
			break
		}
	}
	return domain.Quiz{Questions: out}
}

func normalizeQuestion(q domain.QuizQuestion) (domain.QuizQuestion, bool) {
	q.Q = strings.TrimSpace(q.Q)
	q.Why = strings.TrimSpace(q.Why)
	q.Answer = strings.TrimSpace(q.Answer)
	if q.Q == "" || q.Why == "" || len(q.Options) != quizOptions {
		return q, false
	}
	options := make([]string, len(q.Options))
	for i, o := range q.Options {
		options[i] = strings.TrimSpace(o)
		if options[i] == "" {
			return q, false
		}
	}
	q.Options = options

	for _, o := range options {
		if o == q.Answer {
			return q, true
		}
	}
	// Some models answer with the option letter.
	if len(q.Answer) == 1 {
		idx := int(strings.ToUpper(q.Answer)[0] - 'A')
		if idx >= 0 && idx < quizOptions {
			q.Answer = options[idx]
			return q, true
		}
	}
	return q, false
}

// NormalizeStudyPlan checks the plan shape and renumbers days 1..7.
func NormalizeStudyPlan(p domain.StudyPlan) (domain.StudyPlan, error) {
	if len(p.Plan) != domain.StudyPlanDays {
		return domain.StudyPlan{}, fmt.Errorf("plan has %d days, want %d", len(p.Plan), domain.StudyPlanDays)
	}
	days := make([]domain.StudyDay, len(p.Plan))
	copy(days, p.Plan)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	for i := range days {
		days[i].Day = i + 1
		if days[i].Minutes <= 0 {
			return domain.StudyPlan{}, fmt.Errorf("day %d has no study time", i+1)
		}
		topics := make([]string, 0, len(days[i].Topics))
		for _, t := range days[i].Topics {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
		if len(topics) == 0 {
			return domain.StudyPlan{}, fmt.Errorf("day %d has no topics", i+1)
		}
		days[i].Topics = topics
	}
	return domain.StudyPlan{Plan: days}, nil
}

// extractArray finds the JSON object in a model reply (possibly wrapped in a
// markdown fence) and returns the raw array stored under key.
func extractArray(text, key string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	obj := text[start : end+1]
	if !gjson.Valid(obj) {
		return "", false
	}
	res := gjson.Get(obj, key)
	if !res.Exists() || !res.IsArray() {
		return "", false
	}
	return res.Raw, true
}

func wireRole(r domain.Role) string {
	if r == domain.RoleAssistant {
		return llm.RoleAssistant
	}
	return llm.RoleUser
}
