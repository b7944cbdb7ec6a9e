// Package session runs one conversation per client session: it keeps the
// optimistic view, serializes sends, and writes turns to the store.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
	"github.com/AsfandAhmad/Study-ChatBot/internal/gateway"
	"github.com/AsfandAhmad/Study-ChatBot/internal/metrics"
	"github.com/AsfandAhmad/Study-ChatBot/internal/router"
)

// ApologyPrefix starts the assistant turn recorded when the AI call fails.
const ApologyPrefix = "Sorry, I encountered an error trying to respond. "

// DuplicateWindow is how close two identical pending sends must be for the
// second to be rejected as a double submit.
const DuplicateWindow = time.Second

// State is the lifecycle state of a Manager.
type State int

const (
	// StateIdle has no thread and no turns.
	StateIdle State = iota
	// StatePendingFirstWrite has accepted a send but not created its thread yet.
	StatePendingFirstWrite
	// StateBound is attached to a stored thread.
	StateBound
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingFirstWrite:
		return "pending_first_write"
	case StateBound:
		return "bound"
	default:
		return "unknown"
	}
}

// Store is the persistence a Manager needs.
type Store interface {
	CreateThread(ctx context.Context, ownerID string, topic domain.Topic, titleSeed string) (*domain.Thread, error)
	GetThread(ctx context.Context, ownerID, threadID string) (*domain.Thread, error)
	AppendTurn(ctx context.Context, ownerID, threadID string, turn domain.Turn) (*domain.Turn, error)
	ListTurns(ctx context.Context, ownerID, threadID string) ([]domain.Turn, error)
}

// Replier produces the assistant reply for a message.
type Replier interface {
	Reply(ctx context.Context, history []gateway.Message, message string) (string, error)
}

// Result describes the manager after an operation.
type Result struct {
	ThreadID  string
	State     State
	User      *domain.ViewTurn
	Assistant *domain.ViewTurn
	View      View
}

type jobResult struct {
	res Result
	err error
}

type job struct {
	ctx  context.Context
	run  func(ctx context.Context) (Result, error)
	done chan jobResult
}

// Manager owns one conversation. All mutating operations run in order on a
// single worker goroutine; a caller that gives up waiting does not stop its
// operation.
type Manager struct {
	owner   string
	store   Store
	ai      Replier
	metrics *metrics.Metrics
	log     logrus.FieldLogger

	mu          sync.Mutex
	cond        *sync.Cond
	state       State
	threadID    string
	threadTopic domain.Topic
	view        View
	prelude     []gateway.Message
	queue       []*job
	queued      map[string]bool // user turns whose send has not started
	assistantOf map[string]string
	lastActive  time.Time
	closed      bool
	stopped     chan struct{}
}

// NewManager creates a manager for ownerID and starts its worker.
func NewManager(ownerID string, store Store, ai Replier, m *metrics.Metrics, log logrus.FieldLogger) *Manager {
	mgr := &Manager{
		owner:       ownerID,
		store:       store,
		ai:          ai,
		metrics:     m,
		log:         log.WithField("owner", ownerID),
		queued:      make(map[string]bool),
		assistantOf: make(map[string]string),
		lastActive:  time.Now(),
		stopped:     make(chan struct{}),
	}
	mgr.cond = sync.NewCond(&mgr.mu)
	go mgr.loop()
	return mgr
}

func (m *Manager) loop() {
	defer close(m.stopped)
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		j := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		res, err := j.run(j.ctx)
		j.done <- jobResult{res: res, err: err}
	}
}

// enqueueLocked must be called with m.mu held.
func (m *Manager) enqueueLocked(ctx context.Context, run func(ctx context.Context) (Result, error)) *job {
	j := &job{
		ctx:  context.WithoutCancel(ctx),
		run:  run,
		done: make(chan jobResult, 1),
	}
	m.queue = append(m.queue, j)
	m.cond.Signal()
	return j
}

// submit queues run. touch marks the manager as used by its client.
func (m *Manager) submit(ctx context.Context, touch bool, run func(ctx context.Context) (Result, error)) (Result, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Result{}, domain.ErrSessionClosed
	}
	if touch {
		m.lastActive = time.Now()
	}
	j := m.enqueueLocked(ctx, run)
	m.mu.Unlock()
	return m.wait(ctx, j)
}

func (m *Manager) wait(ctx context.Context, j *job) (Result, error) {
	select {
	case r := <-j.done:
		return r.res, r.err
	case <-ctx.Done():
		return m.snapshot(), ctx.Err()
	}
}

// Send queues text as the next user message. The pending user turn is in
// the view before Send returns or blocks. hint is the course the caller has
// selected; it tags the message when the router finds no specific topic.
//
// A failed AI call is not an error: an apology turn is recorded instead. A
// failed write returns *domain.PersistenceError with both turns left pending.
func (m *Manager) Send(ctx context.Context, text string, hint domain.Topic) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, &domain.ValidationError{Reasons: []string{"message text is required"}}
	}
	topic := router.Classify(text)
	if topic == domain.TopicGeneral && hint.Valid() {
		topic = hint
	}

	now := time.Now().UTC()
	user := domain.Turn{
		LocalID:   ulid.Make().String(),
		Role:      domain.RoleUser,
		Text:      text,
		Topic:     topic,
		CreatedAt: now,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Result{}, domain.ErrSessionClosed
	}
	if m.isDuplicateLocked(text, now) {
		m.mu.Unlock()
		m.metrics.Send("duplicate")
		return Result{}, domain.ErrDuplicateSend
	}
	if m.state == StateIdle {
		m.state = StatePendingFirstWrite
	}
	m.lastActive = time.Now()
	m.view = append(m.view, domain.ViewTurn{Turn: user, Pending: true})
	m.queued[user.LocalID] = true
	j := m.enqueueLocked(ctx, func(ctx context.Context) (Result, error) {
		return m.runSend(ctx, user)
	})
	m.mu.Unlock()

	select {
	case r := <-j.done:
		return r.res, r.err
	case <-ctx.Done():
		return m.resultFor(user.LocalID), ctx.Err()
	}
}

func (m *Manager) isDuplicateLocked(text string, now time.Time) bool {
	for _, vt := range m.view {
		if vt.Pending && vt.Role == domain.RoleUser && vt.Text == text && now.Sub(vt.CreatedAt) < DuplicateWindow {
			return true
		}
	}
	return false
}

func (m *Manager) runSend(ctx context.Context, user domain.Turn) (Result, error) {
	m.mu.Lock()
	delete(m.queued, user.LocalID)
	history := m.promptLocked()
	m.mu.Unlock()

	reply, aiErr := m.ai.Reply(ctx, history, user.Text)

	assistant := domain.Turn{
		LocalID:   ulid.Make().String(),
		Role:      domain.RoleAssistant,
		Text:      reply,
		Topic:     user.Topic,
		CreatedAt: time.Now().UTC(),
	}
	outcome := "ok"
	if aiErr != nil {
		outcome = "ai_error"
		assistant.Text = apology(aiErr)
		assistant.Topic = domain.TopicGeneral
		m.log.WithError(aiErr).WithFields(logrus.Fields{
			"thread": m.ThreadID(),
			"op":     gateway.OpReply,
		}).Warn("ai reply failed, recording apology")
	}

	m.mu.Lock()
	m.view = m.view.insertAfter(user.LocalID, domain.ViewTurn{Turn: assistant, Pending: true})
	m.assistantOf[user.LocalID] = assistant.LocalID
	m.mu.Unlock()

	if err := m.persist(ctx, assistant.LocalID); err != nil {
		m.metrics.Send("persist_error")
		m.log.WithError(err).WithFields(logrus.Fields{
			"thread": m.ThreadID(),
			"op":     "send",
		}).Error("turns left pending")
		return m.resultFor(user.LocalID), err
	}
	m.metrics.Send(outcome)
	return m.resultFor(user.LocalID), nil
}

func apology(err error) string {
	var ue *domain.UpstreamError
	if errors.As(err, &ue) && ue.Err != nil {
		return ApologyPrefix + ue.Err.Error()
	}
	return ApologyPrefix + err.Error()
}

// promptLocked returns the prelude followed by the confirmed turns.
func (m *Manager) promptLocked() []gateway.Message {
	out := make([]gateway.Message, 0, len(m.prelude)+len(m.view))
	out = append(out, m.prelude...)
	for _, vt := range m.view {
		if vt.Pending {
			continue
		}
		out = append(out, gateway.Message{Role: vt.Role, Text: vt.Text, Topic: vt.Topic})
	}
	return out
}

// persist writes pending turns in view order, up to and including upTo
// (all of them when upTo is empty). Turns of sends that have not started
// are skipped. The first failure stops the pass.
func (m *Manager) persist(ctx context.Context, upTo string) error {
	for {
		m.mu.Lock()
		next, ok := m.nextPendingLocked(upTo)
		bound, threadID := m.state == StateBound, m.threadID
		m.mu.Unlock()
		if !ok {
			return nil
		}

		if !bound {
			thread, err := m.store.CreateThread(ctx, m.owner, next.Topic, next.Text)
			if err != nil {
				return &domain.PersistenceError{Op: "create_thread", Err: err}
			}
			m.mu.Lock()
			m.state = StateBound
			m.threadID = thread.ID
			m.threadTopic = thread.Topic
			m.mu.Unlock()
			threadID = thread.ID
			m.log.WithFields(logrus.Fields{"thread": thread.ID, "topic": thread.Topic}).Info("thread created")
		}

		stored, err := m.store.AppendTurn(ctx, m.owner, threadID, next.Turn)
		if err != nil {
			return &domain.PersistenceError{Op: "append_turn", Err: err}
		}
		m.mu.Lock()
		if i := m.view.indexOf(stored.LocalID); i >= 0 {
			m.view[i] = domain.ViewTurn{Turn: *stored}
		}
		m.mu.Unlock()
	}
}

func (m *Manager) nextPendingLocked(upTo string) (domain.ViewTurn, bool) {
	limit := len(m.view) - 1
	if upTo != "" {
		if i := m.view.indexOf(upTo); i >= 0 {
			limit = i
		}
	}
	for i := 0; i <= limit; i++ {
		vt := m.view[i]
		if vt.Pending && !m.queued[vt.LocalID] {
			return vt, true
		}
	}
	return domain.ViewTurn{}, false
}

// Flush retries the durable write of every pending turn, in order. Writes
// are idempotent, so a turn that reached the store before is not duplicated.
func (m *Manager) Flush(ctx context.Context) (Result, error) {
	return m.submit(ctx, false, func(ctx context.Context) (Result, error) {
		err := m.persist(ctx, "")
		return m.snapshot(), err
	})
}

// NewConversation flushes pending turns and resets to Idle. When the flush
// fails the conversation is kept and the *domain.PersistenceError returned.
func (m *Manager) NewConversation(ctx context.Context) (Result, error) {
	return m.submit(ctx, true, func(ctx context.Context) (Result, error) {
		if err := m.persist(ctx, ""); err != nil {
			return m.snapshot(), err
		}
		m.mu.Lock()
		m.resetLocked(StateIdle, "", "", nil)
		m.mu.Unlock()
		return m.snapshot(), nil
	})
}

// Open binds the manager to an existing thread and loads its turns. Pending
// turns of the current conversation are flushed first. A thread the owner
// does not have returns domain.ErrNotFound; it is never recreated.
func (m *Manager) Open(ctx context.Context, threadID string) (Result, error) {
	return m.submit(ctx, true, func(ctx context.Context) (Result, error) {
		if err := m.persist(ctx, ""); err != nil {
			return m.snapshot(), err
		}
		thread, err := m.store.GetThread(ctx, m.owner, threadID)
		if err != nil {
			return m.snapshot(), err
		}
		turns, err := m.store.ListTurns(ctx, m.owner, threadID)
		if err != nil {
			return m.snapshot(), err
		}
		m.mu.Lock()
		m.resetLocked(StateBound, thread.ID, thread.Topic, turns)
		m.mu.Unlock()
		return m.snapshot(), nil
	})
}

// resetLocked replaces the conversation. User turns of sends that have not
// started yet stay in the view so they land in the new conversation.
func (m *Manager) resetLocked(state State, threadID string, topic domain.Topic, turns []domain.Turn) {
	var carried View
	for _, vt := range m.view {
		if m.queued[vt.LocalID] {
			carried = append(carried, vt)
		}
	}
	m.view = Reconcile(carried, turns)
	m.state = state
	m.threadID = threadID
	m.threadTopic = topic
	m.prelude = nil
	m.assistantOf = make(map[string]string)
	if state == StateIdle && len(carried) > 0 {
		m.state = StatePendingFirstWrite
	}
}

// Refresh reloads the bound thread's turns and reconciles the view.
func (m *Manager) Refresh(ctx context.Context) (Result, error) {
	return m.submit(ctx, true, func(ctx context.Context) (Result, error) {
		m.mu.Lock()
		bound, threadID := m.state == StateBound, m.threadID
		m.mu.Unlock()
		if !bound {
			return m.snapshot(), nil
		}
		turns, err := m.store.ListTurns(ctx, m.owner, threadID)
		if err != nil {
			return m.snapshot(), err
		}
		m.mu.Lock()
		if m.threadID == threadID {
			m.view = Reconcile(m.view, turns)
		}
		m.mu.Unlock()
		return m.snapshot(), nil
	})
}

// Watch applies change notifications for the bound thread until ctx is done
// or events is closed. Turns written by other sessions appear in the view.
func (m *Manager) Watch(ctx context.Context, events <-chan domain.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.apply(ev)
		}
	}
}

func (m *Manager) apply(ev domain.ChangeEvent) {
	if ev.Kind != domain.ChangeTurnAppended || ev.Turn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateBound || ev.ThreadID != m.threadID {
		return
	}
	m.view = Reconcile(m.view, mergeConfirmed(m.view.Confirmed(), *ev.Turn))
}

// SetPrelude seeds the prompt with caller supplied history. It only applies
// to an Idle manager with an empty view and reports whether it did.
func (m *Manager) SetPrelude(history []domain.HistoryMessage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle || len(m.view) > 0 {
		return false
	}
	m.prelude = m.prelude[:0]
	for _, h := range history {
		text := strings.TrimSpace(h.Text)
		if text == "" {
			continue
		}
		role := domain.RoleUser
		if h.Role == domain.RoleAssistant {
			role = domain.RoleAssistant
		}
		m.prelude = append(m.prelude, gateway.Message{Role: role, Text: text})
	}
	return true
}

// View returns a copy of the current view.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append(View(nil), m.view...)
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ThreadID returns the bound thread, or "".
func (m *Manager) ThreadID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threadID
}

// Topic returns the topic of the bound thread, or "".
func (m *Manager) Topic() domain.Topic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threadTopic
}

// Snapshot returns the last n confirmed turns.
func (m *Manager) Snapshot(n int) []domain.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	confirmed := m.view.Confirmed()
	if n > 0 && len(confirmed) > n {
		confirmed = confirmed[len(confirmed)-n:]
	}
	return confirmed
}

// LastActive returns when the client last used the manager. Flush does
// not count.
func (m *Manager) LastActive() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActive
}

// Touch marks the manager as used by the client now.
func (m *Manager) Touch() {
	m.mu.Lock()
	m.lastActive = time.Now()
	m.mu.Unlock()
}

// Busy reports whether operations are queued or pending turns remain.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue) > 0 || m.view.Pending() > 0
}

// Close stops accepting work, waits for queued operations to finish, and
// stops the worker.
func (m *Manager) Close() error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		m.cond.Broadcast()
	}
	m.mu.Unlock()
	<-m.stopped
	return nil
}

func (m *Manager) snapshot() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resultLocked("")
}

func (m *Manager) resultFor(userLocalID string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resultLocked(userLocalID)
}

func (m *Manager) resultLocked(userLocalID string) Result {
	res := Result{
		ThreadID: m.threadID,
		State:    m.state,
		View:     append(View(nil), m.view...),
	}
	if userLocalID == "" {
		return res
	}
	if i := m.view.indexOf(userLocalID); i >= 0 {
		vt := m.view[i]
		res.User = &vt
	}
	if a, ok := m.assistantOf[userLocalID]; ok {
		if i := m.view.indexOf(a); i >= 0 {
			vt := m.view[i]
			res.Assistant = &vt
		}
	}
	return res
}
