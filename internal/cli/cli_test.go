package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AsfandAhmad/Study-ChatBot/internal/adapter/llm"
	"github.com/AsfandAhmad/Study-ChatBot/internal/artifact"
	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
	"github.com/AsfandAhmad/Study-ChatBot/internal/gateway"
	"github.com/AsfandAhmad/Study-ChatBot/internal/policy"
	"github.com/AsfandAhmad/Study-ChatBot/internal/repository"
	"github.com/AsfandAhmad/Study-ChatBot/internal/repository/repotest"
	"github.com/AsfandAhmad/Study-ChatBot/internal/service"
	httptransport "github.com/AsfandAhmad/Study-ChatBot/internal/transport/http"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log, _ := test.NewNullLogger()

	store := repository.NewObserved(repotest.NewTestSQLiteStore(t), repository.NewMemoryBroker(nil), log)
	gw := gateway.New(llm.NewMockClient(), 0, nil)
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	svc := service.New(store, gw, artifact.NewGenerator(gw, nil, log), artifact.NewAuthor(store, engine), nil, log, service.Options{})

	srv := httptest.NewServer(httptransport.NewServer(svc, nil, log))
	t.Cleanup(func() {
		srv.Close()
		svc.Close(context.Background())
	})
	return srv
}

// syncBuffer is a bytes.Buffer safe for the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestClientConversation(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c := NewClient(srv.URL+"/", "u1", "tab1")

	resp, err := c.Send(ctx, "", "What is a stack?", "")
	require.NoError(t, err)
	require.NotEmpty(t, resp.ThreadID)
	require.Len(t, resp.Turns, 2)
	assert.Equal(t, domain.TopicDSA, resp.Turns[0].Topic)

	resp, err = c.Send(ctx, resp.ThreadID, "and a queue?", "")
	require.NoError(t, err)
	assert.Len(t, resp.Turns, 4)

	threads, err := c.Threads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "What is a stack?", threads[0].Title)

	turns, err := c.Turns(ctx, resp.ThreadID)
	require.NoError(t, err)
	assert.Len(t, turns, 4)

	_, err = c.Turns(ctx, "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	_, err = c.Send(ctx, "", "  ", "")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestClientArtifacts(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c := NewClient(srv.URL, "u1", "tab1")

	quiz, err := c.Quiz(ctx, "", domain.TopicDSA)
	require.NoError(t, err)
	require.NotEmpty(t, quiz.Questions)

	plan, err := c.StudyPlan(ctx, domain.TopicOS)
	require.NoError(t, err)
	require.Len(t, plan.Plan, domain.StudyPlanDays)

	artifacts, err := c.Artifacts(ctx)
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestREPLSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := newTestServer(t)
	log, _ := test.NewNullLogger()

	out := &syncBuffer{}
	r := NewREPL(NewClient(srv.URL, "u1", "tab1"), out, log)

	input := strings.Join([]string{
		"What is a stack?",
		"/quiz",
		"/save Stack quiz",
		"/saved",
		"/plan NET",
		"/threads",
		"/topic os",
		"/bogus",
		"/quit",
		"never sent",
	}, "\n")
	require.NoError(t, r.Run(ctx, strings.NewReader(input)))

	got := out.String()
	assert.Contains(t, got, "you [DSA]: What is a stack?")
	assert.Contains(t, got, "tutor [DSA]: [MOCK]")
	assert.Contains(t, got, "1. ")
	assert.Contains(t, got, `Saved quiz "Stack quiz"`)
	assert.Contains(t, got, "Day 7 (")
	assert.Contains(t, got, "* "+r.ThreadID())
	assert.Contains(t, got, "Topic: Operating Systems")
	assert.Contains(t, got, "unknown command /bogus")
	assert.Contains(t, got, "Bye!")
	assert.NotContains(t, got, "never sent")
}

func TestREPLNewAndOpen(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	log, _ := test.NewNullLogger()

	out := &syncBuffer{}
	r := NewREPL(NewClient(srv.URL, "u1", "tab1"), out, log)

	_, err := r.Handle(ctx, "What is a stack?")
	require.NoError(t, err)
	first := r.ThreadID()
	require.NotEmpty(t, first)

	_, err = r.Handle(ctx, "/new")
	require.NoError(t, err)
	assert.Empty(t, r.ThreadID())

	_, err = r.Handle(ctx, "explain TCP vs UDP")
	require.NoError(t, err)
	second := r.ThreadID()
	require.NotEmpty(t, second)
	assert.NotEqual(t, first, second)

	_, err = r.Handle(ctx, "/open "+first)
	require.NoError(t, err)
	assert.Equal(t, first, r.ThreadID())

	_, err = r.Handle(ctx, "and a queue?")
	require.NoError(t, err)
	assert.Equal(t, first, r.ThreadID())

	_, err = r.Handle(ctx, "/open")
	assert.Error(t, err)
	_, err = r.Handle(ctx, "/save")
	assert.EqualError(t, err, "nothing to save, run /quiz or /plan first")
}

func TestWatchShowsOtherTab(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := newTestServer(t)
	log, _ := test.NewNullLogger()

	tab1 := NewClient(srv.URL, "u1", "tab1")
	out := &syncBuffer{}
	r := NewREPL(tab1, out, log)

	_, err := r.Handle(ctx, "What is a stack?")
	require.NoError(t, err)

	done, err := tab1.Watch(ctx, "", r.OnChange)
	require.NoError(t, err)

	tab2 := NewClient(srv.URL, "u1", "tab2")
	_, err = tab2.Send(ctx, r.ThreadID(), "and a queue?", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "you [DSA]: and a queue? (elsewhere)")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
