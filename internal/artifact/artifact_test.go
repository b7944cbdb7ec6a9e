package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
	"github.com/AsfandAhmad/Study-ChatBot/internal/gateway"
	"github.com/AsfandAhmad/Study-ChatBot/internal/policy"
	"github.com/AsfandAhmad/Study-ChatBot/internal/repository/repotest"
)

type fakeAI struct {
	quiz       domain.Quiz
	plan       domain.StudyPlan
	err        error
	gotHistory []gateway.Message
}

func (f *fakeAI) GenerateQuiz(_ context.Context, _ domain.Topic, recent []gateway.Message) (domain.Quiz, error) {
	f.gotHistory = recent
	return f.quiz, f.err
}

func (f *fakeAI) GenerateStudyPlan(context.Context, domain.Topic) (domain.StudyPlan, error) {
	return f.plan, f.err
}

func newGenerator(ai AI) (*Generator, *test.Hook) {
	log, hook := test.NewNullLogger()
	return NewGenerator(ai, nil, log), hook
}

func TestQuizFallbackOnError(t *testing.T) {
	ai := &fakeAI{err: &domain.UpstreamError{Op: gateway.OpQuiz, Err: errors.New("rate limited")}}
	g, hook := newGenerator(ai)

	quiz := g.Quiz(context.Background(), "u1", domain.TopicDSA, nil)
	require.GreaterOrEqual(t, len(quiz.Questions), 2)
	for _, q := range quiz.Questions {
		assert.Len(t, q.Options, 4)
		assert.Contains(t, q.Options, q.Answer)
		assert.NotEmpty(t, q.Why)
	}
	assert.Equal(t, "O(log n)", quiz.Questions[0].Answer)
	assert.Equal(t, "Compilation", quiz.Questions[1].Answer)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "u1", hook.LastEntry().Data["owner"])
}

func TestQuizFallbackOnEmpty(t *testing.T) {
	g, _ := newGenerator(&fakeAI{})
	quiz := g.Quiz(context.Background(), "u1", domain.TopicDSA, nil)
	assert.Equal(t, FallbackQuiz(), quiz)
}

func TestQuizSyntheticPromptWhenNoHistory(t *testing.T) {
	ai := &fakeAI{quiz: FallbackQuiz()}
	g, _ := newGenerator(ai)

	g.Quiz(context.Background(), "u1", domain.TopicOS, nil)
	require.Len(t, ai.gotHistory, 1)
	assert.Equal(t, "Give me a quiz on OS", ai.gotHistory[0].Text)
	assert.Equal(t, domain.RoleUser, ai.gotHistory[0].Role)
}

func TestQuizUsesLastTenTurns(t *testing.T) {
	ai := &fakeAI{quiz: FallbackQuiz()}
	g, _ := newGenerator(ai)

	var turns []domain.Turn
	for i := 0; i < 15; i++ {
		turns = append(turns, domain.Turn{Role: domain.RoleUser, Text: string(rune('a' + i))})
	}
	g.Quiz(context.Background(), "u1", domain.TopicGeneral, turns)
	require.Len(t, ai.gotHistory, QuizHistoryLimit)
	assert.Equal(t, "f", ai.gotHistory[0].Text)
	assert.Equal(t, domain.TopicGeneral, ai.gotHistory[0].Topic)
}

func TestStudyPlanFallback(t *testing.T) {
	g, _ := newGenerator(&fakeAI{err: errors.New("down")})

	plan := g.StudyPlan(context.Background(), "u1", domain.TopicDBMS)
	require.Len(t, plan.Plan, domain.StudyPlanDays)
	prev := 0
	for i, d := range plan.Plan {
		assert.Equal(t, i+1, d.Day)
		assert.Greater(t, d.Minutes, prev)
		assert.NotEmpty(t, d.Topics)
		prev = d.Minutes
	}
	assert.Equal(t, 30, plan.Plan[0].Minutes)
	assert.Equal(t, 90, plan.Plan[6].Minutes)
	assert.Equal(t, "Review DBMS fundamentals", plan.Plan[0].Topics[0])
}

func TestStudyPlanPassesThrough(t *testing.T) {
	want := FallbackStudyPlan(domain.TopicAI)
	want.Plan[0].Topics = []string{"neural networks"}
	g, _ := newGenerator(&fakeAI{plan: want})
	assert.Equal(t, want, g.StudyPlan(context.Background(), "u1", domain.TopicAI))
}

func newAuthor(t *testing.T) (*Author, *domain.Thread) {
	t.Helper()
	ctx := context.Background()
	store := repotest.NewTestSQLiteStore(t)
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)
	thread, err := store.CreateThread(ctx, "u1", domain.TopicDSA, "What is a stack?")
	require.NoError(t, err)
	return NewAuthor(store, engine), thread
}

func TestAuthorSaveListDelete(t *testing.T) {
	ctx := context.Background()
	author, thread := newAuthor(t)

	payload, _ := json.Marshal(FallbackQuiz())
	saved, err := author.Save(ctx, "u1", domain.SaveArtifactRequest{
		ThreadID: thread.ID,
		Kind:     domain.ArtifactKindQuiz,
		Topic:    "dsa",
		Title:    " Binary search ",
		Payload:  payload,
	})
	require.NoError(t, err)
	assert.Equal(t, "Binary search", saved.Title)
	assert.Equal(t, domain.TopicDSA, saved.Topic)

	planPayload, _ := json.Marshal(FallbackStudyPlan(domain.TopicOS))
	_, err = author.Save(ctx, "u1", domain.SaveArtifactRequest{Kind: domain.ArtifactKindStudyPlan, Topic: domain.TopicOS, Title: "OS week", Payload: planPayload})
	require.NoError(t, err)

	quizzes, err := author.List(ctx, "u1", domain.ArtifactKindQuiz, 0)
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, saved.ID, quizzes[0].ID)

	require.NoError(t, author.Delete(ctx, "u1", saved.ID))
	assert.ErrorIs(t, author.Delete(ctx, "u1", saved.ID), domain.ErrNotFound)
}

func TestAuthorRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	author, _ := newAuthor(t)

	bad := FallbackQuiz()
	bad.Questions[0].Options = bad.Questions[0].Options[:3]
	payload, _ := json.Marshal(bad)

	_, err := author.Save(ctx, "u1", domain.SaveArtifactRequest{Kind: domain.ArtifactKindQuiz, Title: "t", Payload: payload})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reasons, "question 1 must have exactly 4 options")

	_, err = author.Save(ctx, "u1", domain.SaveArtifactRequest{Kind: domain.ArtifactKindQuiz, Title: "t", Payload: json.RawMessage(`[1,2]`)})
	require.ErrorAs(t, err, &ve)

	artifacts, err := author.List(ctx, "u1", "", 0)
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestAuthorUnknownThread(t *testing.T) {
	author, _ := newAuthor(t)
	payload, _ := json.Marshal(FallbackQuiz())
	_, err := author.Save(context.Background(), "u2", domain.SaveArtifactRequest{ThreadID: "missing", Kind: domain.ArtifactKindQuiz, Title: "t", Payload: payload})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
