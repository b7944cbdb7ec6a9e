package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AsfandAhmad/Study-ChatBot/internal/adapter/llm"
	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

func replyWith(text string, seen *llm.CompletionRequest) llm.FuncClient {
	return func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if seen != nil {
			*seen = *req
		}
		return &llm.CompletionResponse{Text: text}, nil
	}
}

func TestReplyBuildsOrderedPrompt(t *testing.T) {
	var seen llm.CompletionRequest
	g := New(replyWith("  A stack is LIFO.\n", &seen), 0, nil)

	history := []Message{
		{Role: domain.RoleUser, Text: "hi"},
		{Role: domain.RoleAssistant, Text: "hello"},
	}
	before := append([]Message(nil), history...)

	got, err := g.Reply(context.Background(), history, "What is a stack?")
	require.NoError(t, err)
	assert.Equal(t, "A stack is LIFO.", got)
	assert.Equal(t, before, history)

	require.Len(t, seen.Messages, 3)
	assert.Equal(t, llm.RoleUser, seen.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, seen.Messages[1].Role)
	assert.Equal(t, "What is a stack?", seen.Messages[2].Content)
	assert.Contains(t, seen.System, "Firefox")
	assert.False(t, seen.JSON)
}

func TestReplyEmptyIsUpstreamError(t *testing.T) {
	g := New(replyWith("   ", nil), 0, nil)
	_, err := g.Reply(context.Background(), nil, "hello")
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))
}

func TestReplyClientError(t *testing.T) {
	boom := errors.New("quota exceeded")
	g := New(llm.FuncClient(func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, boom
	}), 0, nil)

	_, err := g.Reply(context.Background(), nil, "hello")
	var up *domain.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, OpReply, up.Op)
	assert.ErrorIs(t, err, boom)
}

func TestGenerateQuizFromFencedJSON(t *testing.T) {
	reply := "```json\n" + `{"questions":[
		{"q":"Which structure is LIFO?","options":["Queue","Stack","Heap","Graph"],"answer":"Stack","why":"Last in, first out."},
		{"q":"Bad question","options":["a","b"],"answer":"a","why":"too few options"},
		{"q":"Lettered answer","options":["one","two","three","four"],"answer":"C","why":"third"}
	]}` + "\n```"
	var seen llm.CompletionRequest
	g := New(replyWith(reply, &seen), 0, nil)

	quiz, err := g.GenerateQuiz(context.Background(), domain.TopicDSA, []Message{
		{Role: domain.RoleUser, Text: "What is a stack?", Topic: domain.TopicDSA},
	})
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "Stack", quiz.Questions[0].Answer)
	assert.Equal(t, "three", quiz.Questions[1].Answer)
	assert.True(t, seen.JSON)
	assert.Contains(t, seen.Messages[0].Content, "user: What is a stack? (Course: DSA)")
	assert.Contains(t, seen.System, "Generate 3-5 multiple-choice questions")
	assert.Contains(t, seen.System, "exactly 4 answer options")
	assert.NotContains(t, seen.System, "%!")
}

func TestGenerateQuizEmptyIsError(t *testing.T) {
	for _, reply := range []string{`{"questions":[]}`, `not json at all`, `{"other":1}`} {
		g := New(replyWith(reply, nil), 0, nil)
		_, err := g.GenerateQuiz(context.Background(), domain.TopicGeneral, nil)
		assert.True(t, domain.IsUpstream(err), "reply %q", reply)
	}
}

func TestNormalizeQuizCapsAtFive(t *testing.T) {
	q := domain.QuizQuestion{Q: "q", Options: []string{"a", "b", "c", "d"}, Answer: "a", Why: "w"}
	var in domain.Quiz
	for i := 0; i < 8; i++ {
		in.Questions = append(in.Questions, q)
	}
	assert.Len(t, NormalizeQuiz(in).Questions, 5)
}

func TestGenerateStudyPlan(t *testing.T) {
	var days []string
	for i := 7; i >= 1; i-- {
		days = append(days, `{"day":`+string(rune('0'+i))+`,"minutes":45,"topics":[" Topic ",""]}`)
	}
	reply := `{"plan":[` + strings.Join(days, ",") + `]}`
	var seen llm.CompletionRequest
	g := New(replyWith(reply, &seen), 60, nil)

	plan, err := g.GenerateStudyPlan(context.Background(), domain.TopicOS)
	require.NoError(t, err)
	require.Len(t, plan.Plan, domain.StudyPlanDays)
	for i, d := range plan.Plan {
		assert.Equal(t, i+1, d.Day)
		assert.Equal(t, []string{"Topic"}, d.Topics)
	}
	assert.Contains(t, seen.System, "at most 60 minutes")
}

func TestGenerateStudyPlanRejectsBadShape(t *testing.T) {
	cases := map[string]string{
		"too few days": `{"plan":[{"day":1,"minutes":30,"topics":["x"]}]}`,
		"zero minutes": `{"plan":[` + strings.Repeat(`{"day":1,"minutes":0,"topics":["x"]},`, 6) + `{"day":7,"minutes":0,"topics":["x"]}]}`,
		"no topics":    `{"plan":[` + strings.Repeat(`{"day":1,"minutes":10,"topics":[]},`, 6) + `{"day":7,"minutes":10,"topics":[]}]}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			g := New(replyWith(reply, nil), 0, nil)
			_, err := g.GenerateStudyPlan(context.Background(), domain.TopicOS)
			assert.True(t, domain.IsUpstream(err))
		})
	}
}

func TestGatewayWithMockClient(t *testing.T) {
	g := New(llm.NewMockClient(), 0, nil)

	quiz, err := g.GenerateQuiz(context.Background(), domain.TopicAI, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, quiz.Questions)

	plan, err := g.GenerateStudyPlan(context.Background(), domain.TopicAI)
	require.NoError(t, err)
	assert.Len(t, plan.Plan, domain.StudyPlanDays)
}
