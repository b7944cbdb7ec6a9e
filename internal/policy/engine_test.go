package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quizInput(questions ...map[string]interface{}) map[string]interface{} {
	qs := make([]interface{}, 0, len(questions))
	for _, q := range questions {
		qs = append(qs, q)
	}
	return map[string]interface{}{
		"kind":    "quiz",
		"title":   "Stacks",
		"payload": map[string]interface{}{"questions": qs},
	}
}

func planInput(days int, minutes int, topics []interface{}) map[string]interface{} {
	plan := make([]interface{}, 0, days)
	for i := 1; i <= days; i++ {
		plan = append(plan, map[string]interface{}{"day": i, "minutes": minutes, "topics": topics})
	}
	return map[string]interface{}{
		"kind":    "study_plan",
		"title":   "OS week",
		"payload": map[string]interface{}{"plan": plan},
	}
}

func validQuestion() map[string]interface{} {
	return map[string]interface{}{
		"q":       "Which is LIFO?",
		"options": []interface{}{"Queue", "Stack", "Heap", "Graph"},
		"answer":  "Stack",
		"why":     "last in first out",
	}
}

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	badOptions := validQuestion()
	badOptions["options"] = []interface{}{"Stack", "Queue"}
	badAnswer := validQuestion()
	badAnswer["answer"] = "Tree"

	noTitle := quizInput(validQuestion())
	noTitle["title"] = "  "

	tests := []struct {
		name  string
		input map[string]interface{}
		want  []string
	}{
		{"valid quiz", quizInput(validQuestion()), []string{}},
		{"empty quiz", quizInput(), []string{"quiz needs at least one question"}},
		{"three options", quizInput(validQuestion(), badOptions), []string{"question 2 must have exactly 4 options"}},
		{"answer not listed", quizInput(badAnswer), []string{"question 1 answer is not one of its options"}},
		{"missing title", noTitle, []string{"title is required"}},
		{"valid plan", planInput(7, 30, []interface{}{"review"}), []string{}},
		{"short plan", planInput(6, 30, []interface{}{"review"}), []string{"study plan must cover 7 days"}},
		{"unknown kind", map[string]interface{}{"kind": "notes", "title": "x"}, []string{`unknown artifact kind "notes"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Deny(ctx, tt.input)
			require.NoError(t, err)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanDayRules(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	got, err := engine.Deny(ctx, planInput(7, 0, []interface{}{}))
	require.NoError(t, err)
	assert.Contains(t, got, "day 1 needs a positive study time")
	assert.Contains(t, got, "day 7 needs at least one topic")
	assert.Len(t, got, 14)
}

func TestNewEngineRejectsBadModule(t *testing.T) {
	_, err := NewEngine(context.Background(), "package broken\n\ndeny[msg] {")
	assert.Error(t, err)
}
