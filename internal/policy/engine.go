// Package policy evaluates the OPA rules that saved artifacts must satisfy.
package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content. The
// module must define the set data.artifact_policy.deny.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.artifact_policy.deny"),
		rego.Module("artifact_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Deny evaluates input and returns the sorted deny messages. An empty
// result means the input is allowed.
func (e *Engine) Deny(ctx context.Context, input interface{}) ([]string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, nil
	}

	set, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected deny value %T", results[0].Expressions[0].Value)
	}
	reasons := make([]string, 0, len(set))
	for _, v := range set {
		reasons = append(reasons, fmt.Sprint(v))
	}
	sort.Strings(reasons)
	return reasons, nil
}

// DefaultPolicy is the default artifact policy.
const DefaultPolicy = `
package artifact_policy

deny[msg] {
	trim_space(object.get(input, "title", "")) == ""
	msg := "title is required"
}

deny[msg] {
	not known_kind
	msg := sprintf("unknown artifact kind %q", [object.get(input, "kind", "")])
}

known_kind {
	input.kind == "quiz"
}

known_kind {
	input.kind == "study_plan"
}

# Quizzes

deny[msg] {
	input.kind == "quiz"
	count(object.get(object.get(input, "payload", {}), "questions", [])) == 0
	msg := "quiz needs at least one question"
}

deny[msg] {
	input.kind == "quiz"
	q := input.payload.questions[i]
	trim_space(object.get(q, "q", "")) == ""
	msg := sprintf("question %d has no text", [i + 1])
}

deny[msg] {
	input.kind == "quiz"
	q := input.payload.questions[i]
	count(object.get(q, "options", [])) != 4
	msg := sprintf("question %d must have exactly 4 options", [i + 1])
}

deny[msg] {
	input.kind == "quiz"
	q := input.payload.questions[i]
	not answer_listed(q)
	msg := sprintf("question %d answer is not one of its options", [i + 1])
}

answer_listed(q) {
	q.options[_] == q.answer
}

# Study plans

deny[msg] {
	input.kind == "study_plan"
	count(object.get(object.get(input, "payload", {}), "plan", [])) != 7
	msg := "study plan must cover 7 days"
}

deny[msg] {
	input.kind == "study_plan"
	d := input.payload.plan[i]
	object.get(d, "minutes", 0) <= 0
	msg := sprintf("day %d needs a positive study time", [i + 1])
}

deny[msg] {
	input.kind == "study_plan"
	d := input.payload.plan[i]
	count(object.get(d, "topics", [])) == 0
	msg := sprintf("day %d needs at least one topic", [i + 1])
}
`
