package domain

import (
	"encoding/json"
	"time"
)

// QuizQuestion is one multiple choice question.
type QuizQuestion struct {
	Q       string   `json:"q"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
	Why     string   `json:"why"`
}

// Quiz is a set of questions generated from recent conversation.
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

// StudyDay is a single day of a study plan.
type StudyDay struct {
	Day     int      `json:"day"`
	Minutes int      `json:"minutes"`
	Topics  []string `json:"topics"`
}

// StudyPlan is a seven day plan for a topic.
type StudyPlan struct {
	Plan []StudyDay `json:"plan"`
}

// StudyPlanDays is the number of days every plan covers.
const StudyPlanDays = 7

// Artifact is a saved quiz or study plan.
type Artifact struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	ThreadID  string          `json:"thread_id,omitempty"`
	Kind      ArtifactKind    `json:"kind"`
	Topic     Topic           `json:"topic"`
	Title     string          `json:"title"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
