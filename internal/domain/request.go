package domain

import "encoding/json"

// HistoryMessage is a caller supplied prior message.
type HistoryMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// SendMessageRequest is the request to send a message in a session.
type SendMessageRequest struct {
	OwnerID   string           `json:"-"`
	SessionID string           `json:"session_id"`
	ThreadID  *string          `json:"thread_id"`
	History   []HistoryMessage `json:"history,omitempty"`
	Text      string           `json:"text"`
	Topic     Topic            `json:"topic,omitempty"`
}

// ViewTurn is a turn as shown to the client, possibly still pending.
type ViewTurn struct {
	Turn
	Pending bool `json:"pending"`
}

// SendMessageResponse is the response after sending a message.
type SendMessageResponse struct {
	ThreadID string     `json:"thread_id,omitempty"`
	Turns    []ViewTurn `json:"turns"`
	Error    string     `json:"error,omitempty"`
}

// QuizRequest represents a request to generate a quiz.
type QuizRequest struct {
	SessionID string `json:"session_id,omitempty"`
	ThreadID  string `json:"thread_id,omitempty"`
	Topic     Topic  `json:"topic"`
}

// StudyPlanRequest represents a request to generate a study plan.
type StudyPlanRequest struct {
	Topic Topic `json:"topic"`
}

// SaveArtifactRequest represents a request to save a quiz or study plan.
type SaveArtifactRequest struct {
	ThreadID string          `json:"thread_id,omitempty"`
	Kind     ArtifactKind    `json:"kind"`
	Topic    Topic           `json:"topic"`
	Title    string          `json:"title"`
	Payload  json.RawMessage `json:"payload"`
}

// ListThreadsResponse represents the response for listing threads.
type ListThreadsResponse struct {
	Threads []Thread `json:"threads"`
}

// ListTurnsResponse represents the response for listing turns of a thread.
type ListTurnsResponse struct {
	ThreadID string `json:"thread_id"`
	Turns    []Turn `json:"turns"`
}

// ListArtifactsResponse represents the response for listing artifacts.
type ListArtifactsResponse struct {
	Artifacts []Artifact `json:"artifacts"`
}
