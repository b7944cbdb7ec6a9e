// Package domain defines the core domain models for the tutor service.
package domain

import "strings"

// Topic is the course tag attached to threads and turns.
type Topic string

const (
	TopicGeneral Topic = "GENERAL"
	TopicDSA     Topic = "DSA"
	TopicAI      Topic = "AI"
	TopicDBMS    Topic = "DBMS"
	TopicOS      Topic = "OS"
	TopicNet     Topic = "NET"
)

var topicLabels = []struct {
	Topic Topic
	Label string
}{
	{TopicGeneral, "General"},
	{TopicDSA, "Data Structures & Algorithms"},
	{TopicAI, "AI/ML"},
	{TopicDBMS, "Database Systems"},
	{TopicOS, "Operating Systems"},
	{TopicNet, "Networks"},
}

// TopicInfo describes a topic for listings.
type TopicInfo struct {
	Topic Topic  `json:"topic"`
	Label string `json:"label"`
}

// Topics returns every known topic in display order.
func Topics() []TopicInfo {
	out := make([]TopicInfo, 0, len(topicLabels))
	for _, t := range topicLabels {
		out = append(out, TopicInfo{Topic: t.Topic, Label: t.Label})
	}
	return out
}

// Label returns the human readable name of the topic.
func (t Topic) Label() string {
	for _, l := range topicLabels {
		if l.Topic == t {
			return l.Label
		}
	}
	return string(t)
}

// Valid reports whether t is one of the known topics.
func (t Topic) Valid() bool {
	for _, l := range topicLabels {
		if l.Topic == t {
			return true
		}
	}
	return false
}

// ParseTopic maps a case-insensitive name to a Topic, falling back to GENERAL.
func ParseTopic(s string) Topic {
	t := Topic(strings.ToUpper(strings.TrimSpace(s)))
	if t.Valid() {
		return t
	}
	return TopicGeneral
}

// Role is the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ArtifactKind distinguishes saved quizzes from saved study plans.
type ArtifactKind string

const (
	ArtifactKindQuiz      ArtifactKind = "quiz"
	ArtifactKindStudyPlan ArtifactKind = "study_plan"
)

// ChangeKind represents the type of a store change notification.
type ChangeKind string

const (
	ChangeThreadCreated   ChangeKind = "thread_created"
	ChangeTurnAppended    ChangeKind = "turn_appended"
	ChangeArtifactSaved   ChangeKind = "artifact_saved"
	ChangeArtifactDeleted ChangeKind = "artifact_deleted"
)
