// Package artifact generates quizzes and study plans and manages the ones a
// student saves.
package artifact

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
	"github.com/AsfandAhmad/Study-ChatBot/internal/gateway"
	"github.com/AsfandAhmad/Study-ChatBot/internal/metrics"
)

// QuizHistoryLimit is how many recent turns feed quiz generation.
const QuizHistoryLimit = 10

// AI is the part of the gateway the generator needs.
type AI interface {
	GenerateQuiz(ctx context.Context, topic domain.Topic, recent []gateway.Message) (domain.Quiz, error)
	GenerateStudyPlan(ctx context.Context, topic domain.Topic) (domain.StudyPlan, error)
}

// Generator produces artifacts and never fails: any gateway error is logged
// and answered with fallback content.
type Generator struct {
	ai      AI
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

// NewGenerator creates a generator.
func NewGenerator(ai AI, m *metrics.Metrics, log logrus.FieldLogger) *Generator {
	return &Generator{ai: ai, metrics: m, log: log}
}

// Quiz builds a quiz from the last turns of a conversation.
func (g *Generator) Quiz(ctx context.Context, ownerID string, topic domain.Topic, recent []domain.Turn) domain.Quiz {
	if len(recent) > QuizHistoryLimit {
		recent = recent[len(recent)-QuizHistoryLimit:]
	}
	history := make([]gateway.Message, 0, len(recent)+1)
	for _, t := range recent {
		turnTopic := t.Topic
		if turnTopic == "" {
			turnTopic = topic
		}
		history = append(history, gateway.Message{Role: t.Role, Text: t.Text, Topic: turnTopic})
	}
	if len(history) == 0 {
		history = append(history, gateway.Message{
			Role:  domain.RoleUser,
			Text:  fmt.Sprintf("Give me a quiz on %s", topic),
			Topic: topic,
		})
	}

	quiz, err := g.ai.GenerateQuiz(ctx, topic, history)
	if err == nil && len(quiz.Questions) > 0 {
		return quiz
	}
	g.log.WithError(err).WithFields(logrus.Fields{
		"owner": ownerID,
		"topic": topic,
		"op":    gateway.OpQuiz,
	}).Warn("serving fallback quiz")
	g.metrics.ArtifactFallback(string(domain.ArtifactKindQuiz))
	return FallbackQuiz()
}

// StudyPlan builds a seven day plan for topic.
func (g *Generator) StudyPlan(ctx context.Context, ownerID string, topic domain.Topic) domain.StudyPlan {
	plan, err := g.ai.GenerateStudyPlan(ctx, topic)
	if err == nil && len(plan.Plan) == domain.StudyPlanDays {
		return plan
	}
	g.log.WithError(err).WithFields(logrus.Fields{
		"owner": ownerID,
		"topic": topic,
		"op":    gateway.OpStudyPlan,
	}).Warn("serving fallback study plan")
	g.metrics.ArtifactFallback(string(domain.ArtifactKindStudyPlan))
	return FallbackStudyPlan(topic)
}
