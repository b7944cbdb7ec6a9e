package artifact

import (
	"fmt"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

// FallbackQuiz is served whenever quiz generation fails.
func FallbackQuiz() domain.Quiz {
	return domain.Quiz{Questions: []domain.QuizQuestion{
		{
			Q:       "What is the time complexity of binary search?",
			Options: []string{"O(1)", "O(log n)", "O(n)", "O(n log n)"},
			Answer:  "O(log n)",
			Why:     "The input array is halved at each step of the algorithm.",
		},
		{
			Q:       "Which of these is not a pillar of OOP?",
			Options: []string{"Inheritance", "Encapsulation", "Polymorphism", "Compilation"},
			Answer:  "Compilation",
			Why:     "Compilation is a step in the software development process, not a principle of Object-Oriented Programming.",
		},
	}}
}

// FallbackStudyPlan is served whenever plan generation fails. Day i asks for
// i*10+20 minutes.
func FallbackStudyPlan(topic domain.Topic) domain.StudyPlan {
	days := make([]domain.StudyDay, domain.StudyPlanDays)
	for i := range days {
		day := i + 1
		days[i] = domain.StudyDay{
			Day:     day,
			Minutes: day*10 + 20,
			Topics: []string{
				fmt.Sprintf("Review %s fundamentals", topic),
				"Complete one practice problem",
				"Watch a short video on a key concept",
			},
		}
	}
	return domain.StudyPlan{Plan: days}
}
