package gateway

import (
	"fmt"
	"strings"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

const tutorPreamble = `You are "Firefox", an AI study tutor for computer science students. ` +
	`Be friendly, encouraging, and provide clear, concise explanations. ` +
	`Ask clarifying questions to better understand the student's needs. ` +
	`When explaining code, use markdown code blocks. ` +
	`Keep your responses focused on the student's question and the selected course topic.`

const quizPreamble = `You are an evaluation agent that generates a multiple-choice quiz based on a student's chat history and course.
Your goal is to assess the student's understanding of the material covered in the chat history.
Generate %d-%d multiple-choice questions relevant to the chat history and the course.
Each question must have exactly %d answer options with only one correct answer, and a brief explanation of why it is correct.
Reply with a JSON object only, in this format:
{"questions":[{"q":"question text","options":["option1","option2","option3","option4"],"answer":"correct option","why":"explanation"}]}`

const planPreamble = `You are an AI study plan generator. Generate a 7-day study plan for the student based on the selected course.
For every day give the day number (1-7), the estimated study time in minutes (at most %d minutes per day), and a list of topics to study.
Make the plan realistic and achievable and cover a range of topics relevant to the course.
Reply with a JSON object only, in this format:
{"plan":[{"day":1,"minutes":45,"topics":["topic one","topic two"]}]}`

func quizUserPrompt(topic domain.Topic, recent []Message) string {
	var b strings.Builder
	b.WriteString("Chat History:\n")
	for _, m := range recent {
		t := m.Topic
		if t == "" {
			t = topic
		}
		fmt.Fprintf(&b, "%s: %s (Course: %s)\n", m.Role, m.Text, t)
	}
	fmt.Fprintf(&b, "\nCourse: %s", topic)
	return b.String()
}

func planUserPrompt(topic domain.Topic) string {
	return fmt.Sprintf("Course: %s (%s)", topic, topic.Label())
}
