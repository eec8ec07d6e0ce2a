package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// QuizQuestion is a single check-in question
type QuizQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// Quiz is a generated set of questions owned by one user
type Quiz struct {
	ID        string         `json:"quizId"`
	UserID    string         `json:"userId"`
	Questions []QuizQuestion `json:"questions"`
	CreatedAt time.Time      `json:"createdAt"`
}

// QuizAnswer pairs a question with the user's answer
type QuizAnswer struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

// Validate checks a quiz before it is stored
func (q *Quiz) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	if len(q.Questions) == 0 {
		return errors.New("quiz needs at least one question")
	}
	for i, question := range q.Questions {
		if strings.TrimSpace(question.Question) == "" {
			return fmt.Errorf("question %d is empty", i)
		}
	}
	return nil
}

// FormatAnswers serializes answers into the Q/A text sent to the model
func FormatAnswers(answers []QuizAnswer) string {
	var b strings.Builder
	for i, a := range answers {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s", i+1, strings.TrimSpace(a.Question), i+1, strings.TrimSpace(a.Answer))
	}
	return b.String()
}
