package grading

import (
	"context"
	"strings"

	"github.com/mind-engage/denken-trainer/internal/quiz"
)

// Normalize trims whitespace and removes line breaks.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}

type exactStrategy struct{}

func (exactStrategy) Grade(_ context.Context, q quiz.Question, answer string) (quiz.Feedback, error) {
	fb := quiz.Feedback{Method: quiz.MethodExact}
	if Normalize(answer) == Normalize(q.Answer) {
		fb.Score = 100
		fb.IsCorrect = true
	}
	return fb, nil
}
