// Package session runs one quiz attempt: queue, counters and the pending
// result between an answer and the next question.
package session

import (
	"errors"
	"math"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

var (
	ErrEmptyPool         = errors.New("session: no questions match")
	ErrInvalidTransition = errors.New("session: operation not allowed in current state")
	ErrStaleQuestion     = errors.New("session: answered question is not the current one")
)

type State int

const (
	Idle State = iota
	ShowingQuestion
	ShowingResult
	Complete
)

func (s State) String() string {
	switch s {
	case ShowingQuestion:
		return "showing_question"
	case ShowingResult:
		return "showing_result"
	case Complete:
		return "complete"
	default:
		return "idle"
	}
}

// Result is the outcome of the most recent answer, kept until Advance.
type Result struct {
	Question  quiz.Question
	IsCorrect bool
	Submitted string
	Canonical string
	Progress  int // percent of the session answered
	Position  int // 1-based index of the answered question
	Feedback  *quiz.Feedback
}

// Session is one attempt. The zero value is Idle. Sessions are values:
// handlers decode one per request, mutate it and encode it back.
type Session struct {
	ID       string
	Format   formats.Format
	Category string
	Review   bool

	Queue   []quiz.Question // head is the current question
	Total   int
	Correct int
	Combo   int
	Pending *Result
}

type Summary struct {
	Score   int // percent
	Correct int
	Total   int
}

func (s *Session) State() State {
	switch {
	case s.Pending != nil:
		return ShowingResult
	case len(s.Queue) > 0:
		return ShowingQuestion
	case s.Total > 0:
		return Complete
	default:
		return Idle
	}
}

// Current returns the question awaiting an answer.
func (s *Session) Current() (quiz.Question, bool) {
	if s.State() != ShowingQuestion {
		return quiz.Question{}, false
	}
	return s.Queue[0], true
}

// Advance dismisses the pending result.
func (s *Session) Advance() error {
	if s.State() != ShowingResult {
		return ErrInvalidTransition
	}
	s.Pending = nil
	return nil
}

func (s *Session) Finish() (Summary, error) {
	if s.State() != Complete {
		return Summary{}, ErrInvalidTransition
	}
	return Summary{Score: percent(s.Correct, s.Total), Correct: s.Correct, Total: s.Total}, nil
}

// Abort discards the attempt. Review data lives elsewhere and is untouched.
func (s *Session) Abort() { *s = Session{} }

func percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
