package grading

import (
	"context"
	"time"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/logger"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

// Strategy grades one answer. An error means the strategy could not reach
// a verdict; the Evaluator then falls back.
type Strategy interface {
	Grade(ctx context.Context, q quiz.Question, answer string) (quiz.Feedback, error)
}

// Evaluator routes by the question's format to the matching Strategy and
// always returns a verdict.
type Evaluator struct {
	strategies map[formats.Strategy]Strategy
	heuristic  Heuristic
	aiEnabled  bool
	log        *logger.Logger
}

type Option func(*config)

type config struct {
	completer      Completer
	timeout        time.Duration
	minEssayLength int
	log            *logger.Logger
}

// WithCompleter enables AI grading of free-text answers.
func WithCompleter(c Completer) Option   { return func(cfg *config) { cfg.completer = c } }
func WithTimeout(d time.Duration) Option { return func(cfg *config) { cfg.timeout = d } }
func WithMinEssayLength(n int) Option    { return func(cfg *config) { cfg.minEssayLength = n } }
func WithLogger(l *logger.Logger) Option { return func(cfg *config) { cfg.log = l } }

const (
	DefaultTimeout        = 30 * time.Second
	DefaultMinEssayLength = 20
)

func NewEvaluator(opts ...Option) *Evaluator {
	cfg := &config{
		timeout:        DefaultTimeout,
		minEssayLength: DefaultMinEssayLength,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Nop()
	}
	log := cfg.log.With("service", "Evaluator")

	h := Heuristic{MinLength: cfg.minEssayLength}
	var free Strategy = h
	if cfg.completer != nil {
		free = &AIGrader{completer: cfg.completer, timeout: cfg.timeout}
	}
	return &Evaluator{
		strategies: map[formats.Strategy]Strategy{
			formats.StrategyExact:    exactStrategy{},
			formats.StrategyFreeText: free,
		},
		heuristic: h,
		aiEnabled: cfg.completer != nil,
		log:       log,
	}
}

// AIEnabled reports whether free-text answers go to the AI grader first.
func (e *Evaluator) AIEnabled() bool { return e.aiEnabled }

func (e *Evaluator) Evaluate(ctx context.Context, q quiz.Question, answer string) quiz.Feedback {
	strategy := q.Format.Strategy()
	s, ok := e.strategies[strategy]
	if !ok {
		s = exactStrategy{}
	}
	fb, err := s.Grade(ctx, q, answer)
	if err == nil {
		return fb
	}
	e.log.Warn("grading failed, using heuristic", "question_id", q.ID, "strategy", strategy, "error", err)
	fb, _ = e.heuristic.Grade(ctx, q, answer)
	return fb
}
