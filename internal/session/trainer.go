package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/grading"
	"github.com/mind-engage/denken-trainer/internal/logger"
	"github.com/mind-engage/denken-trainer/internal/questions"
	"github.com/mind-engage/denken-trainer/internal/quiz"
	"github.com/mind-engage/denken-trainer/internal/review"
)

// PoolSource selects candidate questions for a new session.
type PoolSource interface {
	Pool(ctx context.Context, q questions.PoolQuery) ([]quiz.Question, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, q quiz.Question, answer string) quiz.Feedback
}

// Trainer drives session transitions. It holds no per-session state and is
// safe for concurrent use as long as its shuffle func is.
type Trainer struct {
	pool         PoolSource
	eval         Evaluator
	shuffle      func(n int, swap func(i, j int))
	now          func() time.Time
	defaultCount int
	log          *logger.Logger
}

type Option func(*Trainer)

// WithShuffle replaces the random permutation used for queues and choices.
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(t *Trainer) { t.shuffle = fn }
}
func WithClock(now func() time.Time) Option { return func(t *Trainer) { t.now = now } }
func WithDefaultCount(n int) Option         { return func(t *Trainer) { t.defaultCount = n } }
func WithLogger(l *logger.Logger) Option    { return func(t *Trainer) { t.log = l } }

const (
	DefaultCount = 10
	// MaxCount bounds a queue so its ids fit in the session cookie.
	MaxCount = 50
)

func NewTrainer(pool PoolSource, eval Evaluator, opts ...Option) *Trainer {
	t := &Trainer{
		pool:         pool,
		eval:         eval,
		shuffle:      rand.Shuffle,
		now:          time.Now,
		defaultCount: DefaultCount,
		log:          logger.Nop(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.defaultCount <= 0 {
		t.defaultCount = DefaultCount
	}
	t.log = t.log.With("service", "Trainer")
	return t
}

type StartOptions struct {
	Format   formats.Format
	Category string
	Count    int
	Review   bool
}

// Start builds a fresh session. An empty pool returns ErrEmptyPool and the
// caller stays Idle.
func (t *Trainer) Start(ctx context.Context, opts StartOptions, store review.Store) (Session, error) {
	count := opts.Count
	if count <= 0 {
		count = t.defaultCount
	}
	count = min(count, MaxCount)
	pool, err := t.pool.Pool(ctx, questions.PoolQuery{
		Format:    opts.Format,
		Category:  opts.Category,
		Review:    opts.Review,
		MissedIDs: store.MissedIDs(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("load pool: %w", err)
	}
	if len(pool) == 0 {
		return Session{}, ErrEmptyPool
	}

	t.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > count {
		pool = pool[:count]
	}
	s := Session{
		ID:       uuid.NewString(),
		Format:   opts.Format,
		Category: opts.Category,
		Review:   opts.Review,
		Queue:    pool,
		Total:    len(pool),
	}
	t.log.Debug("session started", "session_id", s.ID, "format", s.Format, "category", s.Category, "review", s.Review, "total", s.Total)
	return s, nil
}

// Submit grades the answer to the current question, records the outcome in
// store and leaves s showing the result.
func (t *Trainer) Submit(ctx context.Context, s *Session, store *review.Store, questionID, answer string) (Result, error) {
	q, ok := s.Current()
	if !ok {
		return Result{}, ErrInvalidTransition
	}
	if questionID != q.ID {
		return Result{}, ErrStaleQuestion
	}

	answer = grading.Normalize(answer)
	fb := t.eval.Evaluate(ctx, q, answer)
	if fb.IsCorrect {
		s.Correct++
		s.Combo++
		store.ClearMissed(q.ID)
	} else {
		s.Combo = 0
		store.AddMissed(q.ID)
	}
	store.AppendLog(review.NewLogEntry(t.now(), q.Category, fb.IsCorrect))

	s.Queue = s.Queue[1:]
	position := s.Total - len(s.Queue)
	res := Result{
		Question:  q,
		IsCorrect: fb.IsCorrect,
		Submitted: answer,
		Canonical: q.Answer,
		Progress:  percent(position, s.Total),
		Position:  position,
	}
	if q.Format.Strategy() == formats.StrategyFreeText {
		res.Feedback = &fb
	}
	s.Pending = &res
	return res, nil
}
