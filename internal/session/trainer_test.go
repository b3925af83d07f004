package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/grading"
	"github.com/mind-engage/denken-trainer/internal/questions"
	"github.com/mind-engage/denken-trainer/internal/quiz"
	"github.com/mind-engage/denken-trainer/internal/review"
)

type fakePool struct {
	qs   []quiz.Question
	err  error
	last questions.PoolQuery
}

func (f *fakePool) Pool(_ context.Context, q questions.PoolQuery) ([]quiz.Question, error) {
	f.last = q
	if f.err != nil {
		return nil, f.err
	}
	out := make([]quiz.Question, len(f.qs))
	copy(out, f.qs)
	return out, nil
}

func noShuffle(int, func(i, j int)) {}

func reverse(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

var fixedNow = time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

func theoryPool() []quiz.Question {
	return []quiz.Question{
		{ID: "f_t_0", Format: formats.Fill, Category: "理論", Prompt: "抵抗の単位はオーム", Answer: "オーム", Distractors: []string{"ボルト"}},
		{ID: "f_t_1", Format: formats.Fill, Category: "理論", Prompt: "電圧の単位はボルト", Answer: "ボルト"},
		{ID: "f_t_2", Format: formats.Fill, Category: "理論", Prompt: "電流の単位はアンペア", Answer: "アンペア"},
	}
}

func newTrainer(pool *fakePool, opts ...Option) *Trainer {
	opts = append([]Option{WithShuffle(noShuffle), WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewTrainer(pool, grading.NewEvaluator(), opts...)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	tr := newTrainer(&fakePool{qs: theoryPool()})
	var store review.Store

	s, err := tr.Start(ctx, StartOptions{Format: formats.Fill, Category: "理論", Count: 10}, store)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Total != 3 || len(s.Queue) != 3 || s.State() != ShowingQuestion || s.ID == "" {
		t.Fatalf("started session = %+v", s)
	}

	answers := []string{"オーム", "ボルト", "間違い"}
	for i, ans := range answers {
		q, ok := s.Current()
		if !ok {
			t.Fatalf("no current question at step %d", i)
		}
		res, err := tr.Submit(ctx, &s, &store, q.ID, ans)
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if res.Position != i+1 {
			t.Fatalf("position = %d, want %d", res.Position, i+1)
		}
		if want := []int{33, 67, 100}[i]; res.Progress != want {
			t.Fatalf("progress = %d, want %d", res.Progress, want)
		}
		if s.State() != ShowingResult {
			t.Fatalf("state after submit = %v", s.State())
		}
		if _, err := s.Finish(); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("finish while showing result: %v", err)
		}
		if err := s.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	if s.State() != Complete {
		t.Fatalf("state = %v, want complete", s.State())
	}
	sum, err := s.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if sum != (Summary{Score: 67, Correct: 2, Total: 3}) {
		t.Fatalf("summary = %+v", sum)
	}
	if s.Combo != 0 {
		t.Fatalf("combo = %d after a miss", s.Combo)
	}
	if !store.IsMissed("f_t_2") || store.MissedCount() != 1 {
		t.Fatalf("missed = %v", store.MissedIDs())
	}
	logs := store.Logs()
	if len(logs) != 3 || logs[0].Date != "06/01" || !logs[0].Correct || logs[2].Correct {
		t.Fatalf("logs = %+v", logs)
	}
}

func TestStartTruncatesAndDefaults(t *testing.T) {
	var pool []quiz.Question
	for i := 0; i < 25; i++ {
		pool = append(pool, quiz.Question{ID: "o_x_" + string(rune('a'+i)), Format: formats.OX, Answer: "○"})
	}
	tr := newTrainer(&fakePool{qs: pool})
	s, err := tr.Start(context.Background(), StartOptions{Format: formats.OX, Count: 20}, review.Store{})
	if err != nil || s.Total != 20 {
		t.Fatalf("count 20: total=%d err=%v", s.Total, err)
	}
	s, err = tr.Start(context.Background(), StartOptions{Format: formats.OX}, review.Store{})
	if err != nil || s.Total != DefaultCount {
		t.Fatalf("default count: total=%d err=%v", s.Total, err)
	}
}

func TestStartEmptyPool(t *testing.T) {
	tr := newTrainer(&fakePool{})
	s, err := tr.Start(context.Background(), StartOptions{Format: formats.Fill, Category: "照明"}, review.Store{})
	if !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("err = %v", err)
	}
	if s.State() != Idle {
		t.Fatalf("state = %v", s.State())
	}
}

func TestStartPoolError(t *testing.T) {
	tr := newTrainer(&fakePool{err: errors.New("disk")})
	if _, err := tr.Start(context.Background(), StartOptions{Format: formats.Fill}, review.Store{}); err == nil || errors.Is(err, ErrEmptyPool) {
		t.Fatalf("err = %v", err)
	}
}

func TestStartReviewPassesMissedIDs(t *testing.T) {
	pool := &fakePool{qs: theoryPool()[:1]}
	tr := newTrainer(pool)
	var store review.Store
	store.AddMissed("f_t_0")
	if _, err := tr.Start(context.Background(), StartOptions{Review: true}, store); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !pool.last.Review || len(pool.last.MissedIDs) != 1 || pool.last.MissedIDs[0] != "f_t_0" {
		t.Fatalf("query = %+v", pool.last)
	}
}

func TestStartShuffles(t *testing.T) {
	tr := newTrainer(&fakePool{qs: theoryPool()}, WithShuffle(reverse))
	s, _ := tr.Start(context.Background(), StartOptions{Format: formats.Fill, Count: 2}, review.Store{})
	if s.Total != 2 || s.Queue[0].ID != "f_t_2" || s.Queue[1].ID != "f_t_1" {
		t.Fatalf("queue = %+v", s.Queue)
	}
}

func TestMissedListAcrossModes(t *testing.T) {
	ctx := context.Background()
	x := quiz.Question{ID: "o_x_0", Format: formats.OX, Category: "変圧器", Answer: "○"}
	tr := newTrainer(&fakePool{qs: []quiz.Question{x}})
	var store review.Store

	for i := 0; i < 3; i++ {
		s, _ := tr.Start(ctx, StartOptions{Format: formats.OX}, store)
		if _, err := tr.Submit(ctx, &s, &store, x.ID, "×"); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if store.MissedCount() != 1 || !store.IsMissed(x.ID) {
		t.Fatalf("missed after repeated misses = %v", store.MissedIDs())
	}

	s, _ := tr.Start(ctx, StartOptions{Format: formats.OX}, store)
	if _, err := tr.Submit(ctx, &s, &store, x.ID, "○"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if store.IsMissed(x.ID) {
		t.Fatalf("correct answer outside review mode kept %q", x.ID)
	}
}

func TestSubmitGuards(t *testing.T) {
	ctx := context.Background()
	tr := newTrainer(&fakePool{qs: theoryPool()})
	var store review.Store

	var idle Session
	if _, err := tr.Submit(ctx, &idle, &store, "f_t_0", "x"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("submit on idle: %v", err)
	}
	if err := idle.Advance(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("advance on idle: %v", err)
	}

	s, _ := tr.Start(ctx, StartOptions{Format: formats.Fill}, store)
	if _, err := tr.Submit(ctx, &s, &store, "f_t_1", "ボルト"); !errors.Is(err, ErrStaleQuestion) {
		t.Fatalf("stale submit: %v", err)
	}
	if s.Total != 3 || len(s.Queue) != 3 || store.MissedCount() != 0 {
		t.Fatalf("stale submit mutated state")
	}
	if _, err := tr.Submit(ctx, &s, &store, "f_t_0", "オーム"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := tr.Submit(ctx, &s, &store, "f_t_1", "ボルト"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double submit: %v", err)
	}

	s.Abort()
	if s.State() != Idle || store.MissedCount() != 0 || len(store.Logs()) != 1 {
		t.Fatalf("abort: state=%v logs=%d", s.State(), len(store.Logs()))
	}
}

func TestFinishEmpty(t *testing.T) {
	s := Session{}
	if _, err := s.Finish(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("finish on idle: %v", err)
	}
	if percent(1, 0) != 0 {
		t.Fatalf("percent with zero total")
	}
}

func TestEssayResultCarriesFeedback(t *testing.T) {
	ctx := context.Background()
	q := quiz.Question{ID: "e_x_0", Format: formats.Essay, Category: "同期機", Answer: "同期発電機は回転子の界磁と固定子の電機子巻線で構成される。"}
	tr := newTrainer(&fakePool{qs: []quiz.Question{q}})
	var store review.Store
	s, _ := tr.Start(ctx, StartOptions{Format: formats.Essay}, store)
	res, err := tr.Submit(ctx, &s, &store, q.ID, q.Answer)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Feedback == nil || res.Feedback.Score != 100 || !res.IsCorrect {
		t.Fatalf("result = %+v", res)
	}
}

func TestSubmitStripsLineBreaks(t *testing.T) {
	ctx := context.Background()
	q := quiz.Question{ID: "e_x_1", Format: formats.Essay, Category: "変圧器", Answer: "変圧器の損失には鉄損と銅損がある。"}
	tr := newTrainer(&fakePool{qs: []quiz.Question{q}})
	var store review.Store
	s, _ := tr.Start(ctx, StartOptions{Format: formats.Essay}, store)

	// 19 runes once the line breaks are gone
	res, err := tr.Submit(ctx, &s, &store, q.ID, "  変圧器の損失には\r\n鉄損と銅損が\nあります。\n")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Submitted != "変圧器の損失には鉄損と銅損があります。" {
		t.Fatalf("submitted = %q", res.Submitted)
	}
	if res.Feedback == nil || res.Feedback.Score != 0 || !strings.Contains(res.Feedback.Feedback, "短すぎます") {
		t.Fatalf("feedback = %+v", res.Feedback)
	}
}
