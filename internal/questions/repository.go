package questions

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mind-engage/denken-trainer/internal/categories"
	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/logger"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

// Repository is the read path for questions: a Source behind a read-through cache.
type Repository struct {
	src     Source
	cache   Cache
	catalog *categories.Catalog
	log     *logger.Logger
	group   singleflight.Group
}

func NewRepository(src Source, cache Cache, catalog *categories.Catalog, log *logger.Logger) *Repository {
	if cache == nil {
		cache = NoCache()
	}
	if catalog == nil {
		catalog = categories.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Repository{src: src, cache: cache, catalog: catalog, log: log.With("service", "QuestionRepository")}
}

// Load returns a fresh slice of every question of format f. Callers may
// reorder the slice; the questions themselves are shared and read-only.
func (r *Repository) Load(ctx context.Context, f formats.Format) ([]quiz.Question, error) {
	qs, ok, err := r.cache.Get(ctx, f)
	if err != nil {
		r.log.Warn("question cache read failed", "format", f, "error", err)
	}
	if ok {
		return clone(qs), nil
	}

	// the flight is shared, so one caller's cancellation must not fail the rest
	fctx := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(string(f), func() (interface{}, error) {
		loaded, err := r.src.Load(fctx, f)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(fctx, f, loaded); err != nil {
			r.log.Warn("question cache write failed", "format", f, "error", err)
		}
		r.log.Debug("questions loaded", "format", f, "count", len(loaded))
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]quiz.Question)), nil
}

// LoadAll loads every format concurrently, concatenated in format order.
func (r *Repository) LoadAll(ctx context.Context) ([]quiz.Question, error) {
	all := formats.All()
	parts := make([][]quiz.Question, len(all))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range all {
		g.Go(func() error {
			qs, err := r.Load(gctx, f)
			parts[i] = qs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []quiz.Question
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

// Lookup resolves question ids; unknown ids are absent from the result.
func (r *Repository) Lookup(ctx context.Context, ids []string) (map[string]quiz.Question, error) {
	wanted := map[formats.Format]bool{}
	for _, id := range ids {
		if f, ok := formats.FromID(id); ok {
			wanted[f] = true
		}
	}
	out := make(map[string]quiz.Question, len(ids))
	if len(wanted) == 0 {
		return out, nil
	}
	need := map[string]bool{}
	for _, id := range ids {
		need[id] = true
	}
	for _, f := range formats.All() {
		if !wanted[f] {
			continue
		}
		qs, err := r.Load(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, q := range qs {
			if need[q.ID] {
				out[q.ID] = q
			}
		}
	}
	return out, nil
}

// PoolQuery selects the candidate questions for a study session.
type PoolQuery struct {
	Format    formats.Format
	Category  string
	Review    bool
	MissedIDs []string
}

// Pool returns the candidates for q. Review pools span every format and
// ignore the category filter.
func (r *Repository) Pool(ctx context.Context, q PoolQuery) ([]quiz.Question, error) {
	if q.Review {
		if len(q.MissedIDs) == 0 {
			return nil, nil
		}
		all, err := r.LoadAll(ctx)
		if err != nil {
			return nil, err
		}
		missed := make(map[string]bool, len(q.MissedIDs))
		for _, id := range q.MissedIDs {
			missed[id] = true
		}
		out := all[:0]
		for _, item := range all {
			if missed[item.ID] {
				out = append(out, item)
			}
		}
		return out, nil
	}

	qs, err := r.Load(ctx, q.Format)
	if err != nil {
		return nil, err
	}
	if r.catalog.IsAll(q.Category) {
		return qs, nil
	}
	out := qs[:0]
	for _, item := range qs {
		if r.catalog.Matches(q.Category, item.Category) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Catalog exposes the category catalog used for filtering.
func (r *Repository) Catalog() *categories.Catalog { return r.catalog }

func clone(qs []quiz.Question) []quiz.Question {
	out := make([]quiz.Question, len(qs))
	copy(out, qs)
	return out
}
