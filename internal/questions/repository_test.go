package questions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

type fakeSource struct {
	mu    sync.Mutex
	calls map[formats.Format]int
	data  map[formats.Format][]quiz.Question
	err   error
}

func (f *fakeSource) Load(_ context.Context, fm formats.Format) ([]quiz.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[formats.Format]int{}
	}
	f.calls[fm]++
	if f.err != nil {
		return nil, f.err
	}
	return f.data[fm], nil
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, formats.Format) ([]quiz.Question, bool, error) {
	return nil, false, errors.New("down")
}
func (brokenCache) Set(context.Context, formats.Format, []quiz.Question) error {
	return errors.New("down")
}

func sampleSource() *fakeSource {
	return &fakeSource{data: map[formats.Format][]quiz.Question{
		formats.Fill: {
			{ID: "f_t_0", Format: formats.Fill, Category: "理論"},
			{ID: "f_t_1", Format: formats.Fill, Category: "変圧器"},
			{ID: "f_t_2", Format: formats.Fill, Category: "照明"},
		},
		formats.OX: {
			{ID: "o_t_0", Format: formats.OX, Category: "理論"},
		},
		formats.Essay: {
			{ID: "e_t_0", Format: formats.Essay, Category: "同期機"},
		},
	}}
}

func TestRepositoryCachesLoads(t *testing.T) {
	src := sampleSource()
	r := NewRepository(src, NewMemoryCache(), nil, nil)
	for i := 0; i < 3; i++ {
		if _, err := r.Load(context.Background(), formats.Fill); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if src.calls[formats.Fill] != 1 {
		t.Fatalf("source called %d times, want 1", src.calls[formats.Fill])
	}
}

func TestRepositoryReturnsCopies(t *testing.T) {
	r := NewRepository(sampleSource(), NewMemoryCache(), nil, nil)
	a, _ := r.Load(context.Background(), formats.Fill)
	a[0], a[2] = a[2], a[0]
	b, _ := r.Load(context.Background(), formats.Fill)
	if b[0].ID != "f_t_0" {
		t.Fatalf("caller reorder leaked into cache: %q", b[0].ID)
	}
}

func TestRepositoryCacheErrorsDegrade(t *testing.T) {
	src := sampleSource()
	r := NewRepository(src, brokenCache{}, nil, nil)
	qs, err := r.Load(context.Background(), formats.OX)
	if err != nil || len(qs) != 1 {
		t.Fatalf("load with broken cache: %v (%d)", err, len(qs))
	}
}

func TestRepositorySourceError(t *testing.T) {
	src := sampleSource()
	src.err = errors.New("disk gone")
	r := NewRepository(src, nil, nil, nil)
	if _, err := r.LoadAll(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRepositoryLoadAll(t *testing.T) {
	r := NewRepository(sampleSource(), nil, nil, nil)
	all, err := r.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 5 || all[0].ID != "f_t_0" || all[4].ID != "e_t_0" {
		t.Fatalf("load all = %+v", all)
	}
}

func TestRepositoryLookup(t *testing.T) {
	src := sampleSource()
	r := NewRepository(src, NewMemoryCache(), nil, nil)
	got, err := r.Lookup(context.Background(), []string{"f_t_1", "e_t_0", "f_gone_9", "junk"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(got) != 2 || got["f_t_1"].Category != "変圧器" || got["e_t_0"].Format != formats.Essay {
		t.Fatalf("lookup = %+v", got)
	}
	if src.calls[formats.OX] != 0 {
		t.Fatalf("unneeded format loaded")
	}
}

func TestRepositoryPool(t *testing.T) {
	r := NewRepository(sampleSource(), NewMemoryCache(), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		q    PoolQuery
		want []string
	}{
		{"all", PoolQuery{Format: formats.Fill, Category: "すべて"}, []string{"f_t_0", "f_t_1", "f_t_2"}},
		{"empty filter", PoolQuery{Format: formats.Fill}, []string{"f_t_0", "f_t_1", "f_t_2"}},
		{"topic", PoolQuery{Format: formats.Fill, Category: "変圧器"}, []string{"f_t_1"}},
		{"group", PoolQuery{Format: formats.Fill, Category: "機械"}, []string{"f_t_1", "f_t_2"}},
		{"no match", PoolQuery{Format: formats.OX, Category: "照明"}, nil},
		{"review", PoolQuery{Review: true, Category: "照明", MissedIDs: []string{"e_t_0", "f_t_0", "x_1"}}, []string{"f_t_0", "e_t_0"}},
		{"review empty", PoolQuery{Review: true}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Pool(ctx, tc.q)
			if err != nil {
				t.Fatalf("pool: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("pool = %+v, want %v", got, tc.want)
			}
			for i, id := range tc.want {
				if got[i].ID != id {
					t.Fatalf("pool[%d] = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

type ctxSource struct{ qs []quiz.Question }

func (c ctxSource) Load(ctx context.Context, _ formats.Format) ([]quiz.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.qs, nil
}

func TestRepositoryLoadIgnoresCallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cache := NewMemoryCache()
	repo := NewRepository(ctxSource{qs: []quiz.Question{{ID: "f_a_0"}}}, cache, nil, nil)

	qs, err := repo.Load(ctx, formats.Fill)
	if err != nil || len(qs) != 1 {
		t.Fatalf("load = %v, %v", qs, err)
	}
	if _, ok, _ := cache.Get(context.Background(), formats.Fill); !ok {
		t.Fatal("loaded questions were not cached")
	}
}
