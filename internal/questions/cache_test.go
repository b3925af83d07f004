package questions

import (
	"context"
	"testing"
	"time"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if _, ok, err := c.Get(ctx, formats.Fill); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	want := []quiz.Question{{ID: "f_a_1", Prompt: "p"}}
	if err := c.Set(ctx, formats.Fill, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(ctx, formats.Fill)
	if !ok || err != nil || len(got) != 1 || got[0].ID != "f_a_1" {
		t.Fatalf("got %v ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := c.Get(ctx, formats.OX); ok {
		t.Fatal("other format should miss")
	}
}

func TestNoCacheAlwaysMisses(t *testing.T) {
	c := NoCache()
	_ = c.Set(context.Background(), formats.Fill, []quiz.Question{{ID: "x"}})
	if _, ok, _ := c.Get(context.Background(), formats.Fill); ok {
		t.Fatal("no-cache hit")
	}
}

func TestRedisCacheRequiresAddress(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "", time.Minute); err == nil {
		t.Fatal("expected error for empty address")
	}
}
