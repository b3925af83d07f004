package questions

import (
	"context"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

// Source produces every question of one format.
type Source interface {
	Load(ctx context.Context, f formats.Format) ([]quiz.Question, error)
}

// Issue describes a source row or file that was skipped.
type Issue struct {
	File   string `json:"file"`
	Row    int    `json:"row"` // -1 for file-level problems
	Reason string `json:"reason"`
}

// Batch is the full outcome of scanning one format's source files.
type Batch struct {
	Format    formats.Format
	Files     []string
	Questions []quiz.Question
	Issues    []Issue
}
