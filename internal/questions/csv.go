package questions

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/logger"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

const (
	minColumns   = 3
	maxFillDummy = 3 // columns 5..7
	utf8BOM      = "\ufeff"
)

// CSVSource reads <folder>/**/*.csv files for each format from fsys.
type CSVSource struct {
	fsys fs.FS
	log  *logger.Logger
}

func NewCSVSource(fsys fs.FS, log *logger.Logger) *CSVSource {
	if log == nil {
		log = logger.Nop()
	}
	return &CSVSource{fsys: fsys, log: log.With("service", "CSVSource")}
}

// NewCSVDir reads from a directory on disk.
func NewCSVDir(dir string, log *logger.Logger) *CSVSource {
	return NewCSVSource(os.DirFS(dir), log)
}

func (s *CSVSource) Load(ctx context.Context, f formats.Format) ([]quiz.Question, error) {
	b, err := s.Scan(ctx, f)
	if err != nil {
		return nil, err
	}
	return b.Questions, nil
}

// Scan loads a format and reports every skipped row and unreadable file.
// Bad rows and files never fail the batch.
func (s *CSVSource) Scan(ctx context.Context, f formats.Format) (Batch, error) {
	if !f.Valid() {
		return Batch{}, fmt.Errorf("unknown format %q", f)
	}
	b := Batch{Format: f}
	b.Files = s.files(f.Folder())
	if len(b.Files) == 0 && f.Fallback() != "" {
		b.Files = s.files(f.Fallback())
	}
	for _, p := range b.Files {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		s.readFile(f, p, &b)
	}
	for _, is := range b.Issues {
		s.log.Warn("skipped csv row", "format", f, "file", is.File, "row", is.Row, "reason", is.Reason)
	}
	return b, nil
}

func (s *CSVSource) files(folder string) []string {
	var out []string
	_ = fs.WalkDir(s.fsys, folder, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// missing folder or unreadable subtree: nothing to load there
			return fs.SkipDir
		}
		if !d.IsDir() && strings.EqualFold(path.Ext(p), ".csv") {
			out = append(out, p)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

func (s *CSVSource) readFile(f formats.Format, p string, b *Batch) {
	fh, err := s.fsys.Open(p)
	if err != nil {
		b.Issues = append(b.Issues, Issue{File: p, Row: -1, Reason: err.Error()})
		return
	}
	defer fh.Close()

	short := shortName(p)
	r := csv.NewReader(fh)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	for row := 0; ; row++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				b.Issues = append(b.Issues, Issue{File: p, Row: row, Reason: pe.Err.Error()})
				continue
			}
			b.Issues = append(b.Issues, Issue{File: p, Row: row, Reason: err.Error()})
			return
		}
		if row == 0 && len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], utf8BOM)
		}
		q, reason := buildQuestion(f, short, row, rec)
		if reason != "" {
			b.Issues = append(b.Issues, Issue{File: p, Row: row, Reason: reason})
			continue
		}
		b.Questions = append(b.Questions, q)
	}
}

// QuestionID is stable for a given format, file, and zero-based row index.
func QuestionID(f formats.Format, short string, row int) string {
	return f.Prefix() + "_" + short + "_" + strconv.Itoa(row)
}

func shortName(p string) string {
	base := path.Base(p)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.ReplaceAll(base, "ox_", "")
	base = strings.ReplaceAll(base, "normal_", "")
	return base
}

func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "")
}

// buildQuestion returns a non-empty reason when the row must be skipped.
func buildQuestion(f formats.Format, short string, row int, rec []string) (quiz.Question, string) {
	if len(rec) < minColumns {
		return quiz.Question{}, fmt.Sprintf("expected at least %d columns, got %d", minColumns, len(rec))
	}
	cells := make([]string, len(rec))
	for i, c := range rec {
		cells[i] = cleanCell(c)
	}
	if cells[0] == "" || cells[1] == "" || cells[2] == "" {
		return quiz.Question{}, "category, prompt and answer are required"
	}

	q := quiz.Question{
		ID:          QuestionID(f, short, row),
		Format:      f,
		Category:    cells[0],
		Prompt:      cells[1],
		Answer:      cells[2],
		Explanation: quiz.DefaultExplanation,
	}
	if len(cells) > 3 && cells[3] != "" {
		q.Explanation = cells[3]
	}

	switch f {
	case formats.Fill:
		if len(cells) > 4 {
			end := 4 + maxFillDummy
			if end > len(cells) {
				end = len(cells)
			}
			q.Distractors = distractors(cells[4:end], q.Answer)
		}
	case formats.Essay:
		for _, kw := range cells[min(4, len(cells)):] {
			if kw != "" {
				q.Keywords = append(q.Keywords, kw)
			}
		}
	}
	return q, ""
}

func distractors(raw []string, answer string) []string {
	out := make([]string, 0, len(raw))
	seen := map[string]bool{}
	for _, d := range raw {
		if d == "" || d == answer || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
