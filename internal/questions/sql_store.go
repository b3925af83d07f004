package questions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

// SQLStore is a question bank imported from CSV into sqlite or postgres.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// PutQuestions upserts questions, keeping their slice order for later loads.
func (s *SQLStore) PutQuestions(ctx context.Context, qs []quiz.Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for i, q := range qs {
		dj, err := json.Marshal(nonNil(q.Distractors))
		if err != nil {
			return err
		}
		kj, err := json.Marshal(nonNil(q.Keywords))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO questions
			(id,format,category,prompt,answer,explanation,distractors_json,keywords_json,position,imported_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (id) DO UPDATE SET format=EXCLUDED.format, category=EXCLUDED.category,
			  prompt=EXCLUDED.prompt, answer=EXCLUDED.answer, explanation=EXCLUDED.explanation,
			  distractors_json=EXCLUDED.distractors_json, keywords_json=EXCLUDED.keywords_json,
			  position=EXCLUDED.position, imported_at=EXCLUDED.imported_at`,
			q.ID, string(q.Format), q.Category, q.Prompt, q.Answer, q.Explanation, string(dj), string(kj), i, now)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Load(ctx context.Context, f formats.Format) ([]quiz.Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,format,category,prompt,answer,explanation,distractors_json,keywords_json
		FROM questions WHERE format=$1 ORDER BY position, id`, string(f))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []quiz.Question
	for rows.Next() {
		var (
			q      quiz.Question
			format string
			dj, kj string
		)
		if err := rows.Scan(&q.ID, &format, &q.Category, &q.Prompt, &q.Answer, &q.Explanation, &dj, &kj); err != nil {
			return nil, err
		}
		q.Format = formats.Format(format)
		// a bad JSON column only loses the extras, not the question
		if err := json.Unmarshal([]byte(dj), &q.Distractors); err != nil {
			q.Distractors = nil
		}
		if err := json.Unmarshal([]byte(kj), &q.Keywords); err != nil {
			q.Keywords = nil
		}
		if len(q.Distractors) == 0 {
			q.Distractors = nil
		}
		if len(q.Keywords) == 0 {
			q.Keywords = nil
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Count returns the number of stored questions per format.
func (s *SQLStore) Count(ctx context.Context) (map[formats.Format]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT format, COUNT(*) FROM questions GROUP BY format`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[formats.Format]int{}
	for rows.Next() {
		var f string
		var n int
		if err := rows.Scan(&f, &n); err != nil {
			return nil, err
		}
		out[formats.Format(f)] = n
	}
	return out, rows.Err()
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
