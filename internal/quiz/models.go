package quiz

import "github.com/mind-engage/denken-trainer/internal/formats"

// DefaultExplanation fills in when a source row has no explanation column.
const DefaultExplanation = "解説はありません。"

type Question struct {
	ID          string         `json:"id"`
	Format      formats.Format `json:"format"`
	Category    string         `json:"category"`
	Prompt      string         `json:"prompt"`
	Answer      string         `json:"answer"`
	Explanation string         `json:"explanation"`
	Distractors []string       `json:"distractors,omitempty"` // fill only
	Keywords    []string       `json:"keywords,omitempty"`    // essay only
}

// HasExplanation is false for the placeholder text.
func (q Question) HasExplanation() bool {
	return q.Explanation != "" && q.Explanation != DefaultExplanation
}

// Grading methods recorded on Feedback.
const (
	MethodExact     = "exact"
	MethodAI        = "ai"
	MethodHeuristic = "heuristic"
)

// Feedback is the evaluator's verdict for one answer.
type Feedback struct {
	Score        int      `json:"score"` // 0..100
	IsCorrect    bool     `json:"is_correct"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Method       string   `json:"method,omitempty"`
}
