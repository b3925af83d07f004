package grading

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/mind-engage/denken-trainer/internal/quiz"
)

const (
	heuristicPassScore = 60
	aiPassScore        = 70
)

// Heuristic scores free text by the share of the model answer's distinct
// characters that also appear in the submission. It is a rough
// approximation of coverage, not a semantic grader: word order and meaning
// are ignored entirely.
type Heuristic struct {
	MinLength int // runes, after Normalize
}

func (h Heuristic) Grade(_ context.Context, q quiz.Question, answer string) (quiz.Feedback, error) {
	trimmed := Normalize(answer)
	if utf8.RuneCountInString(trimmed) < h.MinLength {
		return quiz.Feedback{
			Score:        0,
			IsCorrect:    false,
			Feedback:     fmt.Sprintf("回答が短すぎます。最低%d文字以上で記述してください。", h.MinLength),
			Strengths:    []string{},
			Improvements: []string{"より詳しい説明が必要です"},
			Method:       quiz.MethodHeuristic,
		}, nil
	}

	score := int(math.Round(Similarity(trimmed, q.Answer) * 100))
	fb := quiz.Feedback{
		Score:        score,
		IsCorrect:    score >= heuristicPassScore,
		Feedback:     fmt.Sprintf("文字数: %d字。模範解答との類似度: %d点。AI採点を有効にするとより詳細な評価が得られます。", utf8.RuneCountInString(trimmed), score),
		Strengths:    []string{"回答を記述しました"},
		Improvements: []string{},
		Method:       quiz.MethodHeuristic,
	}
	if score < aiPassScore {
		fb.Improvements = []string{"より詳しい説明を心がけましょう"}
	}
	return fb, nil
}

// Similarity is |runes(a) ∩ runes(b)| / |runes(b)| over distinct lowercased
// runes, or 0 when b is empty.
func Similarity(a, b string) float64 {
	want := runeSet(b)
	if len(want) == 0 {
		return 0
	}
	have := runeSet(a)
	shared := 0
	for r := range want {
		if _, ok := have[r]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(want))
}

func runeSet(s string) map[rune]struct{} {
	out := map[rune]struct{}{}
	for _, r := range strings.ToLower(s) {
		out[r] = struct{}{}
	}
	return out
}
