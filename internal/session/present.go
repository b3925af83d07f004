package session

import (
	"strconv"
	"strings"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

const (
	BlankMarker = " 【 ? 】 "
	minChoices  = 4
	placeholder = "選択肢_"
)

// QuestionView is what the study page shows before an answer.
type QuestionView struct {
	Question quiz.Question
	Prompt   string   // masked for fill questions
	Choices  []string // nil for free text
	Position int
	Total    int
	Progress int
	Combo    int
	Review   bool
}

// ResultView is what the study page shows after an answer.
type ResultView struct {
	Result
	Total  int
	Combo  int
	Review bool
	Last   bool
}

// View is the study page for the session's current state.
type View struct {
	State    State
	Question *QuestionView
	Result   *ResultView
}

func (t *Trainer) View(s *Session) View {
	v := View{State: s.State()}
	switch v.State {
	case ShowingQuestion:
		q := s.Queue[0]
		position := s.Total - len(s.Queue) + 1
		qv := &QuestionView{
			Question: q,
			Prompt:   q.Prompt,
			Position: position,
			Total:    s.Total,
			Progress: percent(position-1, s.Total),
			Combo:    s.Combo,
			Review:   s.Review,
		}
		if q.Format.MultipleChoice() {
			qv.Prompt = MaskPrompt(q.Prompt, q.Answer)
		}
		qv.Choices = t.ChoicesFor(q)
		v.Question = qv
	case ShowingResult:
		v.Result = &ResultView{
			Result: *s.Pending,
			Total:  s.Total,
			Combo:  s.Combo,
			Review: s.Review,
			Last:   len(s.Queue) == 0,
		}
	}
	return v
}

// MaskPrompt blanks the answer out of the prompt when it appears verbatim.
func MaskPrompt(prompt, answer string) string {
	if answer == "" || !strings.Contains(prompt, answer) {
		return prompt
	}
	return strings.ReplaceAll(prompt, answer, BlankMarker)
}

// Choices returns the shuffled option set for a multiple-choice question:
// the answer once, each distinct distractor, and placeholders up to four.
// Placeholders never equal the answer.
func (t *Trainer) Choices(q quiz.Question) []string {
	answer := strings.TrimSpace(q.Answer)
	out := []string{answer}
	seen := map[string]bool{answer: true}
	for _, d := range q.Distractors {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	for n := len(out); len(out) < minChoices; n++ {
		p := placeholder + strconv.Itoa(n)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	t.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// ChoicesFor returns the options to render for q, or nil for free text.
func (t *Trainer) ChoicesFor(q quiz.Question) []string {
	switch q.Format {
	case formats.Fill:
		return t.Choices(q)
	case formats.OX:
		return []string{"○", "×"}
	}
	return nil
}
