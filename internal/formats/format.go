package formats

import "strings"

// Format is a question presentation/grading style.
type Format string

const (
	Fill  Format = "fill"  // fill-in-the-blank, multiple choice
	OX    Format = "ox"    // true/false
	Essay Format = "essay" // free text
)

// Strategy names the grading family a format belongs to.
type Strategy string

const (
	StrategyExact    Strategy = "exact"
	StrategyFreeText Strategy = "free_text"
)

type entry struct {
	prefix   string
	folder   string
	fallback string // folder used when folder has no source files
	strategy Strategy
}

var registry = map[Format]entry{
	Fill:  {prefix: "f", folder: "taku4", strategy: StrategyExact},
	OX:    {prefix: "o", folder: "normal", strategy: StrategyExact},
	Essay: {prefix: "e", folder: "essay", fallback: "normal", strategy: StrategyFreeText},
}

// All lists formats in display order.
func All() []Format { return []Format{Fill, OX, Essay} }

// Parse accepts a format tag in any case.
func Parse(s string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	_, ok := registry[f]
	return f, ok
}

// FromID recovers the format from a question id ("f_...", "o_...", "e_...").
func FromID(id string) (Format, bool) {
	head, _, ok := strings.Cut(id, "_")
	if !ok {
		return "", false
	}
	for f, s := range registry {
		if s.prefix == head {
			return f, true
		}
	}
	return "", false
}

func (f Format) Valid() bool {
	_, ok := registry[f]
	return ok
}

func (f Format) Prefix() string     { return registry[f].prefix }
func (f Format) Folder() string     { return registry[f].folder }
func (f Format) Fallback() string   { return registry[f].fallback }
func (f Format) Strategy() Strategy { return registry[f].strategy }

// MultipleChoice reports whether the format is shown with a choice set.
func (f Format) MultipleChoice() bool { return f == Fill }

func (f Format) String() string { return string(f) }
