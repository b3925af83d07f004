// Package review holds the client-persisted missed-question list and
// activity log, and the cookie codec that carries them.
package review

import (
	"time"

	"github.com/mind-engage/denken-trainer/internal/categories"
)

const (
	// CAP bounds the activity log on every write.
	CAP = 200
	// MaxEncodedBytes keeps the cookie value under common 4KB header limits.
	MaxEncodedBytes = 3800
)

// Location is the fixed timezone log dates are recorded in.
var Location = time.FixedZone("JST", 9*60*60)

const dateLayout = "01/02"

type LogEntry struct {
	Date     string `json:"date"` // MM/DD in Location
	Category string `json:"cat"`
	Correct  bool   `json:"correct"`
}

// NewLogEntry stamps an answer outcome with today's date in Location.
func NewLogEntry(now time.Time, category string, correct bool) LogEntry {
	return LogEntry{Date: DateLabel(now), Category: category, Correct: correct}
}

// DateLabel formats t as the MM/DD label used by log entries.
func DateLabel(t time.Time) string { return t.In(Location).Format(dateLayout) }

// Store is the review list plus activity log. The zero value is empty and
// ready to use. Missed ids keep first-miss order and never repeat.
type Store struct {
	missed []string
	logs   []LogEntry
}

func (s *Store) AddMissed(id string) {
	if id == "" || s.IsMissed(id) {
		return
	}
	s.missed = append(s.missed, id)
}

func (s *Store) ClearMissed(id string) {
	out := make([]string, 0, len(s.missed))
	for _, m := range s.missed {
		if m != id {
			out = append(out, m)
		}
	}
	s.missed = out
}

// AppendLog adds e and drops the oldest entries beyond CAP.
func (s *Store) AppendLog(e LogEntry) {
	s.logs = append(s.logs, e)
	s.logs = capLogs(s.logs)
}

func (s Store) MissedCount() int { return len(s.missed) }

func (s Store) IsMissed(id string) bool {
	for _, m := range s.missed {
		if m == id {
			return true
		}
	}
	return false
}

func (s Store) MissedIDs() []string {
	out := make([]string, len(s.missed))
	copy(out, s.missed)
	return out
}

// Logs returns the activity log, oldest first.
func (s Store) Logs() []LogEntry {
	out := make([]LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// Filter returns entries for date (MM/DD) and category. An empty date or
// category matches everything.
func (s Store) Filter(date, category string) []LogEntry {
	var out []LogEntry
	for _, e := range s.logs {
		if date != "" && e.Date != date {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		out = append(out, e)
	}
	return out
}

type DayCount struct {
	Label string
	Count int
}

// DailyCounts counts answers per day over the last days days ending at now,
// oldest first. category is matched through catalog, so a group name or the
// all-label works as a chart filter.
func (s Store) DailyCounts(now time.Time, days int, category string, catalog *categories.Catalog) []DayCount {
	if days <= 0 {
		return nil
	}
	if catalog == nil {
		catalog = categories.Default()
	}
	today := now.In(Location)
	out := make([]DayCount, 0, days)
	idx := make(map[string]int, days)
	for i := days - 1; i >= 0; i-- {
		label := today.AddDate(0, 0, -i).Format(dateLayout)
		idx[label] = len(out)
		out = append(out, DayCount{Label: label})
	}
	for _, e := range s.logs {
		i, ok := idx[e.Date]
		if !ok || !catalog.Matches(category, e.Category) {
			continue
		}
		out[i].Count++
	}
	return out
}

func capLogs(logs []LogEntry) []LogEntry {
	if len(logs) <= CAP {
		return logs
	}
	out := make([]LogEntry, CAP)
	copy(out, logs[len(logs)-CAP:])
	return out
}
