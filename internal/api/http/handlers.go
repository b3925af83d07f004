package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/denken-trainer/internal/categories"
	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/logger"
	"github.com/mind-engage/denken-trainer/internal/review"
	"github.com/mind-engage/denken-trainer/internal/session"
)

// Deps is everything the trainer handlers need.
type Deps struct {
	Trainer      *session.Trainer
	Codec        *session.Codec
	Renderer     *Renderer
	Catalog      *categories.Catalog
	Ready        func(ctx context.Context) error
	AIEnabled    bool
	ExamDate     time.Time
	DefaultCount int
	CookieSecure bool
	Now          func() time.Time
	Log          *logger.Logger
}

const chartDays = 7

// Mount registers the trainer routes on r.
func Mount(r chi.Router, d *Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Catalog == nil {
		d.Catalog = categories.Default()
	}
	r.Get("/", HomeHandler(d))
	r.Get("/home", AbortHandler(d))
	r.Post("/start_study", StartStudyHandler(d))
	r.Get("/study", StudyHandler(d))
	r.Post("/answer/{question_id}", AnswerHandler(d))
	r.Get("/next_question", NextQuestionHandler(d))
	r.Get("/result", ResultHandler(d))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", ReadyHandler(d))
}

type homePage struct {
	DaysLeft      int
	MissedCount   int
	ReviewCount   int
	AIEnabled     bool
	Formats       []formats.Format
	AllLabel      string
	Groups        []string
	Categories    []string
	ChartCategory string
	ChartTitle    string
	ChartLabels   []string
	ChartValues   []int
}

func HomeHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := review.FromRequest(r)
		now := d.Now()

		chartCat := strings.TrimSpace(r.URL.Query().Get("chart_cat"))
		if chartCat == "" {
			chartCat = d.Catalog.AllLabel
		}
		page := homePage{
			DaysLeft:      daysUntil(now, d.ExamDate),
			MissedCount:   store.MissedCount(),
			ReviewCount:   min(store.MissedCount(), session.MaxCount),
			AIEnabled:     d.AIEnabled,
			Formats:       formats.All(),
			AllLabel:      d.Catalog.AllLabel,
			Groups:        d.Catalog.GroupNames(),
			Categories:    d.Catalog.All(),
			ChartCategory: chartCat,
			ChartTitle:    chartCat + "の学習問題数",
		}
		for _, day := range store.DailyCounts(now, chartDays, chartCat, d.Catalog) {
			page.ChartLabels = append(page.ChartLabels, day.Label)
			page.ChartValues = append(page.ChartValues, day.Count)
		}
		d.Renderer.Render(w, r, "index.html", page)
	}
}

// daysUntil counts whole days from now to midnight of exam's date in the
// log timezone, never negative.
func daysUntil(now, exam time.Time) int {
	if exam.IsZero() {
		return 0
	}
	y, m, day := exam.Date()
	target := time.Date(y, m, day, 0, 0, 0, 0, review.Location)
	left := int(target.Sub(now.In(review.Location)).Hours() / 24)
	return max(left, 0)
}

func StartStudyHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		opts := session.StartOptions{
			Format:   formats.Fill,
			Category: firstForm(r, "category", "cat"),
			Count:    d.DefaultCount,
			Review:   r.PostForm.Get("review") == "true",
		}
		if f, ok := formats.Parse(r.PostForm.Get("mode")); ok {
			opts.Format = f
		}
		if n, err := strconv.Atoi(firstForm(r, "count", "q_count")); err == nil && n > 0 {
			opts.Count = n
		}

		store := review.FromRequest(r)
		s, err := d.Trainer.Start(r.Context(), opts, store)
		if err != nil {
			if !errors.Is(err, session.ErrEmptyPool) {
				d.Log.Error("start session failed", "format", opts.Format, "category", opts.Category, "error", err)
			}
			d.Codec.Clear(w, d.CookieSecure)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		if err := d.Codec.Write(w, s, d.CookieSecure); err != nil {
			d.Log.Error("write session failed", "error", err)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/study", http.StatusSeeOther)
	}
}

type studyPage struct {
	View      session.View
	AIEnabled bool
}

func StudyHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := d.Codec.Read(r)
		v := d.Trainer.View(&s)
		switch v.State {
		case session.Idle:
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		case session.Complete:
			http.Redirect(w, r, "/result", http.StatusSeeOther)
			return
		}
		d.Renderer.Render(w, r, "study.html", studyPage{View: v, AIEnabled: d.AIEnabled})
	}
}

func AnswerHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := d.Codec.Read(r)
		store := review.FromRequest(r)
		id := chi.URLParam(r, "question_id")

		_, err := d.Trainer.Submit(r.Context(), &s, &store, id, r.FormValue("user_answer"))
		if err != nil {
			target := "/study"
			if s.State() == session.Idle {
				target = "/"
			}
			d.Log.Debug("answer rejected", "question_id", id, "state", s.State(), "error", err)
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}

		review.SetCookie(w, store, d.CookieSecure)
		if err := d.Codec.Write(w, s, d.CookieSecure); err != nil {
			d.Log.Error("write session failed", "error", err)
		}
		http.Redirect(w, r, "/study", http.StatusSeeOther)
	}
}

func NextQuestionHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := d.Codec.Read(r)
		if err := s.Advance(); err == nil {
			if err := d.Codec.Write(w, s, d.CookieSecure); err != nil {
				d.Log.Error("write session failed", "error", err)
			}
		}
		http.Redirect(w, r, "/study", http.StatusSeeOther)
	}
}

type resultPage struct {
	session.Summary
	MissedCount int
}

func ResultHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := d.Codec.Read(r)
		sum, err := s.Finish()
		if err != nil {
			target := "/study"
			if s.State() == session.Idle {
				target = "/"
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		d.Renderer.Render(w, r, "result.html", resultPage{Summary: sum, MissedCount: review.FromRequest(r).MissedCount()})
	}
}

// AbortHandler drops the current attempt and returns home.
func AbortHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := d.Codec.Read(r)
		s.Abort()
		if err := d.Codec.Write(w, s, d.CookieSecure); err != nil {
			d.Log.Error("clear session failed", "error", err)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func ReadyHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				d.Log.Warn("not ready", "error", err)
				http.Error(w, fmt.Sprintf("not ready: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

func firstForm(r *http.Request, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r.FormValue(k)); v != "" {
			return v
		}
	}
	return ""
}
