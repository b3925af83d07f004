package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var formatLabels = map[formats.Format]string{
	formats.Fill:  "穴埋め(4択)",
	formats.OX:    "○×問題",
	formats.Essay: "記述式",
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
	log   *logger.Logger
}

func NewRenderer(log *logger.Logger) (*Renderer, error) {
	if log == nil {
		log = logger.Nop()
	}
	funcs := template.FuncMap{
		"formatLabel": func(f formats.Format) string { return formatLabels[f] },
		"add":         func(a, b int) int { return a + b },
	}
	r := &Renderer{pages: map[string]*template.Template{}, log: log}
	for _, name := range []string{"index.html", "study.html", "result.html"} {
		t, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, err
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes a full page, or a 500 if the template fails. Output is
// buffered so a failed render never sends a partial page.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, name string, data any) {
	t, ok := rd.pages[name]
	if !ok {
		rd.log.Error("unknown template", "template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base.html", data); err != nil {
		rd.log.Error("render failed", "template", name, "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
