package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	appLog "salondesk/internal/log"
	"salondesk/internal/model"
	"salondesk/internal/scheduler"
)

//go:embed templates/*.html
var templateFS embed.FS

// embeddedStatic holds the console stylesheet served under /assets/.
//
//go:embed static
var embeddedStatic embed.FS

// pages lists every full page template; each is parsed together with the
// layout and the shared grid partials.
var pages = []string{"login.html", "calendar.html", "dashboard.html", "reports.html"}

// Renderer holds the parsed templates. It is safe for concurrent use.
type Renderer struct {
	pages   map[string]*template.Template
	display *template.Template
	css     template.CSS
}

// NewRenderer parses the embedded templates once.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}

	for _, p := range pages {
		t, err := template.New(p).Funcs(funcMap).ParseFS(templateFS,
			"templates/layout.html", "templates/grid.html", "templates/"+p)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		r.pages[p] = t
	}

	t, err := template.New("display.html").Funcs(funcMap).ParseFS(templateFS,
		"templates/grid.html", "templates/display.html")
	if err != nil {
		return nil, fmt.Errorf("parse display.html: %w", err)
	}
	r.display = t

	css, err := embeddedStatic.ReadFile("static/style.css")
	if err != nil {
		return nil, fmt.Errorf("read stylesheet: %w", err)
	}
	r.css = template.CSS(css)
	return r, nil
}

// pageData is what every console page receives.
type pageData struct {
	Title  string
	Nav    string
	User   string
	Role   string
	CSRF   template.HTML
	Notice string
	Body   any
}

// page renders a console page to w.
func (r *Renderer) page(w io.Writer, page string, data pageData) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// displayPage is the standalone front-desk view rendered by the refresh job.
type displayPage struct {
	Grid      scheduler.Grid
	Links     calendarLinks
	OutOfAxis int
	Generated string
	CSS       template.CSS
}

// Display renders a self-contained HTML document for g with the
// stylesheet inlined, so it can be opened from disk.
func (r *Renderer) Display(w io.Writer, g scheduler.Grid, generated string) error {
	return r.display.ExecuteTemplate(w, "display", displayPage{
		Grid:      g,
		OutOfAxis: g.OutOfAxis(),
		Generated: generated,
		CSS:       r.css,
	})
}

// render buffers the page so template errors never produce half a response.
func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	var buf bytes.Buffer
	if err := s.renderer.page(&buf, page, data); err != nil {
		appLog.Error("template render failed", err, "page", page)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

var funcMap = template.FuncMap{
	"hourLabel": hourLabel,
	"clock":     func(c model.Clock) string { return c.String() },
	"money":     money,
}

// hourLabel formats an axis hour as "9 AM", "12 PM", "9 PM".
func hourLabel(h int) string {
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return strconv.Itoa(h) + " AM"
	case h == 12:
		return "12 PM"
	default:
		return strconv.Itoa(h-12) + " PM"
	}
}

// money formats an amount in rupees, dropping a zero fraction.
func money(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimSuffix(s, ".00")
	return "₹" + s
}
