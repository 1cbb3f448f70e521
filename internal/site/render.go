package site

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/JakeFAU/zerovo-site/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// SchedulingView configures the consultation triggers on a page.
type SchedulingView struct {
	Namespace string
	Link      string
}

// View is the data handed to the templates.
type View struct {
	Site            config.SiteConfig
	Page            Page
	Nav             []Page
	Path            string
	CanonicalURL    string
	ShowLoader      bool
	LoaderStreamURL string
	Scheduling      SchedulingView
	RequestID       string
	Year            int
}

// Renderer executes the embedded templates.
type Renderer struct {
	page     *template.Template
	notFound *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	page, err := template.ParseFS(templateFS, "templates/layout.html", "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	notFound, err := template.ParseFS(templateFS, "templates/layout.html", "templates/notfound.html")
	if err != nil {
		return nil, fmt.Errorf("parse not found templates: %w", err)
	}
	return &Renderer{page: page, notFound: notFound}, nil
}

// Page renders a catalog page.
func (r *Renderer) Page(w io.Writer, v View) error {
	if err := r.page.ExecuteTemplate(w, "layout", v); err != nil {
		return fmt.Errorf("render %s: %w", v.Page.Path, err)
	}
	return nil
}

// NotFound renders the 404 page. v.Page supplies the title and description.
func (r *Renderer) NotFound(w io.Writer, v View) error {
	if err := r.notFound.ExecuteTemplate(w, "layout", v); err != nil {
		return fmt.Errorf("render not found: %w", err)
	}
	return nil
}

// StaticHandler serves the embedded assets. Mount it under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}
