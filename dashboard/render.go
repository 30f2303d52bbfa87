package dashboard

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var ErrUnknownTemplate = errors.New("unknown page template")

// Page template names.
const (
	PageHome       = "home"
	PageIndicators = "indicators"
	PageTASI       = "tasi"
)

var pageNames = []string{PageHome, PageIndicators, PageTASI}

// View is what the layout renders: the page content plus the navigation links and the
// scripts the page needs.
type View struct {
	Title   string
	Links   Links
	Scripts []string
	Page    any
}

// Renderer renders pages into the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the embedded page templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New(name).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("unable to parse template %s, %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render writes the named page. Output is buffered so a template error never leaves a partial
// page in w.
func (r *Renderer) Render(w io.Writer, name string, view View) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("%q, %w", name, ErrUnknownTemplate)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", view); err != nil {
		return fmt.Errorf("unable to render %s, %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// HomeView returns the home page view.
func (d *Dashboard) HomeView(links Links) View {
	home := d.Home(links)
	return View{Title: home.Title, Links: links, Page: home}
}

// IndicatorsView composes the indicators page view.
func (d *Dashboard) IndicatorsView(ctx context.Context, links Links) (View, error) {
	page, err := d.Indicators(ctx)
	if err != nil {
		return View{}, err
	}
	return View{Title: page.Title, Links: links, Scripts: page.Scripts, Page: page}, nil
}

// TASIView returns the TASI page view for the selected month.
func (d *Dashboard) TASIView(month string, links Links) (View, error) {
	page, err := d.TASI(month, links)
	if err != nil {
		return View{}, err
	}
	return View{Title: "TASI", Links: links, Page: page}, nil
}
