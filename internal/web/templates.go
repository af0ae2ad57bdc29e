package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"

	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// PageTemplate is the name of the full page template.
const PageTemplate = "index.html"

var funcs = template.FuncMap{
	"icon": func(name string) template.HTML {
		return template.HTML(`<i data-lucide="` + template.HTMLEscapeString(name) + `" class="w-5 h-5"></i>`)
	},
}

// Templates parses every embedded template.
func Templates() (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "web: parsing templates")
	}
	return t, nil
}

// Static returns the embedded static assets rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// RenderPage writes the full page to w.
func RenderPage(w io.Writer, t *template.Template, page *Page) error {
	return errors.Wrap(t.ExecuteTemplate(w, PageTemplate, page), "web: rendering page")
}
