package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
)

//go:embed templates/*.html
var viewsFS embed.FS

var indexTmpl *template.Template

// loadTemplatesFromFS parses the page templates under dir of fsys.
// Tests use it to exercise failure paths.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	indexTmpl, err = template.ParseFS(sub, "*.html")
	return err
}

// LoadTemplates parses the embedded templates. Call it once during startup,
// before serving.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// RouteLink is one entry on the index page. Href is absolute.
type RouteLink struct {
	Name string
	Href string
	Path string
}

type IndexData struct {
	Version string
	Home    string
	APIBase string
	// Links are followable routes; Templates need a caller-supplied date.
	Links     []RouteLink
	Templates []RouteLink
}

func RenderIndex(w io.Writer, data *IndexData) error {
	if indexTmpl == nil {
		return errors.New("index template not loaded: call views.LoadTemplates during startup")
	}
	return indexTmpl.ExecuteTemplate(w, "index.html", data)
}
