package present

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// WritePage renders the full chat page for view.
func WritePage(w io.Writer, view PageView) error {
	return pageTmpl.Execute(w, view)
}
