package rendering

import (
	_ "embed"
	"html/template"
	"strings"

	"github.com/jonathan/applypilot/internal/types"
)

//go:embed resume.html.tmpl
var resumeTemplate string

var funcs = template.FuncMap{
	"join": strings.Join,
	"joinNonEmpty": func(sep string, parts ...string) string {
		var kept []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				kept = append(kept, p)
			}
		}
		return strings.Join(kept, sep)
	},
}

var tmpl = template.Must(template.New("resume").Funcs(funcs).Parse(resumeTemplate))

// RenderHTML renders resume content into a standalone HTML document. All
// values are escaped by the template engine.
func RenderHTML(rc *types.ResumeContext) (string, error) {
	if rc == nil {
		return "", &RenderError{Message: "no resume content"}
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, rc); err != nil {
		return "", &TemplateError{
			Message: "failed to execute template",
			Cause:   err,
		}
	}
	return sb.String(), nil
}
