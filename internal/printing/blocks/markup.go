package blocks

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed markup/*.html
var markupFS embed.FS

var fragments = template.Must(template.New("blocks").Funcs(Funcs()).ParseFS(markupFS, "markup/*.html"))

// Funcs returns the formatting helpers available to block and layout
// templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"nl2br":  NL2BR,
		"nbsp":   NBSP,
		"date":   FormatDate,
		"taxID":  taxID,
		"phones": Phones,
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// Execute runs the named template of set. The templates are embedded and
// their data types fixed at compile time, so a failure is a programming
// error and panics like template.Must.
func Execute(set *template.Template, name string, data any) template.HTML {
	var b strings.Builder
	if err := set.ExecuteTemplate(&b, name, data); err != nil {
		panic(fmt.Sprintf("blocks: execute %s: %v", name, err))
	}
	return template.HTML(b.String())
}

func execute(name string, data any) template.HTML {
	return Execute(fragments, name, data)
}

// NL2BR escapes s and turns its line breaks into <br/>.
func NL2BR(s string) template.HTML {
	return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br/>\n"))
}

// NBSP escapes s and keeps it on one line.
func NBSP(s string) template.HTML {
	return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), " ", "&nbsp;"))
}

// FormatDate prints t as dd-mm-yyyy, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02-01-2006")
}

// Title is the heading of lists and records.
func Title(text string) template.HTML {
	if text == "" {
		return ""
	}
	return execute("title", text)
}
