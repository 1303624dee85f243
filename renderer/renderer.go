// Package renderer renders the import views to markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	importer "github.com/etnz/pcs-import"
)

//go:embed templates/*.md
var templates embed.FS

// RenderPreview renders the preview step.
func RenderPreview(p *Preview) string {
	partials := map[string]string{
		"preview_documents":    "templates/preview_documents.md",
		"preview_transactions": "templates/preview_transactions.md",
		"preview_securities":   "templates/preview_securities.md",
		"preview_duplicates":   "templates/preview_duplicates.md",
		"warnings":             "templates/warnings.md",
	}
	return renderTemplate("preview", "templates/preview.md", partials, p)
}

// outcomeView adds the truncated warnings to an outcome.
type outcomeView struct {
	importer.Outcome
	Shown []string
	More  int
}

// RenderOutcome renders the result of a commit.
func RenderOutcome(o importer.Outcome) string {
	v := outcomeView{Outcome: o}
	v.Shown, v.More = truncate(o.Warnings, MaxWarnings)
	partials := map[string]string{
		"warnings": "templates/outcome_warnings.md",
	}
	return renderTemplate("outcome", "templates/outcome.md", partials, v)
}

// RenderPortfolios renders a list of portfolios.
func RenderPortfolios(portfolios []importer.Portfolio) string {
	return renderTemplate("portfolios", "templates/portfolios.md", nil, portfolios)
}

// RenderAccounts renders a list of accounts.
func RenderAccounts(accounts []importer.Account) string {
	return renderTemplate("accounts", "templates/accounts.md", nil, accounts)
}

// RenderProgress renders a progress report as a single line.
func RenderProgress(p importer.Progress) string {
	verb := "Parsing"
	if p.Phase == importer.PhaseCommitting {
		verb = "Importing"
	}
	return fmt.Sprintf("%s file %d of %d: %s", verb, p.Current, p.Total, p.File)
}

var funcs = template.FuncMap{
	// cell escapes a value for a markdown table cell.
	"cell": func(s string) string {
		s = strings.ReplaceAll(s, "|", `\|`)
		return strings.ReplaceAll(s, "\n", " ")
	},
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
