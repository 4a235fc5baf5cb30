// Package report renders analysis runs as text, JSON or HTML.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/juparave/legacyfix/internal/domain"
)

// Supported output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatHTML = "html"
)

// Formatter renders and stores reports
type Formatter struct {
	outputDir string
	styles    *Styles
}

// NewFormatter creates a Formatter writing to outputDir
func NewFormatter(outputDir string, styles *Styles) *Formatter {
	if styles == nil {
		styles = NewStyles(false)
	}
	return &Formatter{outputDir: outputDir, styles: styles}
}

// Summary is a one-line description of the run
func Summary(run *domain.AnalysisRun) string {
	return fmt.Sprintf("%s analyzed: %s, %s clean, %s",
		english.Plural(len(run.Reports), "file", ""),
		english.Plural(run.TotalSuggestions(), "suggestion", ""),
		humanize.Comma(int64(run.Count(domain.OutcomeNoIssues))),
		english.Plural(run.Count(domain.OutcomeError), "error", ""))
}

// ToText renders the run for a terminal
func (f *Formatter) ToText(run *domain.AnalysisRun) string {
	s := f.styles
	var sb strings.Builder

	sb.WriteString(s.Title.Render("Legacy code analysis"))
	sb.WriteString("\n")
	sb.WriteString(s.Dim.Render(fmt.Sprintf("run %s, %s, took %s",
		run.ID, run.StartedAt.Format(time.RFC1123), run.Duration.Round(time.Millisecond))))
	sb.WriteString("\n\n")

	for _, rep := range run.Reports {
		sb.WriteString(s.File.Render(rep.File))
		sb.WriteString("\n")

		switch rep.Outcome.Kind {
		case domain.OutcomeError:
			sb.WriteString("  " + s.Error.Render("error: ") + rep.Outcome.Message + "\n")
		case domain.OutcomeNoIssues:
			sb.WriteString("  " + s.Success.Render(rep.Outcome.Message) + "\n")
		case domain.OutcomeSuggestions:
			for _, sug := range rep.Outcome.Suggestions {
				fmt.Fprintf(&sb, "  %s %s\n", s.Location.Render(fmt.Sprintf("line %d", sug.Line)), s.Type.Render(sug.Type))
				fmt.Fprintf(&sb, "    %s\n", sug.Message)
				for _, line := range strings.Split(sug.Suggestion, "\n") {
					sb.WriteString("    " + s.Suggestion.Render("| "+line) + "\n")
				}
				fmt.Fprintf(&sb, "    %s %s\n", s.Link.Render(sug.Documentation.URL), s.Dim.Render(sug.Documentation.Description))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(Summary(run))
	sb.WriteString("\n")
	return sb.String()
}

// ToJSON renders the run as indented JSON
func (f *Formatter) ToJSON(run *domain.AnalysisRun) ([]byte, error) {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return data, nil
}

// ToHTML renders the run as a standalone HTML page
func (f *Formatter) ToHTML(run *domain.AnalysisRun) (string, error) {
	var buf bytes.Buffer
	err := htmlReport.Execute(&buf, struct {
		Run     *domain.AnalysisRun
		Summary string
	}{run, Summary(run)})
	if err != nil {
		return "", fmt.Errorf("rendering html report: %w", err)
	}
	return buf.String(), nil
}

// Render renders the run in the given format
func (f *Formatter) Render(run *domain.AnalysisRun, format string) ([]byte, error) {
	switch format {
	case FormatText, "":
		return []byte(f.ToText(run)), nil
	case FormatJSON:
		return f.ToJSON(run)
	case FormatHTML:
		out, err := f.ToHTML(run)
		return []byte(out), err
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// Write stores the report in the output directory and returns its path.
// Text reports are always written without color.
func (f *Formatter) Write(run *domain.AnalysisRun, format string) (string, error) {
	if format == "" {
		format = FormatText
	}

	plain := &Formatter{outputDir: f.outputDir, styles: NewStyles(false)}
	data, err := plain.Render(run, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(f.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	ext := format
	if format == FormatText {
		ext = "txt"
	}
	name := fmt.Sprintf("legacyfix-%s-%s.%s", run.StartedAt.Format("2006-01-02-150405"), shortID(run.ID), ext)
	path := filepath.Join(f.outputDir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Legacy code analysis</title>
<style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; margin: 24px; color: #222; }
h2 { font-size: 16px; margin-top: 28px; }
.meta { color: #888; font-size: 12px; }
.error { color: #b00020; }
.clean { color: #1b7f3b; }
.item { border-left: 3px solid #f0ad4e; padding: 4px 12px; margin: 12px 0; }
.type { font-weight: bold; }
pre { background: #f6f8fa; padding: 8px; overflow-x: auto; }
</style>
</head>
<body>
<h1>Legacy code analysis</h1>
<p class="meta">Run {{.Run.ID}} &middot; {{.Run.StartedAt.Format "Jan 2, 2006 15:04"}}</p>
<p>{{.Summary}}</p>
{{range .Run.Reports}}
<h2>{{.File}}</h2>
{{if eq .Outcome.Kind "error"}}<p class="error">{{.Outcome.Message}}</p>
{{else if eq .Outcome.Kind "noIssues"}}<p class="clean">{{.Outcome.Message}}</p>
{{else}}{{range .Outcome.Suggestions}}
<div class="item">
<div><span class="type">{{.Type}}</span> &middot; line {{.Line}}</div>
<div>{{.Message}}</div>
<pre>{{.Suggestion}}</pre>
<div><a href="{{.Documentation.URL}}">{{.Documentation.Description}}</a></div>
</div>
{{end}}{{end}}
{{end}}
</body>
</html>
`))
