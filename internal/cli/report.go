package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/dverity/docdrill/pkg/domain"
)

// statusGlyphs map each status to its report marker.
var statusGlyphs = map[string]string{
	domain.StatusPassed:               "✓",
	domain.StatusFailed:               "✗",
	domain.StatusSkippedNotExecutable: "-",
	domain.StatusSkippedMissingPrereq: "~",
}

// RenderJSON writes the raw result tree.
func RenderJSON(w io.Writer, run domain.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// Render writes a human report. Markdown is rendered through glamour unless
// plain output is requested or the terminal has no color support.
func Render(w io.Writer, run domain.RunResult, plain bool) error {
	md := buildMarkdown(run)
	if plain || termenv.ColorProfile() == termenv.Ascii {
		_, err := io.WriteString(w, md)
		return err
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		_, werr := io.WriteString(w, md)
		return werr
	}
	out, err := r.Render(md)
	if err != nil {
		_, werr := io.WriteString(w, md)
		return werr
	}
	_, err = io.WriteString(w, out)
	return err
}

func buildMarkdown(run domain.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# docdrill run %s\n\n", run.Status)
	fmt.Fprintf(&b, "%d instance(s) in %s\n\n", len(run.Instances), run.Duration.Round(1e6))

	for _, f := range run.Failures {
		fmt.Fprintf(&b, "- **unbuildable** %s (%s:%d): %s\n", f.Procedure, f.File, f.Line, f.Reason)
	}
	if len(run.Failures) > 0 {
		b.WriteString("\n")
	}

	for _, inst := range run.Instances {
		title := inst.Procedure
		if title == "" {
			title = inst.File
		}
		fmt.Fprintf(&b, "## %s %s%s\n\n", statusGlyphs[inst.Status], title, keySuffix(inst.Keys))
		for i, step := range inst.Steps {
			label := step.Title
			if label == "" {
				label = fmt.Sprintf("step %d", i+1)
			}
			fmt.Fprintf(&b, "- %s %s\n", statusGlyphs[step.Status], label)
			for _, a := range step.Actions {
				if a.Status == domain.StatusPassed {
					continue
				}
				fmt.Fprintf(&b, "  - %s %s/%s", statusGlyphs[a.Status], a.Kind, a.Language)
				if a.Detail != "" {
					fmt.Fprintf(&b, ": %s", a.Detail)
				}
				b.WriteString("\n")
			}
		}
		for _, warn := range inst.CleanupWarnings {
			fmt.Fprintf(&b, "- ~ cleanup: %s\n", warn)
		}
		b.WriteString("\n")
	}

	if run.Halted {
		b.WriteString("Run halted early by strict cleanup policy.\n")
	}
	return b.String()
}

func keySuffix(keys map[string]string) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(keys))
	for dim, key := range keys {
		parts = append(parts, dim+"="+key)
	}
	// Map order is random; sort for a stable report.
	sort.Strings(parts)
	return " [" + strings.Join(parts, " ") + "]"
}
