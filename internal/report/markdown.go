package report

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a build run as a Markdown section, for the
// repository's audit trail or a CI comment.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Kind() Kind { return KindMarkdown }

func (f *MarkdownFormatter) Format(in *Input) ([]byte, error) {
	if in == nil || in.Run == nil {
		return nil, fmt.Errorf("report: markdown formatter requires a build run")
	}
	run := in.Run

	var b strings.Builder
	fmt.Fprintf(&b, "## Build report: `%s`\n\n", run.SceneName)
	b.WriteString("| metric | value |\n")
	b.WriteString("|---|---|\n")
	fmt.Fprintf(&b, "| strategy | %s |\n", run.Strategy)
	fmt.Fprintf(&b, "| primitives | %d |\n", run.PrimCount)
	fmt.Fprintf(&b, "| nodes | %d |\n", run.NodeCount)
	fmt.Fprintf(&b, "| leaves | %d |\n", run.LeafCount)
	fmt.Fprintf(&b, "| node bytes | %d |\n", run.NodeBytes)
	fmt.Fprintf(&b, "| leaf bytes | %d |\n", run.LeafBytes)
	fmt.Fprintf(&b, "| duration | %d ms |\n", run.DurationMS)
	if run.BlobKey != "" {
		fmt.Fprintf(&b, "| blob key | `%s` |\n", run.BlobKey)
	}

	if len(run.Warnings) > 0 {
		b.WriteString("\n### Warnings\n\n")
		for _, w := range run.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if len(in.Suggestions) > 0 {
		b.WriteString("\n### Suggestions\n\n")
		for _, s := range in.Suggestions {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", s.Rule, s.Severity, s.Message)
		}
	}

	return []byte(b.String()), nil
}
