package report

import (
	"fmt"
	"strings"
)

// TextFormatter renders a build as plain text, the layout a terminal
// logger would print.
type TextFormatter struct{}

func (f *TextFormatter) Kind() Kind { return KindText }

func (f *TextFormatter) Format(in *Input) ([]byte, error) {
	if in == nil || in.Run == nil {
		return nil, fmt.Errorf("report: text formatter requires a build run")
	}
	run := in.Run

	var b strings.Builder
	fmt.Fprintf(&b, "=== Build Report: %s ===\n", run.SceneName)
	fmt.Fprintf(&b, "Strategy:      %s\n", run.Strategy)
	fmt.Fprintf(&b, "Primitives:    %d\n", run.PrimCount)
	fmt.Fprintf(&b, "Nodes/Leaves:  %d / %d\n", run.NodeCount, run.LeafCount)
	fmt.Fprintf(&b, "Arena bytes:   %d node, %d leaf\n", run.NodeBytes, run.LeafBytes)
	fmt.Fprintf(&b, "Duration:      %d ms\n", run.DurationMS)
	if run.BlobKey != "" {
		fmt.Fprintf(&b, "Blob key:      %s\n", run.BlobKey)
	}

	if len(run.Warnings) > 0 {
		b.WriteString("\n=== Warnings ===\n")
		for _, w := range run.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	if len(in.Suggestions) > 0 {
		b.WriteString("\n=== Suggestions ===\n")
		for _, s := range in.Suggestions {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", s.Severity, s.Rule, s.Message)
		}
	}

	return []byte(b.String()), nil
}
