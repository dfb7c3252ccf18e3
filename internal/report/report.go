// Package report renders a completed build as text, JSON, or Markdown.
// One Formatter implementation per output kind; the input is always a
// BuildRun, only the rendering changes.
package report

import (
	"github.com/lange-studios/gobvh/internal/advisor"
	"github.com/lange-studios/gobvh/internal/repository"
)

// Kind identifies an output format a Formatter renders.
type Kind string

const (
	KindText     Kind = "text"
	KindJSON     Kind = "json"
	KindMarkdown Kind = "markdown"
)

// Input bundles what a Formatter needs to render one build: the persisted
// run plus any advisor suggestions gathered for it. Suggestions may be nil
// when the advisor wasn't run.
type Input struct {
	Run         *repository.BuildRun
	Suggestions []advisor.Suggestion
}

// Formatter renders an Input to a byte slice in its own format.
type Formatter interface {
	// Format renders in.
	Format(in *Input) ([]byte, error)
	// Kind reports which output format this Formatter produces.
	Kind() Kind
}

// New returns the Formatter for kind, or an error if kind is unrecognized.
func New(kind Kind) (Formatter, error) {
	switch kind {
	case KindText:
		return &TextFormatter{}, nil
	case KindJSON:
		return &JSONFormatter{}, nil
	case KindMarkdown:
		return &MarkdownFormatter{}, nil
	default:
		return nil, &UnknownKindError{Kind: kind}
	}
}

// UnknownKindError reports a Kind New doesn't know how to build.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return "report: unknown formatter kind " + string(e.Kind)
}
