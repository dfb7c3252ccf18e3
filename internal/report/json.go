package report

import (
	"encoding/json"
	"fmt"
	"time"
)

// JSONFormatter renders a build run as a single indented JSON object, for
// machine consumption (CI artifacts, summary.json-style files).
type JSONFormatter struct{}

func (f *JSONFormatter) Kind() Kind { return KindJSON }

type jsonReport struct {
	SceneName   string                `json:"scene_name"`
	Strategy    string                `json:"strategy"`
	PrimCount   int                   `json:"prim_count"`
	NodeCount   int                   `json:"node_count"`
	LeafCount   int                   `json:"leaf_count"`
	NodeBytes   int64                 `json:"node_bytes"`
	LeafBytes   int64                 `json:"leaf_bytes"`
	DurationMS  int64                 `json:"duration_ms"`
	Warnings    []string              `json:"warnings,omitempty"`
	BlobKey     string                `json:"blob_key,omitempty"`
	ContentHash string                `json:"content_hash,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	Suggestions []jsonReportSuggestion `json:"suggestions,omitempty"`
}

type jsonReportSuggestion struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func (f *JSONFormatter) Format(in *Input) ([]byte, error) {
	if in == nil || in.Run == nil {
		return nil, fmt.Errorf("report: json formatter requires a build run")
	}
	run := in.Run

	out := jsonReport{
		SceneName:   run.SceneName,
		Strategy:    run.Strategy,
		PrimCount:   run.PrimCount,
		NodeCount:   run.NodeCount,
		LeafCount:   run.LeafCount,
		NodeBytes:   run.NodeBytes,
		LeafBytes:   run.LeafBytes,
		DurationMS:  run.DurationMS,
		Warnings:    run.Warnings,
		BlobKey:     run.BlobKey,
		ContentHash: run.ContentHash,
		CreatedAt:   run.CreatedAt,
	}
	for _, s := range in.Suggestions {
		out.Suggestions = append(out.Suggestions, jsonReportSuggestion{Rule: s.Rule, Severity: s.Severity, Message: s.Message})
	}

	return json.MarshalIndent(out, "", "  ")
}
