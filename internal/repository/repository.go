// Package repository persists completed build runs. It never sits on a
// builder goroutine's hot path: the scheduler and CLI call Save after
// Build has already returned a *bvhcore.BVH.
package repository

import (
	"context"
	"time"
)

// BuildRun is one row of build history: the settings a build ran with, the
// stats it produced, and where its tree blob (if any) was stored.
type BuildRun struct {
	ID          int64
	SceneName   string
	Strategy    string
	PrimCount   int
	NodeCount   int
	LeafCount   int
	NodeBytes   int64
	LeafBytes   int64
	DurationMS  int64
	Warnings    []string
	BlobKey     string
	ContentHash string
	CreatedAt   time.Time
}

// Repository defines build-run persistence. Implementations must not block
// the goroutine that produced the BuildRun for longer than a single insert.
type Repository interface {
	// Save stores a completed build run.
	Save(ctx context.Context, run *BuildRun) error

	// Recent returns the most recent build runs, newest first, up to limit.
	Recent(ctx context.Context, limit int) ([]*BuildRun, error)

	// BySceneName returns every build run recorded for the given scene
	// name, newest first.
	BySceneName(ctx context.Context, name string) ([]*BuildRun, error)
}
