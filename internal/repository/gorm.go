package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormRepository implements Repository on top of a GORM connection, one
// row per build in the build_runs table.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository wraps an already-open *gorm.DB.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates or updates the build_runs table schema.
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&buildRunRecord{})
}

// Save stores a completed build run.
func (r *GormRepository) Save(ctx context.Context, run *BuildRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	record, err := newBuildRunRecord(run)
	if err != nil {
		return fmt.Errorf("repository: marshal build run: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("repository: save build run: %w", err)
	}
	run.ID = record.ID
	return nil
}

// Recent returns the most recent build runs, newest first.
func (r *GormRepository) Recent(ctx context.Context, limit int) ([]*BuildRun, error) {
	var records []buildRunRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("repository: query recent build runs: %w", err)
	}
	return toBuildRuns(records)
}

// BySceneName returns every build run for name, newest first.
func (r *GormRepository) BySceneName(ctx context.Context, name string) ([]*BuildRun, error) {
	var records []buildRunRecord
	err := r.db.WithContext(ctx).
		Where("scene_name = ?", name).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("repository: query build runs for scene %q: %w", name, err)
	}
	return toBuildRuns(records)
}

func toBuildRuns(records []buildRunRecord) ([]*BuildRun, error) {
	runs := make([]*BuildRun, len(records))
	for i := range records {
		run, err := records[i].toBuildRun()
		if err != nil {
			return nil, err
		}
		runs[i] = run
	}
	return runs, nil
}
