package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lange-studios/gobvh/internal/scheduler/source"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// requestStatus values for buildRequestRecord.Status.
const (
	requestStatusPending = "pending"
	requestStatusClaimed = "claimed"
	requestStatusDone    = "done"
	requestStatusFailed  = "failed"
)

// buildRequestRecord is the GORM row model backing the build_requests
// table a source.DatabaseSource polls.
type buildRequestRecord struct {
	ID          string `gorm:"primaryKey"`
	ScenePath   string `gorm:"column:scene_path"`
	SceneFormat string `gorm:"column:scene_format"`
	Priority    int    `gorm:"column:priority"`
	Status      string `gorm:"column:status;index"`
	FailReason  string `gorm:"column:fail_reason"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (buildRequestRecord) TableName() string { return "build_requests" }

// GormRequestStore implements source.RequestStore on top of a GORM
// connection, one row per build request in the build_requests table.
type GormRequestStore struct {
	db *gorm.DB
}

// NewGormRequestStore wraps an already-open *gorm.DB.
func NewGormRequestStore(db *gorm.DB) *GormRequestStore {
	return &GormRequestStore{db: db}
}

// AutoMigrate creates or updates the build_requests table schema.
func (s *GormRequestStore) AutoMigrate() error {
	return s.db.AutoMigrate(&buildRequestRecord{})
}

// Enqueue inserts a new pending row, the counterpart callers use to submit
// requests that a DatabaseSource will later poll and claim.
func (s *GormRequestStore) Enqueue(ctx context.Context, id string, req source.BuildRequest) error {
	record := &buildRequestRecord{
		ID:          id,
		ScenePath:   req.ScenePath,
		SceneFormat: req.SceneFormat,
		Priority:    req.Priority,
		Status:      requestStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("repository: enqueue build request: %w", err)
	}
	return nil
}

// PendingRequests returns up to limit unclaimed rows, highest priority
// first.
func (s *GormRequestStore) PendingRequests(ctx context.Context, limit int) ([]source.StoredRequest, error) {
	var records []buildRequestRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", requestStatusPending).
		Order("priority DESC, created_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("repository: query pending build requests: %w", err)
	}

	out := make([]source.StoredRequest, len(records))
	for i, r := range records {
		out[i] = source.StoredRequest{
			ID: r.ID,
			Request: source.BuildRequest{
				ScenePath:   r.ScenePath,
				SceneFormat: r.SceneFormat,
				Priority:    r.Priority,
			},
		}
	}
	return out, nil
}

// Claim locks a pending row for this instance with SELECT ... FOR UPDATE,
// returning false if it was already claimed by someone else.
func (s *GormRequestStore) Claim(ctx context.Context, id string) (bool, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record buildRequestRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", id, requestStatusPending).
			First(&record).Error
		if err != nil {
			return err
		}
		return tx.Model(&buildRequestRecord{}).
			Where("id = ?", id).
			Update("status", requestStatusClaimed).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("repository: claim build request %s: %w", id, err)
	}
	return true, nil
}

// MarkDone marks a claimed row done.
func (s *GormRequestStore) MarkDone(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&buildRequestRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": requestStatusDone})
	if result.Error != nil {
		return fmt.Errorf("repository: mark build request %s done: %w", id, result.Error)
	}
	return nil
}

// MarkFailed marks a claimed row failed, recording reason.
func (s *GormRequestStore) MarkFailed(ctx context.Context, id string, reason string) error {
	result := s.db.WithContext(ctx).Model(&buildRequestRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": requestStatusFailed, "fail_reason": reason})
	if result.Error != nil {
		return fmt.Errorf("repository: mark build request %s failed: %w", id, result.Error)
	}
	return nil
}
