package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONField is a custom type for storing a JSON-encoded column through GORM.
type JSONField []byte

// Value implements driver.Valuer.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// buildRunRecord is the GORM row model backing the build_runs table.
type buildRunRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	SceneName   string    `gorm:"column:scene_name;index"`
	Strategy    string    `gorm:"column:strategy"`
	PrimCount   int       `gorm:"column:prim_count"`
	NodeCount   int       `gorm:"column:node_count"`
	LeafCount   int       `gorm:"column:leaf_count"`
	NodeBytes   int64     `gorm:"column:node_bytes"`
	LeafBytes   int64     `gorm:"column:leaf_bytes"`
	DurationMS  int64     `gorm:"column:duration_ms"`
	Warnings    JSONField `gorm:"column:warnings;type:text"`
	BlobKey     string    `gorm:"column:blob_key"`
	ContentHash string    `gorm:"column:content_hash"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
}

func (buildRunRecord) TableName() string { return "build_runs" }

func (r *buildRunRecord) toBuildRun() (*BuildRun, error) {
	var warnings []string
	if len(r.Warnings) > 0 {
		if err := json.Unmarshal(r.Warnings, &warnings); err != nil {
			return nil, err
		}
	}
	return &BuildRun{
		ID:          r.ID,
		SceneName:   r.SceneName,
		Strategy:    r.Strategy,
		PrimCount:   r.PrimCount,
		NodeCount:   r.NodeCount,
		LeafCount:   r.LeafCount,
		NodeBytes:   r.NodeBytes,
		LeafBytes:   r.LeafBytes,
		DurationMS:  r.DurationMS,
		Warnings:    warnings,
		BlobKey:     r.BlobKey,
		ContentHash: r.ContentHash,
		CreatedAt:   r.CreatedAt,
	}, nil
}

func newBuildRunRecord(run *BuildRun) (*buildRunRecord, error) {
	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return nil, err
	}
	return &buildRunRecord{
		SceneName:   run.SceneName,
		Strategy:    run.Strategy,
		PrimCount:   run.PrimCount,
		NodeCount:   run.NodeCount,
		LeafCount:   run.LeafCount,
		NodeBytes:   run.NodeBytes,
		LeafBytes:   run.LeafBytes,
		DurationMS:  run.DurationMS,
		Warnings:    JSONField(warningsJSON),
		BlobKey:     run.BlobKey,
		ContentHash: run.ContentHash,
		CreatedAt:   run.CreatedAt,
	}, nil
}
