package models

import (
	"context"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
)

type ReportRunStatus string

const (
	RunPending   ReportRunStatus = "Pending"
	RunRunning   ReportRunStatus = "Running"
	RunCompleted ReportRunStatus = "Completed"
	RunFailed    ReportRunStatus = "Failed"
)

// ReportRun records one end-to-end report generation (trigger, resolution
// date, artifact location). One row per Pub/Sub or manual trigger.
type ReportRun struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	Status       ReportRunStatus `gorm:"size:20;not null;default:Pending" json:"status"`
	TodayDate    time.Time       `gorm:"not null" json:"today_date"`
	TriggeredBy  string          `gorm:"size:100" json:"triggered_by"`
	RowCount     int             `json:"row_count"`
	SkippedRows  int             `json:"skipped_rows"`
	ArtifactPath string          `gorm:"size:300" json:"artifact_path"`
	ErrorMessage string          `gorm:"type:text" json:"error_message"`
	StartedAt    *time.Time      `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetReportRun(ctx context.Context, id string) (*ReportRun, error) {
	var run ReportRun
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *ReportRun) Save(ctx context.Context) error {
	db := config.GetDB()
	return db.WithContext(ctx).Save(r).Error
}
