package opssync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/models"
	"bitbucket.org/hbfadata/mylar_backend/models/reports"
	"bitbucket.org/hbfadata/mylar_backend/utils"
	"bitbucket.org/hbfadata/mylar_backend/workflow"
	"github.com/bsm/redislock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer = otel.Tracer("opssync")

// ProcessReportRun executes one report generation end to end: resolve,
// render, upload, and record the outcome on the run row. Safe under
// at-least-once delivery; a run already past Pending is skipped.
func ProcessReportRun(ctx context.Context, payload ReportRunPayload) error {
	logger := config.GetLogger()

	if payload.RunId == "" {
		return errors.New("invalid payload")
	}

	var span trace.Span
	ctx, span = tracer.Start(ctx, "ProcessReportRun")
	defer span.End()

	run, err := models.GetReportRun(ctx, payload.RunId)
	if err != nil {
		config.LogError(logger, "opssync", "ProcessReportRun", "load run", map[string]any{"run_id": payload.RunId}, err)
		return err
	}
	if run.Status == models.RunCompleted || run.Status == models.RunFailed {
		return nil
	}

	today := run.TodayDate
	if payload.TodayDate != "" {
		if parsed, perr := time.Parse(runDateLayout, payload.TodayDate); perr == nil {
			today = parsed
		}
	}
	if today.IsZero() {
		today = time.Now()
	}
	runDate := today.Format(runDateLayout)

	// One generation per run date across instances.
	if locker := config.GetRedisLock(); locker != nil {
		lock, lerr := locker.Obtain(ctx, "report_run:"+runDate, 10*time.Minute, nil)
		if lerr == redislock.ErrNotObtained {
			return nil
		}
		if lerr == nil {
			defer lock.Release(ctx)
		}
	}
	db := config.GetDB().WithContext(ctx)
	if err := workflow.AcquireReportRunLock(db, runDate); err != nil {
		return err
	}
	defer workflow.ReleaseReportRunLock(db, runDate)

	now := time.Now()
	run.Status = models.RunRunning
	run.StartedAt = &now
	if err := run.Save(ctx); err != nil {
		return err
	}

	if err := generateAndUpload(ctx, run, today); err != nil {
		config.LogError(logger, "opssync", "ProcessReportRun", "report run failed", map[string]any{"run_id": run.ID}, err)
		finished := time.Now()
		run.Status = models.RunFailed
		run.ErrorMessage = err.Error()
		run.FinishedAt = &finished
		if serr := run.Save(ctx); serr != nil {
			return serr
		}
		return err
	}

	finished := time.Now()
	run.Status = models.RunCompleted
	run.ErrorMessage = ""
	run.FinishedAt = &finished
	return run.Save(ctx)
}

func generateAndUpload(ctx context.Context, run *models.ReportRun, today time.Time) error {
	rows, err := reports.GetSalesTransactionReport(ctx, today)
	if err != nil {
		return err
	}
	summary, err := reports.GetSalesSummaryReport(ctx, today)
	if err != nil {
		return err
	}

	data, err := reports.RenderWorkbook(rows, summary)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("sales_report_%s.xlsx", today.Format(runDateLayout))
	path, err := utils.UploadReportToGCS(ctx, run.ID, filename, data)
	if err != nil {
		return err
	}

	run.RowCount = len(rows)
	run.ArtifactPath = path
	return nil
}

// RunResponse shapes a run row for the API.
func RunResponse(run *models.ReportRun) ReportRunResponse {
	return ReportRunResponse{
		ID:           run.ID,
		Status:       string(run.Status),
		TodayDate:    run.TodayDate.Format(runDateLayout),
		TriggeredBy:  run.TriggeredBy,
		RowCount:     run.RowCount,
		ArtifactPath: run.ArtifactPath,
		ErrorMessage: run.ErrorMessage,
		StartedAt:    formatTimePtr(run.StartedAt),
		FinishedAt:   formatTimePtr(run.FinishedAt),
	}
}
