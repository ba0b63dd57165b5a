package opssync

import (
	"context"
	"io"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/models"
	"bitbucket.org/hbfadata/mylar_backend/utils"
	"bitbucket.org/hbfadata/mylar_backend/workflow"
)

type ImportResult struct {
	SourceFile  string    `json:"sourceFile"`
	ExtractedAt time.Time `json:"extractedAt"`
	RowsParsed  int       `json:"rowsParsed"`
	RowsSaved   int       `json:"rowsSaved"`
	RowsSkipped int       `json:"rowsSkipped"`
}

// ImportPolarisExport ingests one weekly spreadsheet export into the
// canonical store. Bad rows are skipped and counted; only an export with no
// usable rows at all fails the import.
func ImportPolarisExport(ctx context.Context, r io.Reader, sourceFile string, extractedAt time.Time, sheetName string, skipRows int) (*ImportResult, error) {
	logger := config.GetLogger()

	rows, err := models.ParsePolarisExport(r, sheetName, skipRows)
	if err != nil {
		config.LogError(logger, "opssync", "ImportPolarisExport", "parse export", map[string]any{"source": sourceFile}, err)
		return nil, err
	}

	offers, skipped := workflow.NormalizeRows(rows, sourceFile, extractedAt)
	if len(offers) == 0 {
		return nil, utils.ErrorEmptyInput
	}

	if err := models.SaveSalesOffers(ctx, offers); err != nil {
		config.LogError(logger, "opssync", "ImportPolarisExport", "save offers", map[string]any{"source": sourceFile}, err)
		return nil, err
	}

	// Fresh snapshots invalidate any cached report.
	_ = config.RemoveRedisKey(
		"report:sales_transactions:"+time.Now().Format(runDateLayout),
		"report:sales_summary:"+time.Now().Format(runDateLayout),
	)

	return &ImportResult{
		SourceFile:  sourceFile,
		ExtractedAt: extractedAt,
		RowsParsed:  len(rows),
		RowsSaved:   len(offers),
		RowsSkipped: len(skipped),
	}, nil
}
