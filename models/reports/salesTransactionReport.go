package reports

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/models"
	"bitbucket.org/hbfadata/mylar_backend/utils"
	"bitbucket.org/hbfadata/mylar_backend/workflow"
	"github.com/shopspring/decimal"
)

// SalesTransactionRow is one presentation row of the weekly sales report:
// the merged sales record with its effective ops state as of the run date.
type SalesTransactionRow struct {
	Project        string `json:"project"`
	BuildingId     string `json:"buildingId,omitempty"`
	UnitNumber     string `json:"unitNumber"`
	UnitName       string `json:"unitName,omitempty"`
	Status         string `json:"status"`
	StatusNumeric  int    `json:"statusNumeric"`
	StatusOverride bool   `json:"statusOverride,omitempty"`
	Milestone      string `json:"milestone,omitempty"`
	MilestoneDate  string `json:"milestoneDate,omitempty"`

	Buyers       string          `json:"buyers,omitempty"`
	FinalPrice   decimal.Decimal `json:"finalPrice"`
	Cash         string          `json:"cash,omitempty"`
	WeekRatified string          `json:"weekRatified,omitempty"`
	CoeDate      string          `json:"coeDate,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

const reportDateLayout = "2006-01-02"

func formatReportDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(reportDateLayout)
}

func transactionRow(row workflow.ResolvedReportRow) *SalesTransactionRow {
	r := row.Record
	return &SalesTransactionRow{
		Project:        r.AltProjectName,
		BuildingId:     row.BuildingID,
		UnitNumber:     r.ContractUnitNumber,
		UnitName:       r.UnitName,
		Status:         row.EffectiveStatus,
		StatusNumeric:  row.EffectiveStatusNumeric,
		StatusOverride: row.StatusOverridden,
		Milestone:      row.MilestoneCode,
		MilestoneDate:  formatReportDate(row.MilestoneDate),
		Buyers:         r.BuyersCombined,
		FinalPrice:     r.FinalPrice,
		Cash:           utils.BoolDisplay(r.Cash),
		WeekRatified:   formatReportDate(r.WeekRatifiedDate),
		CoeDate:        formatReportDate(r.CoeDate),
		Notes:          r.Notes,
	}
}

// GetSalesTransactionReport runs the resolution pipeline over the canonical
// store and returns the assembled presentation rows for the given day.
func GetSalesTransactionReport(ctx context.Context, today time.Time) ([]*SalesTransactionRow, error) {
	started := time.Now()
	cacheKey := fmt.Sprintf("report:sales_transactions:%s", today.Format(reportDateLayout))
	if reportCacheEnabled() {
		var cached []*SalesTransactionRow
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	resolveOpts := workflow.DefaultResolveOptions()
	resolveOpts.StatusOverride = config.OpsStatusOverrideEnabled()

	assembled, err := workflow.BuildReport(ctx, today, workflow.DefaultMergeOptions(), resolveOpts)
	if err != nil {
		return nil, err
	}

	rows := make([]*SalesTransactionRow, 0, len(assembled))
	for _, row := range assembled {
		rows = append(rows, transactionRow(row))
	}

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, rows, reportCacheTTL())
	}
	logSlowReport(ctx, "sales_transactions", started, map[string]any{"rows": len(rows)})
	return rows, nil
}

// HighlightColorFor returns the RGB fill for a status rank, zeroes when the
// rank has no highlight.
func HighlightColorFor(statusNumeric int) ([3]int, bool) {
	c, ok := models.HighlightColors[statusNumeric]
	return c, ok
}
