package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/models"
	"bitbucket.org/hbfadata/mylar_backend/utils"
	"bitbucket.org/hbfadata/mylar_backend/workflow"
)

// SalesSummaryRow is one project's rollup line.
type SalesSummaryRow struct {
	Project     string `json:"project"`
	YtdSales    int    `json:"ytdSales"`
	YtdClosed   int    `json:"ytdClosed"`
	TotalClosed int    `json:"totalClosed"`
	Backlog     int    `json:"backlog"`
	Inventory   int    `json:"inventory"`
}

// ComputeSummary rolls up the unfiltered resolved rows per project. It runs
// on the resolved set, not the assembled one: prior-year closings count
// toward totals even though the transaction report hides them.
func ComputeSummary(rows []workflow.ResolvedReportRow, today time.Time) []*SalesSummaryRow {
	year := today.Year()
	closedRank := models.OverrideCategoryNumeric[models.CategoryClosed]
	backlogRank := models.OverrideCategoryNumeric[models.CategoryBacklog]

	byProject := make(map[string]*SalesSummaryRow)
	for _, row := range rows {
		project := row.Record.AltProjectName
		if project == "" {
			project = row.Record.ProjectName
		}
		line := byProject[project]
		if line == nil {
			line = &SalesSummaryRow{Project: project}
			byProject[project] = line
		}

		// Rows are already merged, so each one is a distinct unit.
		line.Inventory++
		if row.Record.WeekRatifiedDate != nil && row.Record.WeekRatifiedDate.Year() == year {
			line.YtdSales++
		}
		switch row.EffectiveStatusNumeric {
		case closedRank:
			line.TotalClosed++
			if row.Record.CoeDate != nil && row.Record.CoeDate.Year() == year {
				line.YtdClosed++
			}
		case backlogRank:
			line.Backlog++
		}
	}

	out := make([]*SalesSummaryRow, 0, len(byProject))
	for _, line := range byProject {
		line.Inventory -= line.TotalClosed
		out = append(out, line)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Project < out[b].Project })
	return out
}

// GetSalesSummaryReport computes the per-project rollup for the given day.
func GetSalesSummaryReport(ctx context.Context, today time.Time) ([]*SalesSummaryRow, error) {
	started := time.Now()
	cacheKey := fmt.Sprintf("report:sales_summary:%s", today.Format(reportDateLayout))
	if reportCacheEnabled() {
		var cached []*SalesSummaryRow
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	offers, err := models.ListSalesOffers(ctx)
	if err != nil {
		return nil, err
	}
	items, err := models.ListOpsMilestones(ctx)
	if err != nil {
		return nil, err
	}
	if len(offers) == 0 && len(items) == 0 {
		return nil, utils.ErrorEmptyInput
	}

	resolveOpts := workflow.DefaultResolveOptions()
	resolveOpts.StatusOverride = config.OpsStatusOverrideEnabled()

	entries, _ := workflow.EntriesFromOpsItems(items)
	resolved := workflow.ResolveRecords(offers, entries, today, workflow.DefaultMergeOptions(), resolveOpts)
	summary := ComputeSummary(resolved, today)

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, summary, reportCacheTTL())
	}
	logSlowReport(ctx, "sales_summary", started, map[string]any{"projects": len(summary)})
	return summary, nil
}
