package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	transactionSheet = "Sales Report"
	summarySheet     = "Summary"
)

var transactionHeaders = []string{
	"Project", "Building", "Unit", "Status", "Milestone", "Milestone Date",
	"Buyers", "Final Price", "Cash", "Week Ratified", "COE Date", "Notes",
}

var summaryHeaders = []string{
	"Project", "YTD Sales", "YTD Closed", "Total Closed", "Backlog", "Inventory",
}

func highlightStyle(f *excelize.File, statusNumeric int, cache map[int]int) (int, error) {
	if styleID, ok := cache[statusNumeric]; ok {
		return styleID, nil
	}
	rgb, ok := HighlightColorFor(statusNumeric)
	if !ok {
		cache[statusNumeric] = 0
		return 0, nil
	}
	styleID, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{fmt.Sprintf("%02X%02X%02X", rgb[0], rgb[1], rgb[2])},
		},
	})
	if err != nil {
		return 0, err
	}
	cache[statusNumeric] = styleID
	return styleID, nil
}

// RenderReportExcel renders both report sheets and returns the workbook
// bytes ready for upload.
func RenderReportExcel(ctx context.Context, today time.Time) ([]byte, error) {
	rows, err := GetSalesTransactionReport(ctx, today)
	if err != nil {
		return nil, err
	}
	summary, err := GetSalesSummaryReport(ctx, today)
	if err != nil {
		return nil, err
	}
	return RenderWorkbook(rows, summary)
}

// RenderWorkbook builds the workbook from already-computed report rows.
func RenderWorkbook(rows []*SalesTransactionRow, summary []*SalesSummaryRow) ([]byte, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(transactionSheet)
	if err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, h := range transactionHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(transactionSheet, cell, h)
	}

	styles := map[int]int{}
	for i, d := range rows {
		rowNo := i + 2
		values := []interface{}{
			d.Project, d.BuildingId, d.UnitNumber, d.Status, d.Milestone, d.MilestoneDate,
			d.Buyers, d.FinalPrice, d.Cash, d.WeekRatified, d.CoeDate, d.Notes,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNo)
			f.SetCellValue(transactionSheet, cell, v)
		}

		styleID, serr := highlightStyle(f, d.StatusNumeric, styles)
		if serr != nil {
			return nil, serr
		}
		if styleID != 0 {
			statusCell, _ := excelize.CoordinatesToCellName(4, rowNo)
			f.SetCellStyle(transactionSheet, statusCell, statusCell, styleID)
		}
	}

	for i, h := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(summarySheet, cell, h)
	}
	for i, d := range summary {
		rowNo := i + 2
		values := []interface{}{d.Project, d.YtdSales, d.YtdClosed, d.TotalClosed, d.Backlog, d.Inventory}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNo)
			f.SetCellValue(summarySheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
