// generate-report runs the resolution pipeline and writes the report
// workbook to a local file, optionally uploading it to GCS.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/generate-report --out sales_report.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/models/reports"
	"bitbucket.org/hbfadata/mylar_backend/utils"
	"github.com/google/uuid"
)

func main() {
	outPath := flag.String("out", "", "Output xlsx path (default sales_report_<date>.xlsx)")
	dateStr := flag.String("date", "", "Resolve milestones as of this date (YYYY-MM-DD), defaults to today")
	upload := flag.Bool("upload", false, "Also upload the workbook to GCS_BUCKET")
	flag.Parse()

	today := time.Now()
	if strings.TrimSpace(*dateStr) != "" {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(*dateStr))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid date: %v\n", err)
			os.Exit(1)
		}
		today = d
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx := context.Background()
	rows, err := reports.GetSalesTransactionReport(ctx, today)
	if err != nil {
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}
	summary, err := reports.GetSalesSummaryReport(ctx, today)
	if err != nil {
		fmt.Fprintf(os.Stderr, "summary failed: %v\n", err)
		os.Exit(1)
	}
	data, err := reports.RenderWorkbook(rows, summary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		os.Exit(1)
	}

	out := strings.TrimSpace(*outPath)
	if out == "" {
		out = fmt.Sprintf("sales_report_%s.xlsx", today.Format("2006-01-02"))
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write workbook: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s: rows=%d projects=%d\n", out, len(rows), len(summary))

	if *upload {
		path, err := utils.UploadReportToGCS(ctx, uuid.NewString(), out, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("uploaded to %s\n", path)
	}
}
