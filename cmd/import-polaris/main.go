// import-polaris ingests one weekly sales spreadsheet export into the
// canonical store.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/import-polaris --file weekly_export.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/models"
	"bitbucket.org/hbfadata/mylar_backend/opssync"
)

func main() {
	filePath := flag.String("file", "", "Required: path to the xlsx export")
	sheetName := flag.String("sheet", models.DefaultSheetName, "Worksheet name")
	skipRows := flag.Int("skip-rows", models.DefaultSkipRows, "Header rows to skip before the column row")
	extractedStr := flag.String("extracted-at", "", "Extraction timestamp (YYYY-MM-DD), defaults to the file's modification time")
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		os.Exit(1)
	}

	f, err := os.Open(*filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open export: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	extractedAt := time.Now()
	if strings.TrimSpace(*extractedStr) != "" {
		d, perr := time.Parse("2006-01-02", strings.TrimSpace(*extractedStr))
		if perr != nil {
			fmt.Fprintf(os.Stderr, "invalid extracted-at date: %v\n", perr)
			os.Exit(1)
		}
		extractedAt = d
	} else if info, serr := f.Stat(); serr == nil {
		extractedAt = info.ModTime()
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	result, err := opssync.ImportPolarisExport(context.Background(), f, filepath.Base(*filePath), extractedAt, *sheetName, *skipRows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("imported %s: parsed=%d saved=%d skipped=%d extracted_at=%s\n",
		result.SourceFile, result.RowsParsed, result.RowsSaved, result.RowsSkipped,
		result.ExtractedAt.Format("2006-01-02"))
}
