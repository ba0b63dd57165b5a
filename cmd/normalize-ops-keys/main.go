// normalize-ops-keys rewrites legacy project and unit keys in the ops
// milestone store to the canonical naming. Dry-run by default; pass --apply
// to write, which also backs up changed rows as JSONL.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/normalize-ops-keys [--apply] [--limit N]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/opssync"
)

func main() {
	apply := flag.Bool("apply", false, "Write the rewrites (default is a dry run)")
	limit := flag.Int("limit", 0, "Cap the number of rewrites, 0 for no cap")
	backup := flag.String("backup", "", "Backup JSONL path (default ops_keys_backup_<timestamp>.jsonl)")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	backupPath := *backup
	if *apply && backupPath == "" {
		backupPath = fmt.Sprintf("ops_keys_backup_%s.jsonl", time.Now().Format("20060102_150405"))
	}

	result, err := opssync.NormalizeOpsKeys(context.Background(), opssync.KeySyncOptions{
		Apply:      *apply,
		Limit:      *limit,
		BackupPath: backupPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "key sync failed: %v\n", err)
		os.Exit(1)
	}

	mode := "dry-run"
	if *apply {
		mode = "apply"
	}
	fmt.Printf("%s: scanned=%d changed=%d applied=%d\n", mode, result.Scanned, result.Changed, result.Applied)
	for _, change := range result.Changes {
		fmt.Printf("  %s / %s -> %s / %s\n", change.OldPk, change.OldSk, change.NewPk, change.NewSk)
	}
	if *apply && result.Applied > 0 {
		fmt.Printf("backup written to %s\n", backupPath)
	}
}
