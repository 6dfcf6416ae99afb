// reconcile-reports runs one reconcile batch from the command line, bypassing
// the HTTP surface. Useful for backfills: point it at a JSON manifest of
// uploaded report files and it drives the same engine the server does.
//
// Manifest format:
//
//	[{"fileName": "Essay1 (1)", "storagePath": "reports/user-3/abc.pdf"}, ...]
//
// Usage:
//
//	DB_USER=... DB_NAME=... GCS_BUCKET=... go run ./cmd/reconcile-reports --manifest batch.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/checks_backend/config"
	"bitbucket.org/mmdatafocus/checks_backend/workflow"
)

func main() {
	manifestPath := flag.String("manifest", "", "Required: path to a JSON manifest of report files")
	dryRun := flag.Bool("dry-run", false, "If true, only print the parsed manifest")
	flag.Parse()

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "--manifest is required")
		os.Exit(1)
	}

	raw, err := os.ReadFile(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read manifest: %v\n", err)
		os.Exit(1)
	}
	var files []workflow.ReportFile
	if err := json.Unmarshal(raw, &files); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse manifest: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "manifest is empty")
		os.Exit(1)
	}
	for i, f := range files {
		if f.FileName == "" || f.StoragePath == "" {
			fmt.Fprintf(os.Stderr, "manifest entry %d needs fileName and storagePath\n", i)
			os.Exit(1)
		}
	}

	if *dryRun {
		fmt.Printf("[dry-run] %d report files parsed; no batch run\n", len(files))
		return
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()

	ctx := context.Background()
	lock, err := workflow.AcquireBatchLock(ctx, 10*time.Minute)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not acquire batch lock: %v\n", err)
		os.Exit(1)
	}
	defer workflow.ReleaseBatchLock(ctx, lock)

	result, err := workflow.ProcessReportReconciliationWorkflow(ctx, db, logger, files)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconciliation failed: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
