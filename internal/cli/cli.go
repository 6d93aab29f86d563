// Package cli implements the command-line interface for ctingest.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/mfaulds/ct-ingest/internal/logctx"
	"github.com/mfaulds/ct-ingest/pkg/cloudtrail"
	"github.com/mfaulds/ct-ingest/pkg/config"
	"github.com/mfaulds/ct-ingest/pkg/humanfmt"
	"github.com/mfaulds/ct-ingest/pkg/ingest"
	"github.com/mfaulds/ct-ingest/pkg/logging"
	"github.com/mfaulds/ct-ingest/pkg/s3store"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: ctingest <command> [options]\ncommands: run, report")
	}

	switch args[0] {
	case "run":
		return runIngest(args[1:])
	case "report":
		return runReport(args[1:], os.Stdout)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runIngest(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	bucket := fs.String("bucket", "", "S3 bucket name or ARN holding CloudTrail logs")
	account := fs.String("account", "", "AWS account ID in the log key prefix")
	region := fs.String("region", "", "region segment of the log key prefix")
	start := fs.String("start", "", "first day to ingest (YYYY-MM-DD)")
	end := fs.String("end", "", "last day to ingest (YYYY-MM-DD, default: same as --start)")
	dataDir := fs.String("data-dir", cfg.DataDir, "root directory for raw/, processed/ and reports/")
	concurrency := fs.Int("concurrency", cfg.Concurrency, "parallel workers (0 = auto)")
	skipValidate := fs.Bool("skip-validate", !cfg.ValidateRecords, "skip payload structure validation")
	debug := fs.Bool("debug", cfg.Debug, "enable debug logging")
	human := fs.Bool("human", cfg.HumanLogs, "human-friendly console logging")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *bucket == "" {
		return errors.New("--bucket is required")
	}
	if *account == "" {
		return errors.New("--account is required")
	}
	if *region == "" {
		return errors.New("--region is required")
	}
	if *start == "" {
		return errors.New("--start is required")
	}

	dateRange, err := cloudtrail.ParseDateRange(*start, *end)
	if err != nil {
		return err
	}

	bucketName, err := s3store.ParseBucket(*bucket)
	if err != nil {
		return err
	}

	logging.Init(*debug, *human)
	log := logging.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logctx.WithLogger(ctx, *log)

	store, err := s3store.NewClient(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("create S3 client: %w", err)
	}

	cfg.DataDir = *dataDir
	cfg.Concurrency = *concurrency
	pipeline := ingest.New(store, ingest.Layout{DataDir: cfg.DataDir}, ingest.Options{
		Concurrency:     cfg.EffectiveConcurrency(),
		ValidateRecords: !*skipValidate,
		Backoff: s3store.Backoff{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.RetryInitialDelay,
			MaxDelay:     cfg.RetryMaxDelay,
			Multiplier:   2.0,
			Jitter:       true,
		},
	})

	log.Info().
		Str("bucket", bucketName).
		Str("account", *account).
		Str("region", *region).
		Str("range", dateRange.String()).
		Msg("starting ingestion run")

	report, err := pipeline.Run(ctx, ingest.Params{
		Account: *account,
		Region:  *region,
		Range:   dateRange,
	})
	if err != nil {
		return err
	}

	if report.Status == ingest.StatusFailure {
		return fmt.Errorf("run %s failed: 0 of %d objects ingested", report.RunID, report.Total)
	}
	return nil
}

func runReport(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	file := fs.String("file", "", "path to an integrity report JSON file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("--file is required")
	}

	report, err := ingest.ReadReport(*file)
	if err != nil {
		return err
	}
	printReport(w, report)
	return nil
}

func printReport(w io.Writer, r *ingest.Report) {
	fmt.Fprintf(w, "run:          %s\n", r.RunID)
	fmt.Fprintf(w, "status:       %s\n", r.Status)
	fmt.Fprintf(w, "account:      %s\n", r.Account)
	fmt.Fprintf(w, "region:       %s\n", r.Region)
	fmt.Fprintf(w, "range:        %s to %s\n", r.StartDate, r.EndDate)
	fmt.Fprintf(w, "objects:      %d total, %d succeeded, %d failed\n", r.Total, r.Succeeded, r.Failed)
	fmt.Fprintf(w, "success rate: %s\n", humanfmt.Percent(r.SuccessRate))

	if len(r.FailureKind) > 0 {
		kinds := make([]string, 0, len(r.FailureKind))
		for kind := range r.FailureKind {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		fmt.Fprintln(w, "failures:")
		for _, kind := range kinds {
			fmt.Fprintf(w, "  %-16s %d\n", kind, r.FailureKind[ingest.FailureKind(kind)])
		}
	}
	for _, key := range r.FailedKeys {
		fmt.Fprintf(w, "failed key: %s\n", key)
	}
}
