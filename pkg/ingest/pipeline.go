package ingest

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mfaulds/ct-ingest/internal/logctx"
	"github.com/mfaulds/ct-ingest/pkg/cloudtrail"
	"github.com/mfaulds/ct-ingest/pkg/decompress"
	"github.com/mfaulds/ct-ingest/pkg/fileutil"
	"github.com/mfaulds/ct-ingest/pkg/humanfmt"
	"github.com/mfaulds/ct-ingest/pkg/logging"
	"github.com/mfaulds/ct-ingest/pkg/s3store"
)

// Params identifies what one run ingests.
type Params struct {
	Account string
	Region  string
	Range   cloudtrail.DateRange
}

// Options tunes how a run executes.
type Options struct {
	// Concurrency is the number of parallel workers (default: 4).
	Concurrency int
	// ValidateRecords enables payload structure validation after inflation.
	ValidateRecords bool
	// Backoff is the retry policy for listing and fetching.
	Backoff s3store.Backoff
	// ProgressInterval is how often a progress line is logged (default: 15s).
	ProgressInterval time.Duration
}

// Pipeline ingests CloudTrail logs: list, fetch, decompress, report.
type Pipeline struct {
	store  s3store.ObjectStore
	layout Layout
	opts   Options
}

// New creates a pipeline over the store, writing into layout.
func New(store s3store.ObjectStore, layout Layout, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Backoff.MaxAttempts <= 0 {
		opts.Backoff = s3store.DefaultBackoff()
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 15 * time.Second
	}
	return &Pipeline{store: store, layout: layout, opts: opts}
}

// Run executes one ingestion run and returns its integrity report. Per-object
// failures are recorded in the report and never abort the run; a listing
// failure or cancellation aborts with an error and no report file.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Report, error) {
	log := logctx.FromContext(ctx)
	started := time.Now().UTC()

	// A previous run killed mid-write may have left temp files behind.
	if err := fileutil.CleanupTmpFiles(p.layout.TmpDir()); err != nil {
		log.Warn().Err(err).Msg("tmp cleanup failed")
	}

	lister := s3store.NewLister(p.store, p.opts.Backoff)
	refs, err := lister.List(ctx, params.Account, params.Region, params.Range)
	if err != nil {
		return nil, fmt.Errorf("list log objects: %w", err)
	}

	results, err := p.processAll(ctx, refs)
	if err != nil {
		return nil, err
	}

	report := BuildReport(params, results, started, time.Now().UTC())

	reportPath := p.layout.ReportPath(started)
	if err := report.Write(p.layout.TmpDir(), reportPath); err != nil {
		return nil, fmt.Errorf("write integrity report: %w", err)
	}

	log.Info().
		Str("run_id", report.RunID).
		Str("status", report.Status).
		Int("total", report.Total).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Str("success_rate", humanfmt.Percent(report.SuccessRate)).
		Str("report", reportPath).
		Str("elapsed", humanfmt.Duration(time.Since(started))).
		Msg("run complete")
	return report, nil
}

// processAll fans refs out to the worker pool. Every ref yields exactly one
// terminal result; only cancellation aborts early.
func (p *Pipeline) processAll(ctx context.Context, refs []cloudtrail.ObjectRef) ([]DecompressResult, error) {
	log := logctx.FromContext(ctx)

	tracker := logging.NewProgressTracker("ingest", int64(len(refs)), log)
	progressDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(p.opts.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-progressDone:
				return
			case <-ticker.C:
				tracker.LogProgress()
			}
		}
	}()
	defer close(progressDone)

	fetcher := s3store.NewFetcher(p.store, p.layout.TmpDir(), p.opts.Backoff)
	dec := decompress.New(p.layout.TmpDir(), p.opts.ValidateRecords)

	results := make([]DecompressResult, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for i, ref := range refs {
		g.Go(func() error {
			// Stop dispatching once the run is cancelled; in-flight
			// objects finish or fail cleanly on their own.
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.processObject(gctx, ref, fetcher, dec, tracker)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// processObject takes one object through fetch and decompress. All failures
// are captured in the result, never returned.
func (p *Pipeline) processObject(ctx context.Context, ref cloudtrail.ObjectRef, fetcher *s3store.Fetcher, dec *decompress.Decompressor, tracker *logging.ProgressTracker) DecompressResult {
	ctx = logctx.WithStr(ctx, "key", ref.Key)
	log := logctx.FromContext(ctx)
	start := time.Now()

	result := DecompressResult{
		Fetch: FetchResult{Ref: ref, RawPath: p.layout.RawPath(ref.Key)},
	}

	stats, err := fetcher.Fetch(ctx, ref, result.Fetch.RawPath)
	if err != nil {
		result.Fetch.Err = err
		tracker.RecordFailure()
		log.Error().Err(err).Msg("fetch failed")
		return result
	}
	result.Fetch.Bytes = stats.Bytes

	processedPath := p.layout.ProcessedPath(ref.Key)
	if _, err := dec.Decompress(ctx, result.Fetch.RawPath, processedPath); err != nil {
		result.Err = err
		tracker.RecordFailure()
		log.Error().Err(err).Msg("decompress failed")
		return result
	}
	result.ProcessedPath = processedPath

	tracker.RecordCompletion(time.Since(start), stats.Bytes)
	log.Debug().
		Int64("bytes", stats.Bytes).
		Int("attempts", stats.Attempts).
		Str("duration", humanfmt.Duration(time.Since(start))).
		Msg("object ingested")
	return result
}
