package s3store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mfaulds/ct-ingest/internal/logctx"
	"github.com/mfaulds/ct-ingest/pkg/cloudtrail"
	"github.com/mfaulds/ct-ingest/pkg/fileutil"
)

// FetchStats describes a completed download.
type FetchStats struct {
	// Bytes is the number of bytes downloaded.
	Bytes int64
	// Duration is how long the successful attempt took.
	Duration time.Duration
	// Attempts is how many tries were needed.
	Attempts int
}

// Fetcher downloads log objects to local raw storage with tmp+rename
// discipline: a file only ever appears at its final path complete.
type Fetcher struct {
	store   ObjectStore
	tmpDir  string
	backoff Backoff
}

// NewFetcher creates a fetcher. tmpDir scopes in-flight transfers; it is
// created on first use.
func NewFetcher(store ObjectStore, tmpDir string, backoff Backoff) *Fetcher {
	if backoff.MaxAttempts <= 0 {
		backoff = DefaultBackoff()
	}
	return &Fetcher{store: store, tmpDir: tmpDir, backoff: backoff}
}

// Fetch downloads ref into destPath. Transient failures (including truncated
// transfers, detected by size mismatch against the listed size) are retried
// with backoff; exhaustion yields a *FetchError. A missing object yields
// ErrNotFound immediately, with no retries.
func (f *Fetcher) Fetch(ctx context.Context, ref cloudtrail.ObjectRef, destPath string) (*FetchStats, error) {
	log := logctx.FromContext(ctx)

	if err := os.MkdirAll(f.tmpDir, 0755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= f.backoff.MaxAttempts; attempt++ {
		start := time.Now()

		n, err := f.fetchOnce(ctx, ref, destPath)
		if err == nil {
			return &FetchStats{Bytes: n, Duration: time.Since(start), Attempts: attempt}, nil
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < f.backoff.MaxAttempts {
			log.Warn().
				Err(err).
				Str("key", ref.Key).
				Int("attempt", attempt).
				Msg("fetch failed, retrying")
			if err := f.backoff.Sleep(ctx, attempt); err != nil {
				break
			}
		}
	}

	return nil, &FetchError{Key: ref.Key, Attempts: f.backoff.MaxAttempts, Err: lastErr}
}

// fetchOnce runs a single transfer attempt into a fresh temp file and, on
// success, publishes it at destPath via atomic rename.
func (f *Fetcher) fetchOnce(ctx context.Context, ref cloudtrail.ObjectRef, destPath string) (int64, error) {
	tmpFile, err := os.CreateTemp(f.tmpDir, filepath.Base(ref.Key)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, err := f.store.Download(ctx, ref.Key, tmpFile)
	if err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return 0, err
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	if n != ref.Size {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: got %d bytes, listed %d", errSizeMismatch, n, ref.Size)
	}

	if err := fileutil.MoveFile(tmpPath, destPath); err != nil {
		return 0, err
	}
	return n, nil
}
