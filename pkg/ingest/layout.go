// Package ingest runs the CloudTrail log ingestion pipeline: list, fetch,
// decompress, report.
package ingest

import (
	"path/filepath"
	"time"

	"github.com/mfaulds/ct-ingest/pkg/cloudtrail"
)

// Layout maps remote keys into the local data directory tree.
//
//	data/raw/<key>            downloaded, still-compressed objects
//	data/processed/<key>.json decompressed logs, mirroring the key hierarchy
//	data/reports/             one integrity report per run
//	data/tmp/                 scoped in-flight transfers, cleaned at startup
//
// The processed tree is the contract with the downstream query engine; its
// structure mirrors the remote keys exactly.
type Layout struct {
	DataDir string
}

// RawDir returns the root of raw (compressed) storage.
func (l Layout) RawDir() string {
	return filepath.Join(l.DataDir, "raw")
}

// ProcessedDir returns the root of processed (decompressed) storage.
func (l Layout) ProcessedDir() string {
	return filepath.Join(l.DataDir, "processed")
}

// ReportsDir returns the directory holding integrity reports.
func (l Layout) ReportsDir() string {
	return filepath.Join(l.DataDir, "reports")
}

// TmpDir returns the scratch directory for in-flight writes.
func (l Layout) TmpDir() string {
	return filepath.Join(l.DataDir, "tmp")
}

// RawPath returns the local path for a downloaded object.
func (l Layout) RawPath(key string) string {
	return filepath.Join(l.RawDir(), filepath.FromSlash(key))
}

// ProcessedPath returns the local path for a decompressed object.
func (l Layout) ProcessedPath(key string) string {
	return filepath.Join(l.ProcessedDir(), filepath.FromSlash(cloudtrail.ProcessedName(key)))
}

// ReportPath returns the report file path for a run started at ts.
func (l Layout) ReportPath(ts time.Time) string {
	return filepath.Join(l.ReportsDir(), "run-"+ts.UTC().Format("20060102T150405Z")+".json")
}
