package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mfaulds/ct-ingest/pkg/fileutil"
)

// Run status values.
const (
	StatusSuccess        = "SUCCESS"
	StatusPartialSuccess = "PARTIAL_SUCCESS"
	StatusFailure        = "FAILURE"
)

// ObjectOutcome is one object's terminal result as recorded in the report.
type ObjectOutcome struct {
	Key           string      `json:"key"`
	Size          int64       `json:"size"`
	OK            bool        `json:"ok"`
	Failure       FailureKind `json:"failure,omitempty"`
	Error         string      `json:"error,omitempty"`
	ProcessedPath string      `json:"processed_path,omitempty"`
}

// Report is the integrity report for one run. It is written once on
// completion and never mutated afterwards.
type Report struct {
	RunID      string    `json:"run_id"`
	Account    string    `json:"account"`
	Region     string    `json:"region"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Total       int                 `json:"total"`
	Succeeded   int                 `json:"succeeded"`
	Failed      int                 `json:"failed"`
	FailureKind map[FailureKind]int `json:"failures_by_kind,omitempty"`
	SuccessRate float64             `json:"success_rate"`
	Status      string              `json:"status"`

	FailedKeys []string        `json:"failed_keys,omitempty"`
	Outcomes   []ObjectOutcome `json:"outcomes"`
}

// BuildReport assembles the report from per-object results. Outcomes are
// sorted by key so two runs over identical remote state produce identical
// reports, modulo run id and timestamps.
func BuildReport(params Params, results []DecompressResult, started, finished time.Time) *Report {
	r := &Report{
		RunID:       uuid.NewString(),
		Account:     params.Account,
		Region:      params.Region,
		StartDate:   params.Range.Start.Format("2006-01-02"),
		EndDate:     params.Range.End.Format("2006-01-02"),
		StartedAt:   started.UTC(),
		FinishedAt:  finished.UTC(),
		Total:       len(results),
		FailureKind: make(map[FailureKind]int),
	}

	slices.SortFunc(results, func(a, b DecompressResult) int {
		return strings.Compare(a.Fetch.Ref.Key, b.Fetch.Ref.Key)
	})

	for _, res := range results {
		outcome := ObjectOutcome{
			Key:  res.Fetch.Ref.Key,
			Size: res.Fetch.Ref.Size,
		}
		if res.Failed() {
			kind := res.FailureKind()
			outcome.Failure = kind
			outcome.Error = res.failureMessage()
			r.Failed++
			r.FailureKind[kind]++
			r.FailedKeys = append(r.FailedKeys, outcome.Key)
		} else {
			outcome.OK = true
			outcome.ProcessedPath = res.ProcessedPath
			r.Succeeded++
		}
		r.Outcomes = append(r.Outcomes, outcome)
	}

	if r.Total > 0 {
		r.SuccessRate = float64(r.Succeeded) * 100.0 / float64(r.Total)
	} else {
		r.SuccessRate = 100.0
	}

	switch {
	case r.Failed == 0:
		r.Status = StatusSuccess
	case r.Succeeded > 0:
		r.Status = StatusPartialSuccess
	default:
		r.Status = StatusFailure
	}

	if len(r.FailureKind) == 0 {
		r.FailureKind = nil
	}
	return r
}

// Write persists the report atomically at path.
func (r *Report) Write(tmpDir, path string) error {
	return fileutil.WriteTmpThenMove(tmpDir, path, func(tmpPath string) error {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		return nil
	})
}

// ReadReport loads a previously written report.
func ReadReport(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	var r Report
	if err := json.NewDecoder(f).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &r, nil
}
