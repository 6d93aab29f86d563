package ingest

import (
	"errors"

	"github.com/mfaulds/ct-ingest/pkg/cloudtrail"
	"github.com/mfaulds/ct-ingest/pkg/decompress"
	"github.com/mfaulds/ct-ingest/pkg/s3store"
)

// FailureKind classifies an object's terminal failure.
type FailureKind string

const (
	// FailureFetch is a download that failed after all retries.
	FailureFetch FailureKind = "fetch_error"
	// FailureNotFound is an object that vanished or never existed.
	FailureNotFound FailureKind = "not_found"
	// FailureCorrupt is a malformed compressed stream.
	FailureCorrupt FailureKind = "corrupt_archive"
	// FailureInvalidPayload is a decompressed payload that is not a
	// CloudTrail Records document.
	FailureInvalidPayload FailureKind = "invalid_payload"
	// FailureDecompress is a local I/O failure during inflation.
	FailureDecompress FailureKind = "decompress_error"
)

// FetchResult is the outcome of downloading one object.
type FetchResult struct {
	Ref     cloudtrail.ObjectRef
	RawPath string
	Bytes   int64
	Err     error
}

// DecompressResult is the terminal outcome for one object, carrying its
// fetch result and the processed path on success.
type DecompressResult struct {
	Fetch         FetchResult
	ProcessedPath string
	Err           error
}

// Failed reports whether the object reached a terminal failure.
func (r DecompressResult) Failed() bool {
	return r.Fetch.Err != nil || r.Err != nil
}

// FailureKind returns the classification of the terminal failure, or "" for
// success.
func (r DecompressResult) FailureKind() FailureKind {
	if err := r.Fetch.Err; err != nil {
		if errors.Is(err, s3store.ErrNotFound) {
			return FailureNotFound
		}
		return FailureFetch
	}
	if err := r.Err; err != nil {
		switch {
		case errors.Is(err, decompress.ErrInvalidPayload):
			return FailureInvalidPayload
		case errors.Is(err, decompress.ErrCorruptArchive):
			return FailureCorrupt
		default:
			return FailureDecompress
		}
	}
	return ""
}

// failureMessage returns the terminal error text, or "" for success.
func (r DecompressResult) failureMessage() string {
	if r.Fetch.Err != nil {
		return r.Fetch.Err.Error()
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return ""
}
