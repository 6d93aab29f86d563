package s3store

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrNotFound indicates the remote object vanished or never existed.
// Permanent for the object; the run continues.
var ErrNotFound = errors.New("object not found")

// ListError indicates remote enumeration failed after all retries.
// Fatal for the run.
type ListError struct {
	Prefix string
	Err    error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list objects under %s: %v", e.Prefix, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// FetchError indicates a per-object download failed after all retries.
// Recorded against the object; the run continues.
type FetchError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// errSizeMismatch marks a transfer that completed with the wrong byte count.
// Treated as transient: the transfer was truncated, a retry can succeed.
var errSizeMismatch = errors.New("downloaded size mismatch")

// isNotFound reports whether err is an S3 missing-object condition.
func isNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
