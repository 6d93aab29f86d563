// Package decompress inflates downloaded CloudTrail log objects into
// processed storage, streaming so memory use stays flat regardless of
// object size.
package decompress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/mfaulds/ct-ingest/internal/logctx"
	"github.com/mfaulds/ct-ingest/pkg/cloudtrail"
	"github.com/mfaulds/ct-ingest/pkg/fileutil"
)

var (
	// ErrCorruptArchive indicates a malformed gzip stream. Permanent for
	// the object; retrying cannot help.
	ErrCorruptArchive = errors.New("corrupt gzip archive")
	// ErrInvalidPayload indicates the decompressed payload is not a
	// CloudTrail Records document. Permanent for the object.
	ErrInvalidPayload = errors.New("invalid CloudTrail payload")
)

// Stats describes a completed decompression.
type Stats struct {
	// BytesWritten is the decompressed output size.
	BytesWritten int64
	// Duration is how long the inflation took.
	Duration time.Duration
}

// Decompressor inflates gzip files with tmp+rename publish semantics.
type Decompressor struct {
	tmpDir   string
	validate bool
}

// New creates a decompressor. If validate is true, each decompressed payload
// is checked to be a JSON object with a Records array before being published.
func New(tmpDir string, validate bool) *Decompressor {
	return &Decompressor{tmpDir: tmpDir, validate: validate}
}

// Decompress inflates srcPath into destPath. The output appears at destPath
// only once complete and (optionally) validated.
func (d *Decompressor) Decompress(ctx context.Context, srcPath, destPath string) (*Stats, error) {
	log := logctx.FromContext(ctx)
	start := time.Now()

	var written int64
	err := fileutil.WriteTmpThenMove(d.tmpDir, destPath, func(tmpPath string) error {
		n, err := d.inflate(ctx, srcPath, tmpPath)
		if err != nil {
			return err
		}
		written = n

		if d.validate {
			if err := validateFile(tmpPath); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats := &Stats{BytesWritten: written, Duration: time.Since(start)}
	log.Debug().
		Str("src", srcPath).
		Str("dest", destPath).
		Int64("bytes", written).
		Msg("decompressed")
	return stats, nil
}

func (d *Decompressor) inflate(ctx context.Context, srcPath, tmpPath string) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("open raw file: %w", err)
	}
	defer src.Close()

	gz, err := gzip.NewReader(src)
	if err != nil {
		return 0, corruptErr(srcPath, err)
	}
	defer gz.Close()

	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}

	n, err := copyWithContext(ctx, out, gz)
	if err != nil {
		out.Close()
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, corruptErr(srcPath, err)
	}

	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close output file: %w", err)
	}
	return n, nil
}

// copyWithContext copies in chunks, checking for cancellation between reads.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 256*1024)
	var written int64
	for {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}

		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, fmt.Errorf("write output: %w", werr)
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return written, nil
			}
			return written, rerr
		}
	}
}

func corruptErr(srcPath string, err error) error {
	return fmt.Errorf("inflate %s: %w: %v", srcPath, ErrCorruptArchive, err)
}

func validateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open for validation: %w", err)
	}
	defer f.Close()

	if err := cloudtrail.ValidateRecords(f); err != nil {
		return fmt.Errorf("validate %s: %w: %v", path, ErrInvalidPayload, err)
	}
	return nil
}
