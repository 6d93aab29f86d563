package decompress

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func writeGzip(t *testing.T, path string, payload []byte) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

const validPayload = `{"Records":[{"eventName":"GetObject","awsRegion":"us-east-1"}]}`

func TestDecompressRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "log.json.gz")
	dest := filepath.Join(tmpDir, "processed", "log.json")
	writeGzip(t, src, []byte(validPayload))

	d := New(tmpDir, false)
	stats, err := d.Decompress(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read processed file: %v", err)
	}
	if string(got) != validPayload {
		t.Errorf("round trip mismatch: got %q", got)
	}
	if stats.BytesWritten != int64(len(validPayload)) {
		t.Errorf("BytesWritten = %d, want %d", stats.BytesWritten, len(validPayload))
	}
}

func TestDecompressCorruptArchive(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "bad.json.gz")
	dest := filepath.Join(tmpDir, "processed", "bad.json")
	if err := os.WriteFile(src, []byte("this is not gzip"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	d := New(tmpDir, false)
	_, err := d.Decompress(context.Background(), src, dest)
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("error = %v, want ErrCorruptArchive", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("file exists at final path for corrupt archive")
	}
}

func TestDecompressTruncatedArchive(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "trunc.json.gz")
	dest := filepath.Join(tmpDir, "processed", "trunc.json")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte(validPayload))
	gz.Close()
	// Cut the stream mid-body
	if err := os.WriteFile(src, buf.Bytes()[:buf.Len()/2], 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	d := New(tmpDir, false)
	_, err := d.Decompress(context.Background(), src, dest)
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("error = %v, want ErrCorruptArchive", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("file exists at final path for truncated archive")
	}
}

func TestDecompressValidatesRecords(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "notct.json.gz")
	dest := filepath.Join(tmpDir, "processed", "notct.json")
	writeGzip(t, src, []byte(`{"SomethingElse":true}`))

	d := New(tmpDir, true)
	_, err := d.Decompress(context.Background(), src, dest)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("error = %v, want ErrInvalidPayload", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("invalid payload was published to final path")
	}
}

func TestDecompressValidPayloadWithValidation(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "ok.json.gz")
	dest := filepath.Join(tmpDir, "processed", "ok.json")
	writeGzip(t, src, []byte(validPayload))

	d := New(tmpDir, true)
	if _, err := d.Decompress(context.Background(), src, dest); err != nil {
		t.Fatalf("Decompress: %v", err)
	}
}

func TestDecompressCancelled(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "big.json.gz")
	dest := filepath.Join(tmpDir, "processed", "big.json")
	writeGzip(t, src, bytes.Repeat([]byte("a"), 1<<20))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(tmpDir, false)
	_, err := d.Decompress(ctx, src, dest)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("cancelled decompression left a file at the final path")
	}
}

func TestDecompressMissingSource(t *testing.T) {
	tmpDir := t.TempDir()
	d := New(tmpDir, false)
	_, err := d.Decompress(context.Background(), filepath.Join(tmpDir, "nope.gz"), filepath.Join(tmpDir, "out.json"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}
