package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// fakeStore is an in-memory ObjectStore. Keys map to payloads; failure
// injection is per prefix (listing) and per key (download).
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	pageSize int

	// listFailures[prefix] is how many times listing that prefix fails
	// before succeeding.
	listFailures map[string]int

	// downloadFailures[key] is how many times downloading that key fails
	// before succeeding.
	downloadFailures map[string]int

	// truncateOnce[key] makes the first download write only half the bytes
	// but report the short count, simulating a truncated transfer.
	truncateOnce map[string]bool

	// missing marks keys that exist in listings but 404 on download.
	missing map[string]bool

	listCalls     int
	downloadCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:          make(map[string][]byte),
		pageSize:         1000,
		listFailures:     make(map[string]int),
		downloadFailures: make(map[string]int),
		truncateOnce:     make(map[string]bool),
		missing:          make(map[string]bool),
	}
}

func (s *fakeStore) put(key string, data []byte) {
	s.objects[key] = data
}

func (s *fakeStore) ListPage(ctx context.Context, prefix, token string) (*ListPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++

	if n := s.listFailures[prefix]; n > 0 {
		s.listFailures[prefix] = n - 1
		return nil, errors.New("injected listing failure")
	}

	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	start := 0
	if token != "" {
		if _, err := fmt.Sscanf(token, "%d", &start); err != nil {
			return nil, fmt.Errorf("bad token %q", token)
		}
	}

	end := start + s.pageSize
	if end > len(keys) {
		end = len(keys)
	}

	page := &ListPage{}
	for _, key := range keys[start:end] {
		page.Objects = append(page.Objects, ListedObject{Key: key, Size: int64(len(s.objects[key]))})
	}
	if end < len(keys) {
		page.NextToken = fmt.Sprintf("%d", end)
	}
	return page, nil
}

func (s *fakeStore) Download(ctx context.Context, key string, w io.WriterAt) (int64, error) {
	s.mu.Lock()
	s.downloadCalls++

	if s.missing[key] {
		s.mu.Unlock()
		return 0, fmt.Errorf("get object %s: %w", key, ErrNotFound)
	}
	if n := s.downloadFailures[key]; n > 0 {
		s.downloadFailures[key] = n - 1
		s.mu.Unlock()
		return 0, errors.New("injected download failure")
	}

	data, ok := s.objects[key]
	truncate := s.truncateOnce[key]
	if truncate {
		s.truncateOnce[key] = false
	}
	s.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("get object %s: %w", key, ErrNotFound)
	}

	if truncate {
		half := data[:len(data)/2]
		if _, err := w.WriteAt(half, 0); err != nil {
			return 0, err
		}
		return int64(len(half)), nil
	}

	if _, err := w.WriteAt(data, 0); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// testBackoff keeps retries fast in tests.
func testBackoff() Backoff {
	return Backoff{MaxAttempts: 3, InitialDelay: 1, MaxDelay: 10, Multiplier: 2.0}
}
