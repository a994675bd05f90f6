package filecache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu      sync.Mutex
	files   map[string][]byte
	fetches map[string]int
}

func newStubRunner() *stubRunner {
	return &stubRunner{files: make(map[string][]byte), fetches: make(map[string]int)}
}

func (r *stubRunner) FetchPath(ctx context.Context, path string) (string, bool) {
	return "", false
}

func (r *stubRunner) FetchFile(ctx context.Context, path string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches[path]++
	contents, ok := r.files[path]
	return contents, ok
}

func TestOpenFetchesOnceAndCaches(t *testing.T) {
	runner := newStubRunner()
	runner.files["/hello.txt"] = []byte("hello world")

	cache := New(runner)

	contents, ok := cache.Open(context.Background(), "/hello.txt")
	require.True(t, ok)
	assert.Equal(t, "hello world", string(contents))

	_, ok = cache.Open(context.Background(), "/hello.txt")
	require.True(t, ok, "expected second open to succeed from cache")

	assert.Equal(t, 1, runner.fetches["/hello.txt"], "expected exactly 1 remote fetch")
}

func TestOpenMissingFileReturnsNotFound(t *testing.T) {
	runner := newStubRunner()
	cache := New(runner)

	_, ok := cache.Open(context.Background(), "/missing.txt")
	assert.False(t, ok, "expected missing file to report not found")
}

func TestReadAtSlicesWithinBounds(t *testing.T) {
	data := []byte("0123456789")

	assert.Equal(t, "0123", string(ReadAt(data, 0, 4)))
	assert.Equal(t, "89", string(ReadAt(data, 8, 4)))
	assert.Nil(t, ReadAt(data, 10, 4), "expected nil at end-of-file offset")
	assert.Nil(t, ReadAt(data, -1, 4), "expected nil for negative offset")
}
