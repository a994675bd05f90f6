// Package filecache holds the full contents of remote files fetched on
// open, independent of the metadata cache: there is no eviction and no
// relationship between a file's cached metadata and its cached bytes other
// than sharing a path.
package filecache

import (
	"context"
	"sync"

	"github.com/zz85sh/sshfuse/internal/remote"
)

// Cache stores file contents keyed by path. It never evicts entries and
// tolerates concurrent duplicate fetches of the same path: whichever fetch
// finishes first simply becomes the cached value, and a second concurrent
// fetch (if one occurs) silently overwrites it with equivalent bytes.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]byte

	runner remote.Runner
}

// New constructs an empty Cache backed by runner.
func New(runner remote.Runner) *Cache {
	return &Cache{
		entries: make(map[string][]byte),
		runner:  runner,
	}
}

// Open ensures path's contents are cached, fetching them from the remote
// runner if necessary, and returns them. The second return value is false
// if the remote fetch failed (non-existent file, permission error, etc.).
func (c *Cache) Open(ctx context.Context, path string) ([]byte, bool) {
	if contents, ok := c.get(path); ok {
		return contents, true
	}

	contents, ok := c.runner.FetchFile(ctx, path)
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	c.entries[path] = contents
	c.mu.Unlock()

	return contents, true
}

func (c *Cache) get(path string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	contents, ok := c.entries[path]
	return contents, ok
}

// ReadAt slices contents starting at offset for up to size bytes, matching
// the semantics of a FUSE read callback: an offset at or past the end of
// the file yields an empty, non-error slice.
func ReadAt(contents []byte, offset int64, size int) []byte {
	if offset < 0 || offset >= int64(len(contents)) {
		return nil
	}
	end := offset + int64(size)
	if end > int64(len(contents)) {
		end = int64(len(contents))
	}
	return contents[offset:end]
}
