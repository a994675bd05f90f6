package metacache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a minimal timeutil.Clock double that lets tests control TTL
// expiry deterministically instead of sleeping in real time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubRunner returns canned listings keyed by the fetch path, and counts
// how many times each path was fetched.
type stubRunner struct {
	mu       sync.Mutex
	listings map[string]string
	fetches  map[string]int
}

func newStubRunner() *stubRunner {
	return &stubRunner{listings: make(map[string]string), fetches: make(map[string]int)}
}

func (r *stubRunner) FetchPath(ctx context.Context, path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches[path]++
	out, ok := r.listings[path]
	return out, ok
}

func (r *stubRunner) FetchFile(ctx context.Context, path string) ([]byte, bool) {
	return nil, false
}

func (r *stubRunner) fetchCount(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches[path]
}

const rootListing = `total 8
drwxr-xr-x   2 root root  4096 Jun 25 06:00 boot
-rw-r--r--   1 root root    12 Jun 25 06:00 hello.txt
`

func TestGetDirListPopulatesChildren(t *testing.T) {
	runner := newStubRunner()
	runner.listings["/"] = rootListing

	cache := New(runner, newFakeClock())

	entries, ok := cache.GetDirList(context.Background(), "/")
	require.True(t, ok, "expected root listing to be found")
	require.Len(t, entries, 2)
	assert.Equal(t, "boot", entries[0].Name)
	assert.True(t, entries[0].Directory)
	assert.Equal(t, "hello.txt", entries[1].Name)
	assert.False(t, entries[1].Directory)
}

func TestGetDirListReusesCacheWithinTTL(t *testing.T) {
	runner := newStubRunner()
	runner.listings["/"] = rootListing
	clock := newFakeClock()

	cache := New(runner, clock)

	_, ok := cache.GetDirList(context.Background(), "/")
	require.True(t, ok, "expected first fetch to succeed")
	_, ok = cache.GetDirList(context.Background(), "/")
	require.True(t, ok, "expected second fetch to succeed")

	assert.Equal(t, 1, runner.fetchCount("/"), "expected exactly 1 remote fetch within the TTL window")
}

func TestGetDirListRefetchesAfterTTLExpires(t *testing.T) {
	runner := newStubRunner()
	runner.listings["/"] = rootListing
	clock := newFakeClock()

	cache := New(runner, clock)

	_, ok := cache.GetDirList(context.Background(), "/")
	require.True(t, ok, "expected first fetch to succeed")

	clock.Advance(DefaultTTL + time.Second)

	_, ok = cache.GetDirList(context.Background(), "/")
	require.True(t, ok, "expected refetch to succeed")

	assert.Equal(t, 2, runner.fetchCount("/"), "expected 2 remote fetches after TTL expiry")
}

func TestGetAttrUsesParentListingForChild(t *testing.T) {
	runner := newStubRunner()
	runner.listings["/"] = rootListing

	cache := New(runner, newFakeClock())

	entry, ok := cache.GetAttr(context.Background(), "/hello.txt")
	require.True(t, ok, "expected child entry to be discoverable via parent listing")
	assert.False(t, entry.Directory)
	assert.EqualValues(t, 12, entry.Size)

	// Only the parent (root) should ever have been fetched directly.
	assert.Equal(t, 1, runner.fetchCount("/"))
}

func TestGetAttrMissingPathReturnsNotFound(t *testing.T) {
	runner := newStubRunner()
	runner.listings["/"] = rootListing

	cache := New(runner, newFakeClock())

	_, ok := cache.GetAttr(context.Background(), "/nope.txt")
	assert.False(t, ok, "expected missing path to be reported as not found")
}

func TestFetchFailureLeavesCacheEmpty(t *testing.T) {
	runner := newStubRunner() // no listing registered for "/"
	cache := New(runner, newFakeClock())

	_, ok := cache.GetDirList(context.Background(), "/")
	assert.False(t, ok, "expected failed fetch to report not found")
}
