// Package metacache implements the lazily-populated, path-keyed metadata
// cache that sits between the FUSE adapter and the remote listing runner.
package metacache

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"

	"github.com/zz85sh/sshfuse/internal/listing"
	"github.com/zz85sh/sshfuse/internal/remote"
)

// DefaultTTL is how long a cached directory listing is considered fresh
// before it must be re-fetched from the remote host.
const DefaultTTL = 60 * time.Second

// Entry is a cached metadata record for a single path. A zero-value Entry
// is never stored; Cache always stores pointers obtained from fetches.
type Entry struct {
	// Meta is the parsed listing row for this path, as reported by its
	// parent's directory listing. Nil for the synthetic root entry and
	// for any entry fabricated before its own parent listing ran.
	Meta *listing.FileMeta

	Directory bool
	Perms     uint16
	Size      uint64

	// Children holds the ordered names of this entry's contents, or nil
	// if this entry's own listing has never been fetched (Updated is
	// always false in that case).
	Children []string

	// Updated is true once this entry's own directory listing has been
	// fetched at least once (as opposed to merely being known because its
	// parent's listing mentioned it).
	Updated     bool
	LastUpdated time.Time
}

// Cache holds metadata keyed by slash-separated path, lazily populated from
// a remote.Runner and refreshed on a TTL.
type Cache struct {
	mu syncutil.InvariantMutex

	// entries is guarded by mu.
	entries map[string]*Entry

	runner remote.Runner
	clock  timeutil.Clock
	ttl    time.Duration
}

// New constructs a Cache backed by runner, using clock for TTL comparisons
// (pass timeutil.RealClock() in production; tests inject a fake clock to
// control expiry deterministically).
func New(runner remote.Runner, clock timeutil.Clock) *Cache {
	c := &Cache{
		entries: make(map[string]*Entry),
		runner:  runner,
		clock:   clock,
		ttl:     DefaultTTL,
	}
	c.mu = syncutil.NewInvariantMutex(c.checkInvariants)
	return c
}

// checkInvariants enforces the parent-child closure invariant: every name
// listed in a directory's Children slice must itself have a cache entry
// under that directory's key. Must be called with mu held.
func (c *Cache) checkInvariants() {
	for key, entry := range c.entries {
		if entry.Children == nil {
			continue
		}
		for _, name := range entry.Children {
			childKey := childKey(key, name)
			if _, ok := c.entries[childKey]; !ok {
				panic("metacache: missing child entry " + childKey + " for parent " + key)
			}
		}
	}
}

// childKey joins a directory key and a child name the same way the
// original fetch logic does: the root key is "" so its children are keyed
// by "/name" rather than "//name".
func childKey(dirKey, name string) string {
	if dirKey == "/" {
		dirKey = ""
	}
	return dirKey + "/" + name
}

// normalize maps the FUSE root path "/" onto the internal root key "".
// Every other path is used as-is (already slash-prefixed, no trailing
// slash) as its own key.
func normalize(p string) string {
	if p == "/" {
		return ""
	}
	return strings.TrimSuffix(p, "/")
}

// EnsureMetadata implements the ensure-metadata protocol: if path's own
// entry is missing and its parent's listing is also missing or stale, the
// parent directory is (re-)fetched; an existing entry for path is returned
// as-is without a fetch. GetAttr calls this before its lookup so that files
// and directories pick up an entry even if they've never been the root of
// a fetch themselves.
func (c *Cache) EnsureMetadata(ctx context.Context, fusePath string) {
	key := normalize(fusePath)
	parentKey := normalize(path.Dir(fusePath))

	fresh := func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()

		if _, ok := c.entries[key]; ok {
			return true
		}
		parent, ok := c.entries[parentKey]
		return ok && parent.Updated && c.clock.Now().Sub(parent.LastUpdated) < c.ttl
	}()

	if !fresh {
		c.updateDirCache(ctx, parentKey)
	}
}

// GetAttr returns the cached entry for path, ensuring it's populated first.
func (c *Cache) GetAttr(ctx context.Context, fusePath string) (*Entry, bool) {
	c.EnsureMetadata(ctx, fusePath)

	key := normalize(fusePath)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	return entry, ok
}

// GetDirList returns the ordered (name, isDirectory) children of a
// directory, fetching or refreshing its listing first if it is missing or
// stale.
func (c *Cache) GetDirList(ctx context.Context, fusePath string) ([]DirEntry, bool) {
	key := normalize(fusePath)

	stale := func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()

		entry, ok := c.entries[key]
		return !ok || !entry.Updated || c.clock.Now().Sub(entry.LastUpdated) >= c.ttl
	}()

	if stale {
		c.updateDirCache(ctx, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entries := make([]DirEntry, 0, len(entry.Children))
	for _, name := range entry.Children {
		child, ok := c.entries[childKey(key, name)]
		if !ok {
			continue
		}
		entries = append(entries, DirEntry{Name: name, Directory: child.Directory})
	}
	return entries, true
}

// DirEntry is a single name surfaced by GetDirList.
type DirEntry struct {
	Name      string
	Directory bool
}

// updateDirCache fetches dirKey's listing from the remote runner and
// installs the directory entry plus all of its children in one critical
// section, so that a concurrent reader never observes a directory marked
// fresh without its children present.
func (c *Cache) updateDirCache(ctx context.Context, dirKey string) {
	fetchPath := dirKey
	if fetchPath == "" {
		fetchPath = "/"
	}

	rows, ok := c.runner.FetchPath(ctx, fetchPath)
	if !ok {
		return
	}

	metas := listing.Parse(rows)

	children := make([]string, 0, len(metas))
	for _, m := range metas {
		children = append(children, m.Name)
	}

	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Preserve whatever was already known about dirKey itself (e.g. its
	// real Meta/Perms, learned when it first showed up as a row in its
	// own parent's listing) rather than stomping it with defaults: a
	// directory's own `ls -l` output never tells us about itself.
	var meta *listing.FileMeta
	perms := uint16(0o7777)
	if prev, ok := c.entries[dirKey]; ok {
		meta = prev.Meta
		if prev.Meta != nil {
			perms = prev.Perms
		}
	}

	c.entries[dirKey] = &Entry{
		Meta:        meta,
		Directory:   true,
		Perms:       perms,
		Children:    children,
		Updated:     true,
		LastUpdated: now,
	}

	for i := range metas {
		m := metas[i]
		key := childKey(dirKey, m.Name)
		c.entries[key] = &Entry{
			Meta:      &m,
			Directory: m.Directory,
			Perms:     m.Perms,
			Size:      m.FileSize,
			// Updated stays false: we only know this path exists and
			// what its parent reported about it, not its own
			// listing (if it's itself a directory).
			LastUpdated: now,
		}
	}
}
