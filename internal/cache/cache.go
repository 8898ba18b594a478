// Package cache implements the process-wide path/stat cache (spec §4.2,
// component C2): an absolute-path -> stat-snapshot map populated on first
// walk and consulted by later checks, grounded on the inode-dedup
// sync.Map the teacher keeps in its scanner (internal/engine/scanner.go's
// inodeSeen field) and the lstat-classification it performs per entry.
package cache

import (
	"errors"
	"os"
	"sync"
	"syscall"
)

// Kind mirrors walker.Kind without importing it, so cache has no
// dependency on the walker package (checks may populate the cache
// without ever constructing a walker.Entry).
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
	KindOther
)

// Stat is the cached metadata snapshot for one path.
type Stat struct {
	Kind       Kind
	Size       int64
	ModTimeNs  int64
	AccTimeNs  int64
	CreateTimeNs int64
}

// StatFunc abstracts the filesystem stat call so tests can count and
// control invocations (spec §8 invariant 6: "observable via a stat
// counter injected behind the filesystem interface").
type StatFunc func(path string) (os.FileInfo, error)

// Cache is a single-writer-during-walk, read-many-after path/stat map.
// Keys are owned copies of absolute, canonical paths under the input
// root; entries are never evicted during a run (spec §3).
type Cache struct {
	mu     sync.RWMutex
	data   map[string]Stat
	stat   StatFunc
	calls  int
	callMu sync.Mutex
}

// New creates an empty Cache using os.Lstat for filesystem queries.
func New() *Cache {
	return NewWithStat(os.Lstat)
}

// NewWithStat creates a Cache using a caller-supplied stat function,
// used by tests to inject a counting wrapper.
func NewWithStat(fn StatFunc) *Cache {
	return &Cache{data: make(map[string]Stat), stat: fn}
}

// StatCalls returns how many times the underlying stat function was
// invoked (i.e. how many cache misses occurred).
func (c *Cache) StatCalls() int {
	c.callMu.Lock()
	defer c.callMu.Unlock()
	return c.calls
}

// FetchOrInsert returns the cached stat for absPath if present;
// otherwise it queries the filesystem, inserts an owned copy of the
// key, and returns the result. A directory that fails Lstat with
// "is a directory" (which Lstat never actually returns, but some
// virtual/overlay filesystems do on stat() fallback) yields a synthetic
// directory stat instead of an error, per spec §4.2.
func (c *Cache) FetchOrInsert(absPath string) (Stat, error) {
	c.mu.RLock()
	if s, ok := c.data[absPath]; ok {
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	c.callMu.Lock()
	c.calls++
	c.callMu.Unlock()

	info, err := c.stat(absPath)
	if err != nil {
		if isDirError(err) {
			s := Stat{Kind: KindDir}
			c.insert(absPath, s)
			return s, nil
		}
		return Stat{}, err
	}

	s := FromFileInfo(info)
	c.insert(absPath, s)
	return s, nil
}

func (c *Cache) insert(absPath string, s Stat) {
	// Own the key: absPath here is already a distinct string value from
	// the walker's reused path buffer because it passed through
	// filepath.Join/path building before reaching us.
	c.mu.Lock()
	c.data[absPath] = s
	c.mu.Unlock()
}

// IterFiles calls fn for every cached entry of kind KindFile. Iteration
// order is unspecified but stable within a run.
func (c *Cache) IterFiles(fn func(absPath string, s Stat)) { c.iterKind(KindFile, fn) }

// IterDirs calls fn for every cached entry of kind KindDir.
func (c *Cache) IterDirs(fn func(absPath string, s Stat)) { c.iterKind(KindDir, fn) }

// IterAll calls fn for every cached entry regardless of kind.
func (c *Cache) IterAll(fn func(absPath string, s Stat)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for p, s := range c.data {
		fn(p, s)
	}
}

func (c *Cache) iterKind(k Kind, fn func(absPath string, s Stat)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for p, s := range c.data {
		if s.Kind == k {
			fn(p, s)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// FromFileInfo builds a Stat snapshot from a raw os.FileInfo, including
// the platform-specific access/creation times extraTimes extracts. It
// is exported so callers that stat entries outside FetchOrInsert (the
// walker's own os.Lstat pass) produce the same enriched Stat rather
// than a partial one missing AccTimeNs/CreateTimeNs.
func FromFileInfo(info os.FileInfo) Stat {
	kind := KindFile
	switch {
	case info.IsDir():
		kind = KindDir
	case info.Mode()&os.ModeSymlink != 0:
		kind = KindSymlink
	case !info.Mode().IsRegular():
		kind = KindOther
	}

	s := Stat{
		Kind:      kind,
		Size:      info.Size(),
		ModTimeNs: info.ModTime().UnixNano(),
	}
	if at, ct, ok := extraTimes(info); ok {
		s.AccTimeNs = at
		s.CreateTimeNs = ct
	}
	return s
}

// isDirError reports whether err indicates the target is a directory
// where a file was expected — the one synthetic-stat case spec §4.2
// calls out explicitly.
func isDirError(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.EISDIR
}
