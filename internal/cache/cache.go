// Package cache stores finished scenes on disk, keyed by a digest of the
// script content and the compile settings.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"boxy/internal/project"
)

// SchemaVersion changes whenever Payload's layout does.
const SchemaVersion uint16 = 1

// DiskCache keeps msgpack payloads under dir/scenes. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// MeshPayload is one finished mesh in flat form.
type MeshPayload struct {
	Name      string
	Material  string
	Fallback  bool
	Positions []float64 // xyz per vertex
	Normals   []float64 // xyz per vertex
	UVs       []float64 // uv per vertex
	Indices   []uint32
}

// Payload is a cached compile result.
type Payload struct {
	Schema  uint16
	Script  string
	Created time.Time
	Empty   bool
	Meshes  []MeshPayload
}

// Open returns a cache rooted at dir, creating it if needed.
func Open(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// DefaultDir is $XDG_CACHE_HOME/<app>, falling back to ~/.cache/<app>.
func DefaultDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// OpenDefault opens the cache at DefaultDir(app).
func OpenDefault(app string) (*DiskCache, error) {
	dir, err := DefaultDir(app)
	if err != nil {
		return nil, err
	}
	return Open(dir)
}

func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "scenes", key.String()+".mp")
}

// Put writes payload atomically. A nil cache ignores the call.
func (c *DiskCache) Put(key project.Digest, payload *Payload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	payload.Schema = SchemaVersion
	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the payload for key. Missing entries and entries written with a
// different schema report false without an error.
func (c *DiskCache) Get(key project.Digest, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	var p Payload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	if p.Schema != SchemaVersion {
		return false, nil
	}
	*out = p
	return true, nil
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// Stats counts entries and their total size.
func (c *DiskCache) Stats() (entries int, bytes int64, err error) {
	if c == nil {
		return 0, 0, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(c.dir, "scenes", "*.mp"))
	if err != nil {
		return 0, 0, err
	}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		entries++
		bytes += info.Size()
	}
	return entries, bytes, nil
}
