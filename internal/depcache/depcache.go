// Package depcache persists the dependency graph to disk and keeps it
// fresh: a serialized snapshot avoids re-running every init script's
// "depend" verb on every query, and a staleness check (or an fsnotify
// watch) decides when that snapshot needs rebuilding.
package depcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/openrc-go/rcsvc/internal/depparse"
	"github.com/openrc-go/rcsvc/internal/depquery"
	"github.com/openrc-go/rcsvc/internal/rcpath"
	"github.com/openrc-go/rcsvc/internal/resolver"
)

// snapshot is the on-disk JSON representation of a Graph plus the mtimes
// it was built from, used for the staleness check on the next Update.
type snapshot struct {
	BuiltAt  time.Time                   `json:"built_at"`
	Scripts  map[string]time.Time        `json:"scripts"` // script path -> mtime when parsed
	Services map[string]depquery.Depinfo `json:"services"`
}

// Cache serializes a depquery.Graph to a single file and knows how to
// rebuild it from a resolver's init scripts.
type Cache struct {
	root     rcpath.Root
	resolver *resolver.Resolver
	parser   *depparse.Parser

	mu sync.Mutex
}

// New creates a Cache anchored at root, resolving scripts via res.
func New(root rcpath.Root, res *resolver.Resolver) *Cache {
	return &Cache{root: root, resolver: res, parser: depparse.New()}
}

// Update rebuilds the cache if stale, or unconditionally if force is
// true, and persists the result.
func (c *Cache) Update(ctx context.Context, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force {
		stale, err := c.isStaleLocked()
		if err != nil {
			return err
		}
		if !stale {
			return nil
		}
	}

	names, err := c.resolver.List()
	if err != nil {
		return fmt.Errorf("depcache: listing init scripts: %w", err)
	}
	sort.Strings(names)

	graph := depquery.NewGraph()
	snap := snapshot{
		BuiltAt:  time.Now().UTC(),
		Scripts:  make(map[string]time.Time, len(names)),
		Services: make(map[string]depquery.Depinfo, len(names)),
	}

	for _, name := range names {
		path, err := c.resolver.Resolve(name)
		if err != nil {
			return fmt.Errorf("depcache: resolving %s: %w", name, err)
		}
		info, err := c.parser.Parse(ctx, path)
		if err != nil {
			return fmt.Errorf("depcache: parsing %s: %w", name, err)
		}
		graph.Set(name, info)
		snap.Services[name] = info

		fi, err := os.Stat(path)
		if err == nil {
			snap.Scripts[path] = fi.ModTime()
		}
	}
	graph.MaterializeReverse()

	return c.writeLocked(snap)
}

// Load reads the persisted graph without checking staleness or rebuilding.
func (c *Cache) Load() (*depquery.Graph, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, err := c.readLocked()
	if err != nil {
		return nil, err
	}
	graph := depquery.NewGraph()
	for name, info := range snap.Services {
		graph.Set(name, info)
	}
	graph.MaterializeReverse()
	return graph, nil
}

func (c *Cache) isStaleLocked() (bool, error) {
	snap, err := c.readLocked()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}

	names, err := c.resolver.List()
	if err != nil {
		return false, fmt.Errorf("depcache: listing init scripts: %w", err)
	}
	if len(names) != len(snap.Scripts) {
		return true, nil
	}

	for _, name := range names {
		path, err := c.resolver.Resolve(name)
		if err != nil {
			return true, nil
		}
		fi, err := os.Stat(path)
		if err != nil {
			return true, nil
		}
		known, ok := snap.Scripts[path]
		if !ok || fi.ModTime().After(known) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Cache) readLocked() (snapshot, error) {
	data, err := os.ReadFile(c.root.DeptreePath())
	if err != nil {
		return snapshot{}, err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snapshot{}, fmt.Errorf("depcache: decoding deptree: %w", err)
	}
	return snap, nil
}

func (c *Cache) writeLocked(snap snapshot) error {
	path := c.root.DeptreePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("depcache: creating cache dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("depcache: encoding deptree: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("depcache: writing deptree: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("depcache: committing deptree: %w", err)
	}
	return nil
}
