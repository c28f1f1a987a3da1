// Package resolver maps a bare service name to the canonical absolute path
// of its init script, preferring a user-local init directory over the
// system one when both exist.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when a service name does not resolve to any
// known init script.
var ErrNotFound = errors.New("resolver: service not found")

// Resolver resolves service names against one or more init-script
// directories, searched in order.
type Resolver struct {
	dirs []string
}

// New creates a Resolver that searches dirs in order. A typical caller
// passes the user-local init directory first, then the system one, so
// the user override wins when both define the same name.
func New(dirs ...string) *Resolver {
	return &Resolver{dirs: dirs}
}

// Resolve returns the absolute path of name's init script, or ErrNotFound
// if none of the configured directories has a non-directory entry for it.
// The entry's executable bit is not checked.
func (r *Resolver) Resolve(name string) (string, error) {
	for _, dir := range r.dirs {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolver: resolving %q: %w", name, err)
		}
		return abs, nil
	}
	return "", fmt.Errorf("resolver: %q: %w", name, ErrNotFound)
}

// Exists reports whether name resolves to an init script.
func (r *Resolver) Exists(name string) bool {
	_, err := r.Resolve(name)
	return err == nil
}

// List enumerates every service name visible across the configured
// directories, in search order, de-duplicated by first occurrence (so a
// user-local override shadows the system entry of the same name).
func (r *Resolver) List() ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for _, dir := range r.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("resolver: listing %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true
			names = append(names, e.Name())
		}
	}
	return names, nil
}
