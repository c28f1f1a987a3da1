// Package runlevel tracks the system's single active runlevel and answers
// membership queries against the runlevels/<level>/ directories.
package runlevel

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/openrc-go/rcsvc/internal/rcpath"
)

// Reserved runlevel names, per spec.
const (
	Sysinit  = "sysinit"
	Single   = "single"
	Shutdown = "shutdown"
	Reboot   = "reboot"
	Boot     = "boot"

	// defaultRunlevel is what Get() returns when no active-runlevel file
	// exists yet (first boot, or a root directory being initialized).
	defaultRunlevel = Sysinit
)

// ErrNotFound indicates the named runlevel has no membership directory.
var ErrNotFound = errors.New("runlevel: not found")

// Registry reads and writes the active runlevel and answers membership
// queries, all against a single root directory.
type Registry struct {
	root rcpath.Root
}

// New creates a Registry anchored at root.
func New(root rcpath.Root) *Registry {
	return &Registry{root: root}
}

// Get returns the name of the currently active runlevel, defaulting to
// "sysinit" if the active-runlevel file doesn't exist yet.
func (reg *Registry) Get() (string, error) {
	data, err := os.ReadFile(reg.root.ActiveRunlevelFile())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultRunlevel, nil
		}
		return "", fmt.Errorf("runlevel: reading active runlevel: %w", err)
	}
	level := trimTrailingNewline(data)
	if level == "" {
		return defaultRunlevel, nil
	}
	return level, nil
}

// Set atomically writes level as the active runlevel (temp file + rename,
// so readers never observe a half-written name).
func (reg *Registry) Set(level string) error {
	if !rcpath.ValidName(level) {
		return fmt.Errorf("runlevel: invalid name %q", level)
	}

	path := reg.root.ActiveRunlevelFile()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("runlevel: creating root dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(level+"\n"), 0644); err != nil {
		return fmt.Errorf("runlevel: writing active runlevel: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("runlevel: committing active runlevel: %w", err)
	}
	return nil
}

// Exists reports whether level has a membership directory at all (it may
// still be empty).
func (reg *Registry) Exists(level string) bool {
	info, err := os.Stat(reg.root.RunlevelDir(level))
	return err == nil && info.IsDir()
}

// Members lists the services that are members of level, i.e. the entries
// of runlevels/<level>/.
func (reg *Registry) Members(level string) ([]string, error) {
	entries, err := os.ReadDir(reg.root.RunlevelDir(level))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("runlevel: listing %s: %w", level, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// IsMember reports whether name is a member of level.
func (reg *Registry) IsMember(level, name string) bool {
	_, err := os.Lstat(reg.root.RunlevelMember(level, name))
	return err == nil
}

// AddMember creates the membership symlink for name in level, pointing at
// the service's init script for traceability.
func (reg *Registry) AddMember(level, name, scriptPath string) error {
	dir := reg.root.RunlevelDir(level)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("runlevel: creating %s: %w", level, err)
	}
	link := reg.root.RunlevelMember(level, name)
	_ = os.Remove(link)
	if err := os.Symlink(scriptPath, link); err != nil {
		return fmt.Errorf("runlevel: adding %s to %s: %w", name, level, err)
	}
	return nil
}

// RemoveMember removes name's membership symlink from level.
func (reg *Registry) RemoveMember(level, name string) error {
	err := os.Remove(reg.root.RunlevelMember(level, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("runlevel: removing %s from %s: %w", name, level, err)
	}
	return nil
}

// AllLevels lists every runlevel that has a membership directory,
// including the reserved sysinit and boot levels when their directories
// exist.
func (reg *Registry) AllLevels() ([]string, error) {
	entries, err := os.ReadDir(reg.root.RunlevelsDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("runlevel: listing runlevels dir: %w", err)
	}
	var levels []string
	for _, e := range entries {
		if e.IsDir() {
			levels = append(levels, e.Name())
		}
	}
	return levels, nil
}

func trimTrailingNewline(b []byte) string {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return string(b)
}
