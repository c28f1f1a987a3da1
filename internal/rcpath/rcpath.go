// Package rcpath is the single choke point for the on-disk layout described
// in the runtime's filesystem contract: init scripts, runlevel membership
// links, state links, option files, daemon records, scheduled-start links,
// and the deptree cache. No other package builds one of these paths by
// hand — every consumer goes through a Root.
package rcpath

import (
	"path/filepath"
	"regexp"
	"strconv"
)

// DefaultRoot is used when no root is configured, mirroring a traditional
// /etc/rc-style layout.
const DefaultRoot = "/etc/rcsvc"

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// ValidName reports whether name is a well-formed service or runlevel name.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// Root anchors every path builder at a configured root directory.
type Root struct {
	dir string
}

// NewRoot creates a Root anchored at dir. An empty dir falls back to
// DefaultRoot.
func NewRoot(dir string) Root {
	if dir == "" {
		dir = DefaultRoot
	}
	return Root{dir: dir}
}

// Dir returns the root directory itself.
func (r Root) Dir() string { return r.dir }

// InitDir returns the directory holding init scripts.
func (r Root) InitDir() string { return filepath.Join(r.dir, "init.d") }

// InitScript returns the path to the init script for name, regardless of
// whether it exists — resolution and existence are the resolver package's
// job, not this one's.
func (r Root) InitScript(name string) string {
	return filepath.Join(r.InitDir(), name)
}

// RunlevelsDir returns the directory holding all runlevel membership dirs.
func (r Root) RunlevelsDir() string { return filepath.Join(r.dir, "runlevels") }

// RunlevelDir returns the membership directory for a single runlevel.
func (r Root) RunlevelDir(level string) string {
	return filepath.Join(r.RunlevelsDir(), level)
}

// RunlevelMember returns the membership symlink path for name in level.
func (r Root) RunlevelMember(level, name string) string {
	return filepath.Join(r.RunlevelDir(level), name)
}

// ActiveRunlevelFile returns the path to the file holding the active
// runlevel's name.
func (r Root) ActiveRunlevelFile() string {
	return filepath.Join(r.dir, "softlevel")
}

// StateDir returns the directory holding all per-state symlink sets.
func (r Root) StateDir() string { return filepath.Join(r.dir, "state") }

// StateLink returns the symlink path that, if present, marks name as
// being in the given state.
func (r Root) StateLink(state, name string) string {
	return filepath.Join(r.StateDir(), state, name)
}

// StateGroupDir returns the directory holding all services in a given
// state (or bearing a given orthogonal marker).
func (r Root) StateGroupDir(state string) string {
	return filepath.Join(r.StateDir(), state)
}

// OptionsDir returns the directory holding a service's persisted options.
func (r Root) OptionsDir(name string) string {
	return filepath.Join(r.dir, "options", name)
}

// OptionFile returns the file holding a single option value.
func (r Root) OptionFile(name, key string) string {
	return filepath.Join(r.OptionsDir(name), key)
}

// DaemonsDir returns the directory holding a service's daemon records.
func (r Root) DaemonsDir(name string) string {
	return filepath.Join(r.dir, "daemons", name)
}

// DaemonFile returns the file holding the record at the given 1-based index.
func (r Root) DaemonFile(name string, index int) string {
	return filepath.Join(r.DaemonsDir(name), strconv.Itoa(index))
}

// ScheduledDirRoot returns the directory holding one subdirectory per
// trigger service.
func (r Root) ScheduledDirRoot() string { return filepath.Join(r.dir, "scheduled") }

// ScheduledDir returns the directory under which trigger's scheduled
// targets are linked.
func (r Root) ScheduledDir(trigger string) string {
	return filepath.Join(r.ScheduledDirRoot(), trigger)
}

// ScheduledLink returns the link path recording that trigger schedules
// target to start.
func (r Root) ScheduledLink(trigger, target string) string {
	return filepath.Join(r.ScheduledDir(trigger), target)
}

// DeptreePath returns the path to the serialized dependency cache.
func (r Root) DeptreePath() string {
	return filepath.Join(r.dir, "deptree")
}

// LockFile returns the path to the per-service transition lockfile.
func (r Root) LockFile(name string) string {
	return filepath.Join(r.dir, "lock", name)
}
