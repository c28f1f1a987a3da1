package svcstate

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openrc-go/rcsvc/internal/hook"
	"github.com/openrc-go/rcsvc/internal/rcpath"
)

// CrashChecker reports whether any of a service's tracked daemons has died
// while it's still marked "started". It's satisfied by
// supervise.Supervisor, injected here to avoid a dependency cycle (4.E
// consults 4.D for daemon records; 4.D consults 4.E only for the
// "crashed" predicate).
type CrashChecker interface {
	ServiceDaemonsCrashed(name string) bool
}

// Store is the filesystem-backed state machine for every service under a
// single root. It holds no authoritative in-memory state — every query
// re-reads the filesystem — but does hold a logger and the dispatcher used
// to fire lifecycle hooks on transitional-state entry.
type Store struct {
	root    rcpath.Root
	hooks   *hook.Dispatcher
	crashed CrashChecker
	logger  *slog.Logger
}

// New creates a Store anchored at root. hooks may be nil to disable hook
// firing (e.g. in unit tests that only exercise state bookkeeping).
func New(root rcpath.Root, hooks *hook.Dispatcher) *Store {
	return &Store{
		root:   root,
		hooks:  hooks,
		logger: slog.With("component", "svcstate"),
	}
}

// SetCrashChecker wires the process-supervision layer in after
// construction, breaking the natural import cycle between svcstate and
// supervise.
func (s *Store) SetCrashChecker(c CrashChecker) {
	s.crashed = c
}

// Mark transitions name into state, enforcing the mutual-exclusion and
// wasinactive bookkeeping rules. For the two transitional states it also
// fires the corresponding "_in"/"_now" hook pair via Store's dispatcher;
// the caller is responsible for firing "_done"/"_out" once the init
// script actually completes (the store doesn't know when that happens —
// supervise does).
func (s *Store) Mark(name string, state State) error {
	if IsExclusive(state) {
		return s.markExclusive(name, state)
	}
	return s.markOrthogonal(name, state, true)
}

// Clear removes an orthogonal marker from name. Exclusive states cannot
// be cleared directly — transition to a different exclusive state instead.
func (s *Store) Clear(name string, marker State) error {
	if IsExclusive(marker) {
		return fmt.Errorf("svcstate: %s is exclusive, use Mark to transition instead", marker)
	}
	if marker == Scheduled {
		if err := s.clearScheduledBy(name); err != nil {
			return err
		}
	}
	return s.markOrthogonal(name, marker, false)
}

func (s *Store) markExclusive(name string, state State) error {
	prev, _ := s.currentExclusive(name)
	if prev == state {
		return fmt.Errorf("svcstate: %s: %w", name, ErrAlreadyInState)
	}

	if err := os.MkdirAll(s.root.StateGroupDir(string(state)), 0755); err != nil {
		return fmt.Errorf("svcstate: creating state dir: %w", err)
	}

	// Leaving inactive: remember it via wasinactive.
	if prev == Inactive && state != Inactive {
		if err := s.markOrthogonal(name, WasInactive, true); err != nil {
			s.logger.Warn("failed to set wasinactive", "service", name, "error", err)
		}
	}
	// Entering started from inactive clears wasinactive — the transition
	// completed successfully, there's nothing historical left to track.
	if state == Started && prev == Inactive {
		if err := s.markOrthogonal(name, WasInactive, false); err != nil {
			s.logger.Warn("failed to clear wasinactive", "service", name, "error", err)
		}
	}

	if state == Starting || state == Stopping {
		s.fireEnter(name, state)
	}

	// Delete-then-create within the lock the caller already holds for
	// transitional states; for terminal states this is the same sequence
	// without a lock, which is fine because a terminal state has no
	// concurrent writer by construction (only one transition may be
	// in flight for a given service, enforced by the lock in lock.go).
	if prev != "" {
		oldLink := s.root.StateLink(string(prev), name)
		if err := os.Remove(oldLink); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("svcstate: clearing previous state %s: %w", prev, err)
		}
	}

	newLink := s.root.StateLink(string(state), name)
	if err := s.symlinkScript(name, newLink); err != nil {
		return err
	}

	return nil
}

func (s *Store) markOrthogonal(name string, marker State, set bool) error {
	dir := s.root.StateGroupDir(string(marker))
	link := filepath.Join(dir, name)

	if !set {
		err := os.Remove(link)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("svcstate: clearing %s marker: %w", marker, err)
		}
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("svcstate: creating marker dir: %w", err)
	}
	return s.symlinkScript(name, link)
}

// symlinkScript creates link pointing at name (the target doesn't need to
// resolve to anything meaningful — only the link's existence is queried —
// but pointing it at the service name keeps `ls -l` output readable, as
// OpenRC's own state links do).
func (s *Store) symlinkScript(name, link string) error {
	_ = os.Remove(link)
	if err := os.Symlink(name, link); err != nil {
		return fmt.Errorf("svcstate: creating link %s: %w", link, err)
	}
	return nil
}

func (s *Store) fireEnter(name string, state State) {
	if s.hooks == nil {
		return
	}
	var in, now hook.Point
	if state == Starting {
		in, now = hook.ServiceStartIn, hook.ServiceStartNow
	} else {
		in, now = hook.ServiceStopIn, hook.ServiceStopNow
	}
	s.hooks.Fire(in, name)
	s.hooks.Fire(now, name)
}

// currentExclusive returns the one exclusive state set for name, or ""
// if none is set.
func (s *Store) currentExclusive(name string) (State, error) {
	for state := range exclusiveStates {
		if s.linkExists(s.root.StateLink(string(state), name)) {
			return state, nil
		}
	}
	return "", nil
}

func (s *Store) linkExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Is reports whether q holds for name. Crashed is computed via the wired
// CrashChecker rather than read from a link.
func (s *Store) Is(name string, q State) bool {
	if q == Crashed {
		if s.crashed == nil {
			return false
		}
		return s.crashed.ServiceDaemonsCrashed(name)
	}
	return s.linkExists(s.root.StateLink(string(q), name))
}

// CurrentState returns the single exclusive state name currently holds,
// or "" if none has ever been set for it.
func (s *Store) CurrentState(name string) (State, error) {
	return s.currentExclusive(name)
}

// ServicesIn lists every service currently holding state (exclusive or
// orthogonal).
func (s *Store) ServicesIn(state State) ([]string, error) {
	entries, err := os.ReadDir(s.root.StateGroupDir(string(state)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("svcstate: listing %s: %w", state, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Reset clears every exclusive state and orthogonal marker for name, used
// when a service is deleted or its daemon/schedule bookkeeping needs a
// clean slate.
func (s *Store) Reset(name string) error {
	all := []State{Stopped, Starting, Started, Stopping, Inactive,
		Coldplugged, Failed, Scheduled, WasInactive}
	for _, state := range all {
		link := s.root.StateLink(string(state), name)
		if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("svcstate: resetting %s: %w", state, err)
		}
	}
	return nil
}
