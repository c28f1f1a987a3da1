package svcstate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ScheduleStart records that target should be started once trigger
// reaches "started".
// The relation is a symlink under scheduled/<trigger>/<target>; the
// "scheduled" orthogonal marker on target lets a caller cheaply ask
// "is anything waiting on me" without scanning every trigger directory.
func (s *Store) ScheduleStart(trigger, target string) error {
	dir := s.root.ScheduledDir(trigger)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("svcstate: creating scheduled dir: %w", err)
	}
	link := s.root.ScheduledLink(trigger, target)
	_ = os.Remove(link)
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("svcstate: scheduling %s after %s: %w", target, trigger, err)
	}
	return s.markOrthogonal(target, Scheduled, true)
}

// ScheduledBy lists the services scheduled to start once trigger does.
func (s *Store) ScheduledBy(trigger string) ([]string, error) {
	entries, err := os.ReadDir(s.root.ScheduledDir(trigger))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("svcstate: listing scheduled for %s: %w", trigger, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// ClearSchedule removes target's scheduled-start relation against
// trigger. The "scheduled" marker is left untouched here; callers clear
// it via Clear once they've confirmed no other trigger still references
// target (clearScheduledBy does that scan for the common case of
// clearing the marker itself).
func (s *Store) ClearSchedule(trigger, target string) error {
	err := os.Remove(s.root.ScheduledLink(trigger, target))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("svcstate: clearing schedule %s/%s: %w", trigger, target, err)
	}
	return nil
}

// ScheduleClear empties trigger's entire scheduled-start set in one call,
// removing every target relation it holds and clearing each target's
// "scheduled" marker unless some other trigger still references it.
func (s *Store) ScheduleClear(trigger string) error {
	targets, err := s.ScheduledBy(trigger)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(s.root.ScheduledDir(trigger)); err != nil {
		return fmt.Errorf("svcstate: clearing schedule for %s: %w", trigger, err)
	}
	for _, target := range targets {
		stillScheduled, err := s.scheduledByAnyTrigger(target)
		if err != nil {
			return err
		}
		if !stillScheduled {
			if err := s.markOrthogonal(target, Scheduled, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// scheduledByAnyTrigger reports whether some trigger other than the one
// just cleared still schedules target.
func (s *Store) scheduledByAnyTrigger(target string) (bool, error) {
	triggers, err := s.allScheduleTriggers()
	if err != nil {
		return false, err
	}
	for _, trigger := range triggers {
		if _, err := os.Lstat(s.root.ScheduledLink(trigger, target)); err == nil {
			return true, nil
		}
	}
	return false, nil
}

// clearScheduledBy removes every scheduled-start relation naming target,
// across all triggers, before the "scheduled" marker itself is cleared.
// Called from Clear(name, Scheduled) so the marker and the underlying
// relations can never go out of sync.
func (s *Store) clearScheduledBy(target string) error {
	triggers, err := s.allScheduleTriggers()
	if err != nil {
		return err
	}
	for _, trigger := range triggers {
		if err := s.ClearSchedule(trigger, target); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) allScheduleTriggers() ([]string, error) {
	entries, err := os.ReadDir(s.root.ScheduledDirRoot())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("svcstate: listing schedule triggers: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
