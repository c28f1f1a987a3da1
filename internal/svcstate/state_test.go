package svcstate

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/openrc-go/rcsvc/internal/hook"
	"github.com/openrc-go/rcsvc/internal/rcpath"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := rcpath.NewRoot(t.TempDir())
	d, err := hook.NewDispatcher(nil, filepath.Join(t.TempDir(), "trail.log"))
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return New(root, d)
}

func TestMarkExclusiveTransition(t *testing.T) {
	s := newTestStore(t)

	if err := s.Mark("sshd", Stopped); err != nil {
		t.Fatalf("Mark(Stopped): %v", err)
	}
	if !s.Is("sshd", Stopped) {
		t.Fatal("expected sshd to be stopped")
	}

	if err := s.Mark("sshd", Starting); err != nil {
		t.Fatalf("Mark(Starting): %v", err)
	}
	if s.Is("sshd", Stopped) {
		t.Fatal("expected sshd to no longer be stopped")
	}
	if !s.Is("sshd", Starting) {
		t.Fatal("expected sshd to be starting")
	}

	if err := s.Mark("sshd", Started); err != nil {
		t.Fatalf("Mark(Started): %v", err)
	}
	if s.Is("sshd", Starting) {
		t.Fatal("expected sshd to no longer be starting")
	}
	if !s.Is("sshd", Started) {
		t.Fatal("expected sshd to be started")
	}
}

func TestMarkSameStateIsError(t *testing.T) {
	s := newTestStore(t)
	if err := s.Mark("sshd", Stopped); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	err := s.Mark("sshd", Stopped)
	if !errors.Is(err, ErrAlreadyInState) {
		t.Fatalf("expected ErrAlreadyInState, got %v", err)
	}
}

func TestWasInactiveBookkeeping(t *testing.T) {
	s := newTestStore(t)

	if err := s.Mark("net", Inactive); err != nil {
		t.Fatalf("Mark(Inactive): %v", err)
	}
	if err := s.Mark("net", Starting); err != nil {
		t.Fatalf("Mark(Starting): %v", err)
	}
	if !s.Is("net", WasInactive) {
		t.Fatal("expected wasinactive to be set after leaving inactive")
	}

	if err := s.Mark("net", Started); err != nil {
		t.Fatalf("Mark(Started): %v", err)
	}
	if s.Is("net", WasInactive) {
		t.Fatal("expected wasinactive to be cleared on reaching started")
	}
}

func TestOrthogonalMarkersCoexistWithExclusiveState(t *testing.T) {
	s := newTestStore(t)

	if err := s.Mark("sshd", Started); err != nil {
		t.Fatalf("Mark(Started): %v", err)
	}
	if err := s.Mark("sshd", Coldplugged); err != nil {
		t.Fatalf("Mark(Coldplugged): %v", err)
	}
	if !s.Is("sshd", Started) || !s.Is("sshd", Coldplugged) {
		t.Fatal("expected both started and coldplugged to hold")
	}

	if err := s.Clear("sshd", Coldplugged); err != nil {
		t.Fatalf("Clear(Coldplugged): %v", err)
	}
	if s.Is("sshd", Coldplugged) {
		t.Fatal("expected coldplugged to be cleared")
	}
	if !s.Is("sshd", Started) {
		t.Fatal("expected started to survive clearing an unrelated marker")
	}
}

func TestClearExclusiveStateRejected(t *testing.T) {
	s := newTestStore(t)
	err := s.Clear("sshd", Started)
	if err == nil {
		t.Fatal("expected error clearing an exclusive state directly")
	}
}

func TestCurrentStateEmptyWhenNeverSet(t *testing.T) {
	s := newTestStore(t)
	state, err := s.CurrentState("ghost")
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if state != "" {
		t.Fatalf("expected no state, got %q", state)
	}
}

func TestServicesInListsMembers(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"sshd", "net", "cron"} {
		if err := s.Mark(name, Started); err != nil {
			t.Fatalf("Mark(%s): %v", name, err)
		}
	}
	names, err := s.ServicesIn(Started)
	if err != nil {
		t.Fatalf("ServicesIn: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 services, got %d: %v", len(names), names)
	}
}

func TestCrashedDelegatesToCrashChecker(t *testing.T) {
	s := newTestStore(t)
	s.SetCrashChecker(fakeCrashChecker{crashed: map[string]bool{"sshd": true}})

	if !s.Is("sshd", Crashed) {
		t.Fatal("expected sshd to report crashed")
	}
	if s.Is("net", Crashed) {
		t.Fatal("expected net to not report crashed")
	}
}

func TestCrashedFalseWithoutCrashChecker(t *testing.T) {
	s := newTestStore(t)
	if s.Is("sshd", Crashed) {
		t.Fatal("expected false when no CrashChecker is wired")
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := newTestStore(t)
	if err := s.Mark("sshd", Started); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if err := s.Mark("sshd", Failed); err != nil {
		t.Fatalf("Mark(Failed): %v", err)
	}
	if err := s.Reset("sshd"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.Is("sshd", Started) || s.Is("sshd", Failed) {
		t.Fatal("expected all state cleared after Reset")
	}
}

type fakeCrashChecker struct {
	crashed map[string]bool
}

func (f fakeCrashChecker) ServiceDaemonsCrashed(name string) bool {
	return f.crashed[name]
}
