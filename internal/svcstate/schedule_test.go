package svcstate

import "testing"

func TestScheduleStartSetsMarkerAndRelation(t *testing.T) {
	s := newTestStore(t)

	if err := s.ScheduleStart("net", "sshd"); err != nil {
		t.Fatalf("ScheduleStart: %v", err)
	}
	if !s.Is("sshd", Scheduled) {
		t.Fatal("expected sshd to carry the scheduled marker")
	}

	targets, err := s.ScheduledBy("net")
	if err != nil {
		t.Fatalf("ScheduledBy: %v", err)
	}
	if len(targets) != 1 || targets[0] != "sshd" {
		t.Fatalf("unexpected targets: %v", targets)
	}
}

func TestClearScheduleLeavesMarkerUntouched(t *testing.T) {
	s := newTestStore(t)
	if err := s.ScheduleStart("net", "sshd"); err != nil {
		t.Fatalf("ScheduleStart: %v", err)
	}
	if err := s.ClearSchedule("net", "sshd"); err != nil {
		t.Fatalf("ClearSchedule: %v", err)
	}
	targets, err := s.ScheduledBy("net")
	if err != nil {
		t.Fatalf("ScheduledBy: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("expected no targets left, got %v", targets)
	}
	// the marker itself is only cleared via Clear(name, Scheduled)
	if !s.Is("sshd", Scheduled) {
		t.Fatal("expected scheduled marker to survive a single ClearSchedule")
	}
}

func TestClearMarkerRemovesAllRelations(t *testing.T) {
	s := newTestStore(t)
	if err := s.ScheduleStart("net", "sshd"); err != nil {
		t.Fatalf("ScheduleStart(net): %v", err)
	}
	if err := s.ScheduleStart("cron", "sshd"); err != nil {
		t.Fatalf("ScheduleStart(cron): %v", err)
	}

	if err := s.Clear("sshd", Scheduled); err != nil {
		t.Fatalf("Clear(Scheduled): %v", err)
	}
	if s.Is("sshd", Scheduled) {
		t.Fatal("expected scheduled marker cleared")
	}

	for _, trigger := range []string{"net", "cron"} {
		targets, err := s.ScheduledBy(trigger)
		if err != nil {
			t.Fatalf("ScheduledBy(%s): %v", trigger, err)
		}
		if len(targets) != 0 {
			t.Fatalf("expected no targets left under %s, got %v", trigger, targets)
		}
	}
}

func TestScheduleClearEmptiesTriggerAndClearsUnsharedMarker(t *testing.T) {
	s := newTestStore(t)
	if err := s.ScheduleStart("net", "sshd"); err != nil {
		t.Fatalf("ScheduleStart(net, sshd): %v", err)
	}
	if err := s.ScheduleStart("net", "ntpd"); err != nil {
		t.Fatalf("ScheduleStart(net, ntpd): %v", err)
	}

	if err := s.ScheduleClear("net"); err != nil {
		t.Fatalf("ScheduleClear: %v", err)
	}

	targets, err := s.ScheduledBy("net")
	if err != nil {
		t.Fatalf("ScheduledBy: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("expected net's schedule emptied, got %v", targets)
	}
	if s.Is("sshd", Scheduled) || s.Is("ntpd", Scheduled) {
		t.Fatal("expected scheduled marker cleared for targets with no remaining trigger")
	}
}

func TestScheduleClearLeavesMarkerWhenAnotherTriggerStillSchedules(t *testing.T) {
	s := newTestStore(t)
	if err := s.ScheduleStart("net", "sshd"); err != nil {
		t.Fatalf("ScheduleStart(net): %v", err)
	}
	if err := s.ScheduleStart("cron", "sshd"); err != nil {
		t.Fatalf("ScheduleStart(cron): %v", err)
	}

	if err := s.ScheduleClear("net"); err != nil {
		t.Fatalf("ScheduleClear: %v", err)
	}

	if !s.Is("sshd", Scheduled) {
		t.Fatal("expected scheduled marker to survive: cron still schedules sshd")
	}
	targets, err := s.ScheduledBy("cron")
	if err != nil {
		t.Fatalf("ScheduledBy(cron): %v", err)
	}
	if len(targets) != 1 || targets[0] != "sshd" {
		t.Fatalf("expected cron's relation untouched, got %v", targets)
	}
}

func TestScheduledByUnknownTriggerIsEmpty(t *testing.T) {
	s := newTestStore(t)
	targets, err := s.ScheduledBy("nonexistent")
	if err != nil {
		t.Fatalf("ScheduledBy: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("expected empty, got %v", targets)
	}
}
