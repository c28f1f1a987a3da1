package runlevel

import (
	"testing"

	"github.com/openrc-go/rcsvc/internal/rcpath"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(rcpath.NewRoot(t.TempDir()))
}

func TestGetDefaultsToSysinit(t *testing.T) {
	reg := newTestRegistry(t)
	level, err := reg.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if level != Sysinit {
		t.Fatalf("got %q, want %q", level, Sysinit)
	}
}

func TestSetThenGetRoundTrips(t *testing.T) {
	reg := newTestRegistry(t)
	if err := reg.Set("default"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	level, err := reg.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if level != "default" {
		t.Fatalf("got %q, want %q", level, "default")
	}
}

func TestMembership(t *testing.T) {
	reg := newTestRegistry(t)

	if reg.IsMember("default", "sshd") {
		t.Fatal("expected sshd not to be a member yet")
	}

	if err := reg.AddMember("default", "sshd", "/etc/rcsvc/init.d/sshd"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if !reg.IsMember("default", "sshd") {
		t.Fatal("expected sshd to be a member")
	}

	members, err := reg.Members("default")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 1 || members[0] != "sshd" {
		t.Fatalf("unexpected members: %v", members)
	}

	if err := reg.RemoveMember("default", "sshd"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if reg.IsMember("default", "sshd") {
		t.Fatal("expected sshd to no longer be a member")
	}
}

func TestMembersOfUnknownLevelIsEmpty(t *testing.T) {
	reg := newTestRegistry(t)
	members, err := reg.Members("nonexistent")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no members, got %v", members)
	}
}
