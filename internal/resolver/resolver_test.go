package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestResolvePrefersUserLocalOverSystem(t *testing.T) {
	userDir := t.TempDir()
	sysDir := t.TempDir()

	writeScript(t, sysDir, "sshd")
	writeScript(t, userDir, "sshd")

	r := New(userDir, sysDir)

	got, err := r.Resolve("sshd")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(userDir, "sshd")
	if got != want {
		t.Fatalf("got %q, want %q (user-local should win)", got, want)
	}
}

func TestResolveFallsBackToSystem(t *testing.T) {
	userDir := t.TempDir()
	sysDir := t.TempDir()
	writeScript(t, sysDir, "net")

	r := New(userDir, sysDir)
	got, err := r.Resolve("net")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(sysDir, "net")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := New(t.TempDir())
	_, err := r.Resolve("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if r.Exists("missing") {
		t.Fatal("expected Exists to be false")
	}
}

func TestList(t *testing.T) {
	userDir := t.TempDir()
	sysDir := t.TempDir()
	writeScript(t, sysDir, "net")
	writeScript(t, sysDir, "sshd")
	writeScript(t, userDir, "sshd") // shadows sysDir's sshd, should not duplicate

	r := New(userDir, sysDir)
	names, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 unique names, got %d: %v", len(names), names)
	}
}
