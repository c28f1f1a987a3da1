package rcenv

import (
	"bufio"
	"strings"
	"testing"
)

func TestWriteVarProducesNulTerminatedRecord(t *testing.T) {
	env, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer env.Close()

	done := make(chan string)
	go func() {
		reader := bufio.NewReader(env.ReadSide())
		text, _ := reader.ReadString('\x00')
		done <- text
	}()

	if err := env.WriteVar("FOO", "bar"); err != nil {
		t.Fatalf("WriteVar: %v", err)
	}
	got := <-done
	if got != "FOO=bar\x00" {
		t.Fatalf("got %q, want %q", got, "FOO=bar\x00")
	}
}

func TestLegacyWriterDelegatesToPipe(t *testing.T) {
	env, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer env.Close()

	done := make(chan string)
	go func() {
		reader := bufio.NewReader(env.ReadSide())
		line, _ := reader.ReadString('\n')
		done <- line
	}()

	if _, err := env.Legacy().Write([]byte("hello\n")); err != nil {
		t.Fatalf("Legacy().Write: %v", err)
	}
	got := <-done
	if strings.TrimSpace(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestInitAndCurrentRoundTrip(t *testing.T) {
	env, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer env.Close()

	Init(env)
	if Current() != env {
		t.Fatal("expected Current() to return the Init'd handle")
	}
}
