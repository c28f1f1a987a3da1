package rc

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/openrc-go/rcsvc/internal/depquery"
)

// writeInitScript drops an executable shell script at root's init.d/name
// that records every verb it's invoked with (one line per invocation) to
// a log file under logDir, so tests can assert call order.
func writeInitScript(t *testing.T, root, logDir, name, body string) string {
	t.Helper()
	dir := filepath.Join(root, "init.d")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, name)
	script := fmt.Sprintf("#!/bin/sh\necho \"$1\" >> %s\n%s\n", filepath.Join(logDir, name+".log"), body)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func newTestRuntime(t *testing.T) (*Runtime, string) {
	t.Helper()
	root := t.TempDir()
	rt, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt, root
}

func TestNewWiresDefaultConfigWhenNoRcYaml(t *testing.T) {
	rt, _ := newTestRuntime(t)
	if rt.cfg.StartTimeout.Duration == 0 {
		t.Fatal("expected a non-zero default start timeout")
	}
}

func TestNewWiresPluginEnvironment(t *testing.T) {
	rt, _ := newTestRuntime(t)
	if rt.Environ() == nil {
		t.Fatal("expected a non-nil plugin environment handle")
	}
	if err := rt.Environ().WriteVar("FOO", "bar"); err != nil {
		t.Fatalf("WriteVar: %v", err)
	}
}

func TestGraphBuildsFromInitScripts(t *testing.T) {
	rt, root := newTestRuntime(t)
	logDir := t.TempDir()

	writeInitScript(t, root, logDir, "net", "exit 0")
	writeInitScript(t, root, logDir, "sshd", `
case "$1" in
depend) echo "ineed net" ;;
esac
exit 0`)

	graph, err := rt.Graph(t.Context())
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	info, ok := graph.GetDepinfo("sshd")
	if !ok {
		t.Fatal("expected sshd in graph")
	}
	needs := info.Get(depquery.INeed)
	if len(needs) != 1 || needs[0] != "net" {
		t.Fatalf("got needs %v, want [net]", needs)
	}
}
