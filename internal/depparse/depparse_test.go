package depparse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/openrc-go/rcsvc/internal/depquery"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service")
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseKnownRelations(t *testing.T) {
	script := writeScript(t, `#!/bin/sh
echo "ineed net"
echo "iuse logger cron"
echo "iafter sysctl"
`)
	info, err := New().Parse(context.Background(), script)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := info.Get(depquery.INeed); len(got) != 1 || got[0] != "net" {
		t.Fatalf("unexpected ineed bucket: %v", got)
	}
	if got := info.Get(depquery.IUse); len(got) != 2 {
		t.Fatalf("unexpected iuse bucket: %v", got)
	}
}

func TestParseSkipsUnknownRelations(t *testing.T) {
	script := writeScript(t, `#!/bin/sh
echo "ineed net"
echo "bogus_relation something"
`)
	info, err := New().Parse(context.Background(), script)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := info.Get(depquery.INeed); len(got) != 1 {
		t.Fatalf("unexpected ineed bucket: %v", got)
	}
}

func TestParseEmptyOutputIsNotAnError(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nexit 0\n")
	info, err := New().Parse(context.Background(), script)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(info.Buckets) != 0 {
		t.Fatalf("expected no buckets, got %v", info.Buckets)
	}
}

func TestParseNonzeroExitIsAnError(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nexit 1\n")
	_, err := New().Parse(context.Background(), script)
	if err == nil {
		t.Fatal("expected an error for a nonzero exit")
	}
}
