// Package depparse runs an init script's "depend" verb in a
// non-side-effecting mode and turns its machine-readable output into a
// depquery.Depinfo.
package depparse

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/openrc-go/rcsvc/internal/depquery"
)

// knownRelations is the closed set a script may declare lines for;
// anything else is logged and skipped, not an error, since a script
// author may be running against a newer or older runtime than this one.
var knownRelations = map[string]depquery.Relation{
	"ineed":    depquery.INeed,
	"iuse":     depquery.IUse,
	"iwant":    depquery.IWant,
	"iafter":   depquery.IAfter,
	"ibefore":  depquery.IBefore,
	"iprovide": depquery.IProvide,
}

// Parser runs init scripts with the "depend" verb.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser.
func New() *Parser {
	return &Parser{logger: slog.With("component", "depparse")}
}

// Parse executes scriptPath with a "depend" argument and a
// non-side-effecting environment, reading one `<relation> <names...>`
// line per line of stdout. Scripts exit nonzero only on genuine failure;
// an empty dependency list is a normal, successful run.
func (p *Parser) Parse(ctx context.Context, scriptPath string) (depquery.Depinfo, error) {
	cmd := exec.CommandContext(ctx, scriptPath, "depend")
	cmd.Env = append(cmd.Environ(), "RC_DEPEND_MODE=1")

	stdout, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return depquery.Depinfo{}, fmt.Errorf("depparse: %s depend: exit %d: %s",
				scriptPath, exitErr.ExitCode(), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return depquery.Depinfo{}, fmt.Errorf("depparse: running %s depend: %w", scriptPath, err)
	}

	var info depquery.Depinfo
	scanner := bufio.NewScanner(strings.NewReader(string(stdout)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		rel, ok := knownRelations[fields[0]]
		if !ok {
			p.logger.Debug("skipping unknown dependency relation", "script", scriptPath, "relation", fields[0])
			continue
		}
		if len(fields) > 1 {
			info.Add(rel, fields[1:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return depquery.Depinfo{}, fmt.Errorf("depparse: reading %s depend output: %w", scriptPath, err)
	}
	return info, nil
}
