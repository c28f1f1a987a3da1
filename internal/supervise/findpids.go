package supervise

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// PidQuery narrows a process-table scan to daemons matching all of the
// given fields. An empty field is a wildcard, mirroring the ineed/iuse
// style "match everything unset" convention used across the runtime.
type PidQuery struct {
	Exec    string
	Name    string
	PIDFile string
	User    string
}

// FindPids scans the live process table for processes matching every
// non-empty field of q, returning their pids. This backs the "is my
// daemon actually still alive" check independent of whatever the daemon
// record says, since a daemon can die without anyone telling the state
// store.
func FindPids(ctx context.Context, q PidQuery) ([]int32, error) {
	if q.PIDFile != "" {
		pid, err := pidFromFile(q.PIDFile)
		if err != nil {
			return nil, err
		}
		if pid == 0 {
			return nil, nil
		}
		alive, err := process.PidExistsWithContext(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("supervise: checking pid %d: %w", pid, err)
		}
		if !alive {
			return nil, nil
		}
		if q.Exec == "" && q.Name == "" && q.User == "" {
			return []int32{pid}, nil
		}
		p, err := process.NewProcessWithContext(ctx, pid)
		if err != nil {
			return nil, nil
		}
		if matches(ctx, p, q) {
			return []int32{pid}, nil
		}
		return nil, nil
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("supervise: listing processes: %w", err)
	}

	var pids []int32
	for _, p := range procs {
		if matches(ctx, p, q) {
			pids = append(pids, p.Pid)
		}
	}
	return pids, nil
}

func matches(ctx context.Context, p *process.Process, q PidQuery) bool {
	if q.Exec != "" {
		exe, err := p.ExeWithContext(ctx)
		if err != nil || !strings.Contains(exe, q.Exec) {
			cmdline, err := p.CmdlineWithContext(ctx)
			if err != nil || !strings.Contains(cmdline, q.Exec) {
				return false
			}
		}
	}
	if q.Name != "" {
		name, err := p.NameWithContext(ctx)
		if err != nil || name != q.Name {
			return false
		}
	}
	if q.User != "" {
		user, err := p.UsernameWithContext(ctx)
		if err != nil || user != q.User {
			return false
		}
	}
	return true
}

func pidFromFile(path string) (int32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("supervise: reading pidfile %s: %w", path, err)
	}
	var pid int32
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &pid); err != nil {
		return 0, fmt.Errorf("supervise: parsing pidfile %s: %w", path, err)
	}
	return pid, nil
}
