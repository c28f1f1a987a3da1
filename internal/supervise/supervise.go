// Package supervise runs init scripts with a verb (start/stop/status/...)
// and tracks the daemons they register, answering the "has it actually
// crashed" question the state store delegates to it.
package supervise

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/openrc-go/rcsvc/internal/logbuf"
	"github.com/openrc-go/rcsvc/internal/svcstate"
)

// Result is the outcome of running an init script with a verb.
type Result struct {
	ExitCode  int
	Output    []string // last lines captured, oldest first
	Truncated bool     // script wrote more lines than Output holds
}

// Supervisor runs init scripts and answers liveness queries about the
// daemons they've registered with the state store.
type Supervisor struct {
	store   *svcstate.Store
	logger  *slog.Logger
	bufSize int

	mu          sync.Mutex
	scanLims    map[string]*rate.Limiter
	lastCrashed map[string]bool
}

// New creates a Supervisor that consults store for daemon records.
// Supervisor implements svcstate.CrashChecker and is meant to be wired
// back into store via store.SetCrashChecker after construction.
func New(store *svcstate.Store) *Supervisor {
	return &Supervisor{
		store:    store,
		logger:   slog.With("component", "supervise"),
		bufSize:  200,
		scanLims: make(map[string]*rate.Limiter),
	}
}

// Run executes scriptPath with verb followed by extraArgs, capturing the
// last bufSize lines of combined stdout/stderr into the returned Result.
// It does not itself consult or mutate the state store — callers (the
// rc facade) sequence Mark calls and hook fires around Run.
func (sv *Supervisor) Run(ctx context.Context, scriptPath, verb string, extraArgs ...string) (Result, error) {
	args := append([]string{verb}, extraArgs...)
	cmd := exec.CommandContext(ctx, scriptPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	buf := logbuf.New(sv.bufSize)
	cmd.Stdout = buf
	cmd.Stderr = buf

	err := cmd.Run()
	res := Result{Output: buf.Lines(), Truncated: buf.Truncated()}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("supervise: %s %s: exit %d", scriptPath, verb, res.ExitCode)
		}
		return res, fmt.Errorf("supervise: running %s %s: %w", scriptPath, verb, err)
	}
	return res, nil
}

// StopWithTimeout sends SIGTERM to pid's process group, then SIGKILL if
// it hasn't exited by timeout. Nothing in this module calls it; the
// rc facade's StopService runs the "stop" verb without a timeout.
func (sv *Supervisor) StopWithTimeout(pid int, timeout time.Duration) error {
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("supervise: SIGTERM to pgid %d: %w", pid, err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("supervise: SIGKILL to pgid %d: %w", pid, err)
	}
	return nil
}

// processAlive reports whether pid exists, via the signal-0 liveness
// check (sends no signal, only validates the process table entry).
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// limiterFor returns the rate limiter throttling repeated crash scans for
// name, creating one on first use. Repeated ServiceDaemonsCrashed calls
// for the same service (e.g. from a status --watch poll loop) share a
// single limiter so a crash-looping service can't turn into a process-
// table scanning storm.
func (sv *Supervisor) limiterFor(name string) *rate.Limiter {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	lim, ok := sv.scanLims[name]
	if !ok {
		lim = rate.NewLimiter(rate.Every(200*time.Millisecond), 1)
		sv.scanLims[name] = lim
	}
	return lim
}
