package supervise

import (
	"context"

	"github.com/openrc-go/rcsvc/internal/svcstate"
)

// ServiceDaemonsCrashed reports whether name is marked started but at
// least one daemon it registered has died. A service with no registered
// daemons (a oneshot script that never called mark_service_started with
// a pid) can never be "crashed" by this definition — there's nothing to
// check. A service with several registered daemons is crashed as soon as
// any one of them has zero live matches; the rest still being alive
// doesn't save it.
//
// It implements svcstate.CrashChecker.
func (sv *Supervisor) ServiceDaemonsCrashed(name string) bool {
	if !sv.limiterFor(name).Allow() {
		return sv.lastCrashResult(name)
	}

	if !sv.store.Is(name, svcstate.Started) {
		return false
	}
	if !sv.store.HasDaemons(name) {
		return false
	}

	recs, err := sv.store.Daemons(name)
	if err != nil {
		sv.logger.Warn("failed to list daemons", "service", name, "error", err)
		return false
	}

	ctx := context.Background()
	crashed := false
	for _, rec := range recs {
		pids, err := FindPids(ctx, PidQuery{Exec: rec.Exec, Name: rec.Name, PIDFile: rec.PIDFile})
		if err != nil {
			sv.logger.Warn("failed to scan for daemon", "service", name, "error", err)
			continue
		}
		if len(pids) == 0 {
			crashed = true
			break
		}
	}

	sv.recordCrashResult(name, crashed)
	return crashed
}

func (sv *Supervisor) recordCrashResult(name string, crashed bool) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.lastCrashed == nil {
		sv.lastCrashed = make(map[string]bool)
	}
	sv.lastCrashed[name] = crashed
}

func (sv *Supervisor) lastCrashResult(name string) bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.lastCrashed[name]
}
