package rc

import (
	"context"
	"fmt"

	"github.com/openrc-go/rcsvc/internal/depquery"
	"github.com/openrc-go/rcsvc/internal/hook"
	"github.com/openrc-go/rcsvc/internal/runlevel"
	"github.com/openrc-go/rcsvc/internal/svcstate"
)

// TransitionResult reports what a runlevel transition did, including any
// non-fatal iuse/iafter cycles that were broken along the way.
type TransitionResult struct {
	Stopped      []string
	Started      []string
	BrokenCycles [][2]string
}

// TransitionTo computes the order_services sequence for level (sysinit ∪
// boot ∪ level ∪ coldplugged, versus currently-started services) and
// runs it: every stop first, in reverse dependency order, then every
// start, in forward order, firing the runlevel_stop_*/runlevel_start_*
// hook points around each half and mark_service transitions around each
// action.
func (rt *Runtime) TransitionTo(ctx context.Context, level string) (TransitionResult, error) {
	graph, err := rt.Graph(ctx)
	if err != nil {
		return TransitionResult{}, err
	}

	wantLevel, err := rt.WantedServiceSet(level)
	if err != nil {
		return TransitionResult{}, err
	}
	startedNow, err := rt.StartedServiceSet()
	if err != nil {
		return TransitionResult{}, err
	}
	inactiveNow, err := rt.InactiveServiceSet()
	if err != nil {
		return TransitionResult{}, err
	}

	var broken [][2]string
	report := func(cycle []string, edge [2]string) {
		broken = append(broken, edge)
	}

	stopOrder, startOrder, err := depquery.OrderServices(graph, wantLevel, startedNow, inactiveNow, depquery.Options{Stop: true, Start: true}, report)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("rc: ordering transition to %s: %w", level, err)
	}

	rt.hooks.Fire(hook.RunlevelStopIn, level)
	var stopped []string
	for _, name := range stopOrder {
		if _, err := rt.StopService(ctx, name); err != nil {
			rt.logger.Warn("failed to stop service during transition", "service", name, "runlevel", level, "error", err)
			continue
		}
		stopped = append(stopped, name)
	}
	rt.hooks.Fire(hook.RunlevelStopOut, level)

	rt.hooks.Fire(hook.RunlevelStartIn, level)
	var started []string
	for _, name := range startOrder {
		if _, err := rt.StartService(ctx, name); err != nil {
			rt.logger.Warn("failed to start service during transition", "service", name, "runlevel", level, "error", err)
			continue
		}
		started = append(started, name)
	}
	rt.hooks.Fire(hook.RunlevelStartOut, level)

	if err := rt.runlevels.Set(level); err != nil {
		return TransitionResult{}, err
	}

	return TransitionResult{Stopped: stopped, Started: started, BrokenCycles: broken}, nil
}

// WantedServiceSet computes sysinit ∪ boot ∪ level's members ∪ currently
// coldplugged services: the set order_services should end up with
// started for a transition into level.
func (rt *Runtime) WantedServiceSet(level string) (map[string]bool, error) {
	want := make(map[string]bool)
	for _, pseudo := range []string{runlevel.Sysinit, runlevel.Boot} {
		members, err := rt.runlevels.Members(pseudo)
		if err != nil {
			return nil, err
		}
		for _, n := range members {
			want[n] = true
		}
	}
	members, err := rt.runlevels.Members(level)
	if err != nil {
		return nil, err
	}
	for _, n := range members {
		want[n] = true
	}
	coldplugged, err := rt.state.ServicesIn(svcstate.Coldplugged)
	if err != nil {
		return nil, err
	}
	for _, n := range coldplugged {
		want[n] = true
	}
	return want, nil
}

// StartedServiceSet returns the set of services currently in the started
// state.
func (rt *Runtime) StartedServiceSet() (map[string]bool, error) {
	names, err := rt.state.ServicesIn(svcstate.Started)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

// InactiveServiceSet returns the set of services currently marked
// inactive, the RC_DEP_STOP set order_services folds into to_stop so an
// inactive service is driven all the way to stopped rather than left in
// limbo by a transition.
func (rt *Runtime) InactiveServiceSet() (map[string]bool, error) {
	names, err := rt.state.ServicesIn(svcstate.Inactive)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}
