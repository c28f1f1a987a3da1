package rc

import (
	"context"
	"errors"
	"fmt"

	"github.com/openrc-go/rcsvc/internal/hook"
	"github.com/openrc-go/rcsvc/internal/svcstate"
)

// StartResult is what StartService returns: whether it actually ran the
// script (false for the "already started" no-op sentinel) and the
// captured output if it did.
type StartResult struct {
	Ran    bool
	Output []string
}

// StartService resolves name, runs its init script with the "start"
// verb, and sequences the starting->started (or starting->failed)
// transition with the four service_start_* hook points. Starting a
// service already starting or started is a no-op per spec, returning
// Ran=false rather than an error.
func (rt *Runtime) StartService(ctx context.Context, name string) (StartResult, error) {
	if rt.state.Is(name, svcstate.Starting) || rt.state.Is(name, svcstate.Started) {
		return StartResult{Ran: false}, nil
	}

	path, err := rt.resolver.Resolve(name)
	if err != nil {
		return StartResult{}, fmt.Errorf("rc: starting %s: %w", name, err)
	}

	lock, err := rt.state.NewTransitionLock(name)
	if err != nil {
		return StartResult{}, err
	}
	defer lock.Unlock()
	if ok, err := lock.TryLock(); err != nil {
		return StartResult{}, err
	} else if !ok {
		return StartResult{}, fmt.Errorf("rc: starting %s: %w", name, svcstate.ErrTransitionBusy)
	}

	// Mark(Starting) fires service_start_in then service_start_now.
	if err := rt.state.Mark(name, svcstate.Starting); err != nil {
		return StartResult{}, err
	}

	res, runErr := rt.super.Run(ctx, path, "start")

	rt.hooks.Fire(hook.ServiceStartDone, name)
	if runErr != nil {
		if err := rt.state.Mark(name, svcstate.Failed); err != nil {
			rt.logger.Warn("failed to mark service failed", "service", name, "error", err)
		}
		rt.hooks.Fire(hook.ServiceStartOut, name)
		return StartResult{Ran: true, Output: res.Output}, runErr
	}

	if err := rt.state.Mark(name, svcstate.Started); err != nil && !errors.Is(err, svcstate.ErrAlreadyInState) {
		return StartResult{Ran: true, Output: res.Output}, err
	}
	if err := rt.state.Clear(name, svcstate.Failed); err != nil {
		rt.logger.Warn("failed to clear failed marker", "service", name, "error", err)
	}
	if err := rt.environ.WriteVar("RC_SVCNAME", name); err != nil {
		rt.logger.Warn("failed to publish plugin environment record", "service", name, "error", err)
	}
	rt.hooks.Fire(hook.ServiceStartOut, name)

	if err := rt.fireScheduled(ctx, name); err != nil {
		rt.logger.Warn("failed to start scheduled dependents", "trigger", name, "error", err)
	}

	return StartResult{Ran: true, Output: res.Output}, nil
}

// StopService mirrors StartService for the stop verb and the
// service_stop_* hook points.
func (rt *Runtime) StopService(ctx context.Context, name string) (StartResult, error) {
	if rt.state.Is(name, svcstate.Stopping) || rt.state.Is(name, svcstate.Stopped) {
		return StartResult{Ran: false}, nil
	}

	path, err := rt.resolver.Resolve(name)
	if err != nil {
		return StartResult{}, fmt.Errorf("rc: stopping %s: %w", name, err)
	}

	lock, err := rt.state.NewTransitionLock(name)
	if err != nil {
		return StartResult{}, err
	}
	defer lock.Unlock()
	if ok, err := lock.TryLock(); err != nil {
		return StartResult{}, err
	} else if !ok {
		return StartResult{}, fmt.Errorf("rc: stopping %s: %w", name, svcstate.ErrTransitionBusy)
	}

	if err := rt.state.Mark(name, svcstate.Stopping); err != nil {
		return StartResult{}, err
	}

	res, runErr := rt.super.Run(ctx, path, "stop")

	rt.hooks.Fire(hook.ServiceStopDone, name)
	if runErr != nil {
		if err := rt.state.Mark(name, svcstate.Failed); err != nil {
			rt.logger.Warn("failed to mark service failed", "service", name, "error", err)
		}
		rt.hooks.Fire(hook.ServiceStopOut, name)
		return StartResult{Ran: true, Output: res.Output}, runErr
	}

	if err := rt.state.ClearDaemons(name); err != nil {
		rt.logger.Warn("failed to clear daemon records", "service", name, "error", err)
	}
	if err := rt.state.Mark(name, svcstate.Stopped); err != nil && !errors.Is(err, svcstate.ErrAlreadyInState) {
		return StartResult{Ran: true, Output: res.Output}, err
	}
	rt.hooks.Fire(hook.ServiceStopOut, name)

	return StartResult{Ran: true, Output: res.Output}, nil
}

// fireScheduled starts every service scheduled to start once trigger
// reaches started, per spec's "the driver iterates services_scheduled_by"
// description — the rc facade plays the role of that driver.
func (rt *Runtime) fireScheduled(ctx context.Context, trigger string) error {
	targets, err := rt.state.ScheduledBy(trigger)
	if err != nil {
		return err
	}
	for _, target := range targets {
		if _, err := rt.StartService(ctx, target); err != nil {
			rt.logger.Warn("failed to start scheduled service", "trigger", trigger, "target", target, "error", err)
		}
	}
	return nil
}

// ColdplugService marks a service started outside any runlevel
// transition — e.g. a udev-triggered hotplug event — recording it as
// coldplugged so the next order_services computation includes it in
// to_start regardless of runlevel membership.
func (rt *Runtime) ColdplugService(ctx context.Context, name string) (StartResult, error) {
	if err := rt.state.Mark(name, svcstate.Coldplugged); err != nil {
		rt.logger.Warn("failed to set coldplugged marker", "service", name, "error", err)
	}
	return rt.StartService(ctx, name)
}
