// Package hook dispatches lifecycle callbacks at defined transition points
// during runlevel and service state changes, and keeps an append-only
// trail of every dispatch for post-mortem inspection. There is exactly
// one callback per Dispatcher — a capability the host process supplies at
// construction, not a registry of link-time symbols the way a C rc system
// would resolve them.
package hook

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Point identifies one place in the transition sequence a hook fires.
// Within a single service or runlevel transition, points fire in the
// fixed order: *_in, *_now, *_done, *_out.
type Point string

const (
	RunlevelStopIn   Point = "runlevel_stop_in"
	RunlevelStopOut  Point = "runlevel_stop_out"
	RunlevelStartIn  Point = "runlevel_start_in"
	RunlevelStartOut Point = "runlevel_start_out"

	ServiceStopIn   Point = "service_stop_in"
	ServiceStopNow  Point = "service_stop_now"
	ServiceStopDone Point = "service_stop_done"
	ServiceStopOut  Point = "service_stop_out"

	ServiceStartIn   Point = "service_start_in"
	ServiceStartNow  Point = "service_start_now"
	ServiceStartDone Point = "service_start_done"
	ServiceStartOut  Point = "service_start_out"

	Abort Point = "abort"
)

// rank orders points within a single service/runlevel transition so
// Dispatcher can refuse an out-of-sequence fire. Points that belong to
// different transitions (stop vs start) aren't compared against each
// other; Abort has no ordering constraint, it can fire at any time.
var rank = map[Point]int{
	ServiceStopIn: 0, ServiceStopNow: 1, ServiceStopDone: 2, ServiceStopOut: 3,
	ServiceStartIn: 0, ServiceStartNow: 1, ServiceStartDone: 2, ServiceStartOut: 3,
	RunlevelStopIn: 0, RunlevelStopOut: 1,
	RunlevelStartIn: 0, RunlevelStartOut: 1,
}

func family(p Point) string {
	switch p {
	case ServiceStopIn, ServiceStopNow, ServiceStopDone, ServiceStopOut:
		return "service_stop"
	case ServiceStartIn, ServiceStartNow, ServiceStartDone, ServiceStartOut:
		return "service_start"
	case RunlevelStopIn, RunlevelStopOut:
		return "runlevel_stop"
	case RunlevelStartIn, RunlevelStartOut:
		return "runlevel_start"
	default:
		return "abort"
	}
}

// Callback is the single host-supplied hook implementation. target is the
// service or runlevel name the point applies to.
type Callback func(point Point, target string) error

// Entry is one line of the append-only dispatch trail.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Point     Point     `json:"point"`
	Target    string    `json:"target"`
	Error     string    `json:"error,omitempty"`
}

// Dispatcher serializes calls into a single Callback and records every
// fire to an append-only trail file, mirroring how the rest of the
// runtime treats the filesystem as its audit surface.
type Dispatcher struct {
	mu       sync.Mutex
	callback Callback
	trail    *os.File
	logger   *slog.Logger
	last     map[string]int // family -> last rank fired, for ordering checks
}

// NewDispatcher creates a Dispatcher that invokes cb and appends its trail
// to trailPath. cb may be nil, in which case Fire only records the trail
// entry and succeeds unless the point is out of order.
func NewDispatcher(cb Callback, trailPath string) (*Dispatcher, error) {
	f, err := os.OpenFile(trailPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("hook: opening trail %s: %w", trailPath, err)
	}
	return &Dispatcher{
		callback: cb,
		trail:    f,
		logger:   slog.With("component", "hook"),
		last:     make(map[string]int),
	}, nil
}

// Fire invokes the callback for point/target, in order, and appends the
// outcome to the trail. A call that arrives out of the fixed in/now/done/out
// sequence for its family is rejected without invoking the callback —
// the caller has a bug, and silently reordering hooks would hide it.
func (d *Dispatcher) Fire(point Point, target string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fam := family(point)
	key := fam + "/" + target
	if fam != "abort" {
		want := rank[point]
		got, seen := d.last[key]
		if !seen {
			got = -1
		}
		if want != 0 && want != got+1 {
			err := fmt.Errorf("hook: %s fired out of order for %s (expected rank %d, have %d)", point, target, got+1, want)
			d.record(point, target, err)
			return err
		}
		d.last[key] = want
		if want == 3 {
			delete(d.last, key)
		}
	}

	var err error
	if d.callback != nil {
		err = d.callback(point, target)
	}
	d.record(point, target, err)
	if err != nil {
		d.logger.Warn("hook callback failed", "point", point, "target", target, "error", err)
	}
	return err
}

func (d *Dispatcher) record(point Point, target string, callErr error) {
	entry := Entry{Timestamp: time.Now().UTC(), Point: point, Target: target}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		d.logger.Warn("failed to encode hook trail entry", "error", err)
		return
	}
	if _, err := d.trail.Write(append(data, '\n')); err != nil {
		d.logger.Warn("failed to write hook trail entry", "error", err)
	}
}

// Close closes the underlying trail file.
func (d *Dispatcher) Close() error {
	return d.trail.Close()
}
