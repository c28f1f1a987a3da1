// Package rcenv exposes the write-only plugin environment descriptor:
// a pipe that init-script plugins publish KEY=VALUE records to, which
// the core never reads back. It is a publishing surface for collaborators
// outside this module's scope (the script interpreter, plugin glue); the
// core's only own write is the RC_SVCNAME record rc.Runtime.StartService
// publishes after each successful start.
package rcenv

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Environ is a handle to the plugin environment's write side.
type Environ struct {
	mu     sync.Mutex
	writer *os.File
	reader *os.File
}

// New creates an Environ backed by a fresh os.Pipe. The read side is
// exposed only so a host process can wire it into whatever consumes
// published records (outside this module's scope); the core never reads
// from it itself.
func New() (*Environ, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("rcenv: creating pipe: %w", err)
	}
	return &Environ{writer: w, reader: r}, nil
}

// WriteVar publishes a single KEY=VALUE record, NUL-terminated per the
// wire format plugins expect.
func (e *Environ) WriteVar(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	record := key + "=" + value + "\x00"
	if _, err := e.writer.WriteString(record); err != nil {
		return fmt.Errorf("rcenv: writing var %s: %w", key, err)
	}
	return nil
}

// ReadSide returns the read end of the pipe, for a host process to wire
// into whatever consumes published records.
func (e *Environ) ReadSide() *os.File { return e.reader }

// Legacy returns an io.Writer view of e for callers written against the
// historical global-handle API.
func (e *Environ) Legacy() io.Writer { return legacyWriter{e} }

// Close closes both ends of the pipe.
func (e *Environ) Close() error {
	werr := e.writer.Close()
	rerr := e.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

type legacyWriter struct{ e *Environ }

func (l legacyWriter) Write(p []byte) (int, error) {
	l.e.mu.Lock()
	defer l.e.mu.Unlock()
	return l.e.writer.Write(p)
}

// legacy is the process-wide handle the historical API exposed as a
// global. Init sets it once; code still written against the old style
// calls rcenv.Legacy() as a drop-in replacement for the global.
var (
	legacyMu sync.Mutex
	legacy   *Environ
)

// Init installs env as the process-wide legacy handle. Call once, from
// whatever assembles the runtime (the rc facade), not from library code.
func Init(env *Environ) {
	legacyMu.Lock()
	defer legacyMu.Unlock()
	legacy = env
}

// Current returns the process-wide legacy handle installed by Init, or
// nil if Init was never called.
func Current() *Environ {
	legacyMu.Lock()
	defer legacyMu.Unlock()
	return legacy
}
