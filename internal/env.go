// Package internal holds process-scoped state shared by the stores and the
// tracker.
package internal

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Env is the process-scoped context handed to every component at
// construction: the logger, the clock and the shutdown flag.
type Env struct {
	Logger *slog.Logger
	Now    func() time.Time
	// Fatal is called when a store can no longer be used. The default logs
	// err and exits with status 1.
	Fatal func(err error)

	stopped atomic.Bool
}

// NewEnv returns an Env using logger and the wall clock. A nil logger
// discards output.
func NewEnv(logger *slog.Logger) *Env {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Env{Logger: logger, Now: time.Now}
	e.Fatal = func(err error) {
		e.Logger.Error("fatal store failure, exiting", "err", err)
		os.Exit(1)
	}
	return e
}

// Stop sets the shutdown flag. It is never cleared.
func (e *Env) Stop() { e.stopped.Store(true) }

// Stopped reports whether Stop has been called.
func (e *Env) Stopped() bool { return e.stopped.Load() }
