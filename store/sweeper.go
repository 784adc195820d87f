package store

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/kvstore"
)

// sweeper runs cycle every interval on its own goroutine until stopped.
type sweeper struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	cycle    func(ctx context.Context)

	cancel context.CancelFunc
	done   chan struct{}
}

// startSweeper starts the loop. interval <= 0 disables it; the returned
// sweeper is still safe to stop.
func startSweeper(name string, interval, timeout time.Duration, logger *slog.Logger, cycle func(ctx context.Context)) *sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	s := &sweeper{
		name:     name,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		cycle:    cycle,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if interval <= 0 {
		close(s.done)
		return s
	}
	go s.run(ctx)
	return s
}

func (s *sweeper) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *sweeper) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweep failed", "store", s.name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	s.cycle(ctx)
}

// stop cancels the loop and waits for an in-flight cycle, at most timeout.
func (s *sweeper) stop() {
	s.cancel()
	if s.timeout <= 0 {
		<-s.done
		return
	}
	select {
	case <-s.done:
	case <-time.After(s.timeout):
		s.logger.Warn("sweeper did not stop in time, closing anyway", "store", s.name, "timeout", s.timeout)
	}
}

// compact ends a durable sweep. A backend that compaction left unusable is
// as fatal as one that failed to open.
func compact(ctx context.Context, env *internal.Env, logger *slog.Logger, backend kvstore.Backend) {
	err := backend.Compact(ctx)
	switch {
	case err == nil:
	case errors.Is(err, kvstore.ErrUnusable):
		logger.Error("store unusable after compaction", "err", err)
		env.Fatal(err)
	default:
		logger.Error("compact store", "err", err)
	}
}
