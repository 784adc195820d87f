package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/theoremus-urban-solutions/aistrack/internal"
	"github.com/theoremus-urban-solutions/aistrack/kvstore"
)

func TestSweeper_SurvivesPanickingCycle(t *testing.T) {
	var runs atomic.Int32
	s := startSweeper("test", 5*time.Millisecond, time.Second, internal.NewEnv(nil).Logger, func(context.Context) {
		if runs.Add(1) == 1 {
			panic("boom")
		}
	})
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.stop()
}

func TestSweeper_StopIsBounded(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{}, 1)
	s := startSweeper("test", time.Millisecond, 20*time.Millisecond, internal.NewEnv(nil).Logger, func(context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})
	<-started

	begin := time.Now()
	s.stop()
	assert.Less(t, time.Since(begin), time.Second)
}

func TestSweeper_DisabledStopsImmediately(t *testing.T) {
	s := startSweeper("test", 0, 0, internal.NewEnv(nil).Logger, func(context.Context) {
		t.Fatal("cycle must not run")
	})
	s.stop()
}

type unusableBackend struct{ kvstore.Backend }

func (unusableBackend) Compact(context.Context) error {
	return fmt.Errorf("%w: file gone", kvstore.ErrUnusable)
}

func TestDurableSweep_UnusableBackendIsFatal(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		sweep func(env *internal.Env, b kvstore.Backend) (func(context.Context) int, func() error)
	}{
		{"targets", func(env *internal.Env, b kvstore.Backend) (func(context.Context) int, func() error) {
			s := NewDurableTargetStore(env, testOptions(), b)
			return s.Sweep, s.Close
		}},
		{"pasttracks", func(env *internal.Env, b kvstore.Backend) (func(context.Context) int, func() error) {
			s := NewDurablePastTrackStore(env, testOptions(), b)
			return s.Sweep, s.Close
		}},
		{"maxspeed", func(env *internal.Env, b kvstore.Backend) (func(context.Context) int, func() error) {
			s := NewDurableMaxSpeedStore(env, testOptions(), b)
			return s.Sweep, s.Close
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _ := testEnv(t0)
			var fatal error
			env.Fatal = func(err error) { fatal = err }

			sweep, closeStore := tt.sweep(env, unusableBackend{openBolt(t, tt.name)})
			t.Cleanup(func() { _ = closeStore() })

			sweep(ctx)
			assert.ErrorIs(t, fatal, kvstore.ErrUnusable)
		})
	}
}
