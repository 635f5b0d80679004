package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/streakbot/internal/scheduler"
)

func TestScheduler_RunsJob(t *testing.T) {
	s := scheduler.New(context.Background(), nil)

	var runs atomic.Int32
	require.NoError(t, s.Register("tick", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return errors.New("ignored")
	}))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_SkipsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := scheduler.New(ctx, nil)

	var runs atomic.Int32
	require.NoError(t, s.Register("tick", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	}))
	s.Start()
	time.Sleep(1500 * time.Millisecond)
	s.Stop()

	assert.Zero(t, runs.Load())
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := scheduler.New(context.Background(), nil)
	err := s.Register("bad", "* * *", func(context.Context) error { return nil })
	assert.Error(t, err)

	// El spec por defecto lleva segundos
	require.NoError(t, s.Register("default", scheduler.DefaultSpec, func(context.Context) error { return nil }))
}
