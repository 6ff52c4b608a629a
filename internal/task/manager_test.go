package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnDeliversResult(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	boom := errors.New("boom")

	assert.NoError(t, <-m.Spawn(func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, <-m.Spawn(func(ctx context.Context) error { return boom }), boom)
}

func TestSpawnRecoversPanic(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	err := <-m.Spawn(func(ctx context.Context) error { panic("oh no") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oh no")

	// The manager survives a panicking task.
	assert.NoError(t, <-m.Spawn(func(ctx context.Context) error { return nil }))
}

func TestSpawnDetachedFromCaller(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	callerCtx, cancel := context.WithCancel(context.Background())
	cancel() // caller is already gone

	ran := make(chan struct{})
	done := m.Spawn(func(ctx context.Context) error {
		// The task's context is not the caller's.
		assert.NoError(t, ctx.Err())
		close(ran)
		return nil
	})

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run after caller cancellation")
	}
	assert.NoError(t, <-done)
	_ = callerCtx
}

func TestSpawnAwaitReturnsOnCancelButTaskFinishes(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		err := m.SpawnAwait(ctx, func(context.Context) error {
			<-release
			close(finished)
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	}()

	cancel()
	close(release)

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("task abandoned after await cancellation")
	}
}

func TestSpawnNeverBlocks(t *testing.T) {
	m := NewManager(zerolog.Nop())

	const n = 1000
	gate := make(chan struct{})
	var started atomic.Int64

	results := make([]<-chan error, n)
	for i := range results {
		results[i] = m.Spawn(func(context.Context) error {
			started.Add(1)
			<-gate
			return nil
		})
	}

	// All submissions were accepted while every task is still blocked.
	close(gate)
	for _, done := range results {
		assert.NoError(t, <-done)
	}
	assert.Equal(t, int64(n), started.Load())

	m.Close()
}

func TestCloseDrains(t *testing.T) {
	m := NewManager(zerolog.Nop())

	var ran atomic.Int64
	for i := 0; i < 50; i++ {
		m.Spawn(func(context.Context) error {
			ran.Add(1)
			return nil
		})
	}

	m.Close()
	assert.Equal(t, int64(50), ran.Load())

	// Idempotent.
	m.Close()
}
