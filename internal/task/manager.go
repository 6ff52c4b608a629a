// Package task runs write-path work detached from the request that started
// it. A caller hanging up must not abort a half-done persist-then-publish
// sequence, so tasks get a fresh context and the queue between submission and
// execution is unbounded.
package task

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hsabouri/the-social-network/internal/metrics"
)

// Fn is a unit of detached work. The context it receives is never the
// caller's; it is only cancelled if the process is going down hard.
type Fn func(ctx context.Context) error

type pending struct {
	fn   Fn
	done chan error
}

// Manager owns the task queue. Spawning never blocks and never drops: the
// queue grows as needed. Each dequeued task runs in its own goroutine.
type Manager struct {
	log      zerolog.Logger
	in       chan pending
	dispatch chan pending
	pumped   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func NewManager(log zerolog.Logger) *Manager {
	m := &Manager{
		log:      log.With().Str("component", "tasks").Logger(),
		in:       make(chan pending),
		dispatch: make(chan pending),
		pumped:   make(chan struct{}),
	}
	go m.pump()
	go m.dispatcher()
	return m
}

// pump shuttles submissions into an unbounded in-memory queue so Spawn never
// waits on the dispatcher.
func (m *Manager) pump() {
	defer close(m.dispatch)

	var queue []pending
	in := m.in
	for in != nil || len(queue) > 0 {
		var out chan pending
		var head pending
		if len(queue) > 0 {
			out = m.dispatch
			head = queue[0]
		}

		select {
		case p, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, p)
			metrics.TaskQueued()
		case out <- head:
			queue = queue[1:]
			metrics.TaskDequeued()
		}
	}
}

func (m *Manager) dispatcher() {
	defer close(m.pumped)
	for p := range m.dispatch {
		m.wg.Add(1)
		go m.run(p)
	}
}

func (m *Manager) run(p pending) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Interface("panic_value", r).
				Str("stack_trace", string(debug.Stack())).
				Msg("task panicked")
			metrics.RecordTask(metrics.OutcomePanic)
			p.done <- fmt.Errorf("task panicked: %v", r)
		}
	}()

	err := p.fn(context.Background())
	if err != nil {
		metrics.RecordTask(metrics.OutcomeError)
	} else {
		metrics.RecordTask(metrics.OutcomeOK)
	}
	p.done <- err
}

// Spawn queues fn and returns a one-shot channel carrying its result. The
// task runs regardless of whether the caller ever reads the channel or is
// still around when the task finishes.
func (m *Manager) Spawn(fn Fn) <-chan error {
	done := make(chan error, 1)
	m.in <- pending{fn: fn, done: done}
	return done
}

// SpawnAwait queues fn and waits for its result. If ctx is cancelled first,
// SpawnAwait returns ctx.Err() but the task keeps running to completion.
func (m *Manager) SpawnAwait(ctx context.Context, fn Fn) error {
	done := m.Spawn(fn)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake, drains the queue, and waits for every running task.
// Spawning after Close panics.
func (m *Manager) Close() {
	m.once.Do(func() {
		close(m.in)
		<-m.pumped
		m.wg.Wait()
	})
}
