// Package stream provides the channel combinators the timeline engine is
// built from: a k-way sorted merge, an unordered fan-in, and sequential
// concatenation. Sources and sinks are plain receive-only channels; a closed
// channel means a drained source. Every combinator owns one goroutine and
// stops it when the context is cancelled or all sources drain.
package stream

import (
	"context"
	"sync"
)

// Result carries a value or an error through a stream. Streams that can fail
// per item are channels of Result rather than of the bare value, so one bad
// item does not tear the stream down.
type Result[T any] struct {
	Val T
	Err error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Val: v}
}

// Fail wraps an error item.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// sourceState tracks one input of a merge. A source is either holding a head
// value ready for comparison, or drained.
type sourceState[T any] struct {
	src  <-chan T
	head T
	live bool
}

// refill blocks until the source yields its next head or drains.
func (s *sourceState[T]) refill(ctx context.Context) {
	select {
	case v, ok := <-s.src:
		s.head = v
		s.live = ok
	case <-ctx.Done():
		s.live = false
	}
}

// MergeSorted merges sorted sources into one sorted output. A value is
// emitted only once every source has either produced its next head or
// drained, so the merge never runs ahead of a lagging input.
//
// Inputs must be non-decreasing under less; if they are not, the output is
// still a permutation of the concatenated inputs, just unordered.
func MergeSorted[T any](ctx context.Context, less func(a, b T) bool, sources ...<-chan T) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)

		states := make([]*sourceState[T], len(sources))
		for i, src := range sources {
			states[i] = &sourceState[T]{src: src}
			states[i].refill(ctx)
		}

		for {
			best := -1
			for i, s := range states {
				if !s.live {
					continue
				}
				if best == -1 || less(s.head, states[best].head) {
					best = i
				}
			}
			if best == -1 {
				return
			}

			select {
			case out <- states[best].head:
			case <-ctx.Done():
				return
			}
			states[best].refill(ctx)
		}
	}()

	return out
}

// MergeSortedResults merges sorted fallible sources. Error items compare
// greater than any value, so within a batch of available heads the
// successful values drain first and errors tail them. A source that yields
// an error is refilled after the error is emitted, like any other source.
func MergeSortedResults[T any](ctx context.Context, less func(a, b T) bool, sources ...<-chan Result[T]) <-chan Result[T] {
	resLess := func(a, b Result[T]) bool {
		switch {
		case a.Err == nil && b.Err == nil:
			return less(a.Val, b.Val)
		case a.Err == nil:
			return true
		default:
			return false
		}
	}
	return MergeSorted(ctx, resLess, sources...)
}

// FanIn merges sources into one output with no ordering between them; each
// source's own order is preserved. This is the select_all used by the
// historical timeline, where cross-friend ordering is not guaranteed.
func FanIn[T any](ctx context.Context, sources ...<-chan T) <-chan T {
	out := make(chan T)

	var wg sync.WaitGroup
	wg.Add(len(sources))
	for _, src := range sources {
		go func(src <-chan T) {
			defer wg.Done()
			for {
				select {
				case v, ok := <-src:
					if !ok {
						return
					}
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(src)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// Concat drains sources one after another, in order. The second source is
// not read before the first closes. Used to chain a finite snapshot in
// front of a live stream.
func Concat[T any](ctx context.Context, sources ...<-chan T) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)
		for _, src := range sources {
			for src != nil {
				select {
				case v, ok := <-src:
					if !ok {
						src = nil
						continue
					}
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// FromSlice feeds a fixed slice through a channel and closes it.
func FromSlice[T any](items []T) <-chan T {
	out := make(chan T, len(items))
	for _, v := range items {
		out <- v
	}
	close(out)
	return out
}

// Collect drains a channel into a slice, stopping early on cancellation.
func Collect[T any](ctx context.Context, src <-chan T) []T {
	var out []T
	for {
		select {
		case v, ok := <-src:
			if !ok {
				return out
			}
			out = append(out, v)
		case <-ctx.Done():
			return out
		}
	}
}
