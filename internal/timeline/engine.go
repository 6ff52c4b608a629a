// Package timeline builds the two message feeds a user can open: the
// historical feed over persisted messages of current friends, and the
// real-time feed filtering live bus traffic through a friend set that
// follows friendship changes as they happen.
package timeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hsabouri/the-social-network/internal/bucket"
	"github.com/hsabouri/the-social-network/internal/event"
	"github.com/hsabouri/the-social-network/internal/metrics"
	"github.com/hsabouri/the-social-network/internal/model"
	"github.com/hsabouri/the-social-network/internal/stream"
)

// FriendLister resolves the current friend set of a user.
type FriendLister interface {
	FriendsOf(ctx context.Context, u model.UserID) ([]model.UserID, error)
}

// MessageHistory walks one user's persisted messages from the from bucket
// back to the to bucket, lazily.
type MessageHistory interface {
	MessagesOf(ctx context.Context, u model.UserID, from, to bucket.Bucket) <-chan stream.Result[model.Message]
}

// Events exposes the live bus streams the real-time feed is built from.
type Events interface {
	NewMessages(ctx context.Context) (<-chan stream.Result[model.Message], error)
	FriendUpdatesFor(ctx context.Context, u model.UserID) (<-chan stream.Result[model.FriendUpdate], error)
}

// Engine wires friends, history, and live events into timeline streams.
type Engine struct {
	friends FriendLister
	history MessageHistory
	events  Events
	log     zerolog.Logger
}

func NewEngine(friends FriendLister, history MessageHistory, events Events, log zerolog.Logger) *Engine {
	return &Engine{
		friends: friends,
		history: history,
		events:  events,
		log:     log.With().Str("component", "timeline").Logger(),
	}
}

// Historical streams the persisted messages of u's current friends, walking
// each friend from the current week back to the epoch. Per-friend streams
// are fanned in unmerged: within one friend messages come newest-first,
// across friends the interleaving is unspecified. A backend failure inside
// one friend's walk ends that friend's sub-stream only.
func (e *Engine) Historical(ctx context.Context, u model.UserID) (<-chan stream.Result[model.Message], error) {
	friends, err := e.friends.FriendsOf(ctx, u)
	if err != nil {
		return nil, err
	}

	from := bucket.Current()
	to := bucket.Epoch()
	sources := make([]<-chan stream.Result[model.Message], len(friends))
	for i, f := range friends {
		sources[i] = e.history.MessagesOf(ctx, f, from, to)
	}

	e.log.Debug().Stringer("user", u).Int("friends", len(friends)).Msg("historical timeline opened")
	return e.meter(ctx, metrics.TimelineHistorical, stream.FanIn(ctx, sources...)), nil
}

// RealTime streams every new bus message whose author is a friend of u at
// the instant the message reaches the feed's reducer. The friend set starts
// from the current snapshot and then follows live friendship updates; a
// removed friend's later messages are dropped.
//
// Live subscriptions open before the snapshot is taken, so an update racing
// the snapshot is applied rather than lost. Applying New twice is idempotent.
func (e *Engine) RealTime(ctx context.Context, u model.UserID) (<-chan stream.Result[model.Message], error) {
	live, err := e.events.FriendUpdatesFor(ctx, u)
	if err != nil {
		return nil, err
	}
	messages, err := e.events.NewMessages(ctx)
	if err != nil {
		return nil, err
	}

	friends, err := e.friends.FriendsOf(ctx, u)
	if err != nil {
		return nil, err
	}
	initial := make([]stream.Result[model.FriendUpdate], len(friends))
	for i, f := range friends {
		initial[i] = stream.Ok(model.FriendUpdate{Kind: model.UpdateNew, Friend: f})
	}

	updates := stream.Concat(ctx, stream.FromSlice(initial), live)

	e.log.Debug().Stringer("user", u).Int("friends", len(friends)).Msg("real-time timeline opened")
	return e.meter(ctx, metrics.TimelineRealTime, event.MessagesFromFriends(ctx, updates, messages)), nil
}

// meter forwards a stream while keeping the active-timeline gauge accurate.
func (e *Engine) meter(ctx context.Context, kind string, in <-chan stream.Result[model.Message]) <-chan stream.Result[model.Message] {
	metrics.TimelineOpened(kind)

	out := make(chan stream.Result[model.Message])
	go func() {
		defer metrics.TimelineClosed(kind)
		defer close(out)
		for {
			select {
			case r, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
