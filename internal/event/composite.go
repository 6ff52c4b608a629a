package event

import (
	"context"

	"github.com/hsabouri/the-social-network/internal/model"
	"github.com/hsabouri/the-social-network/internal/stream"
)

// Composite operators over already-open streams. They are pure channel
// transforms so they compose with any source, live or recorded. Error items
// on an input pass through untouched.

// CounterpartiesOf filters updates whose first element is u and yields the
// counterparty.
func CounterpartiesOf(ctx context.Context, u model.UserID, in <-chan stream.Result[model.FriendshipUpdate]) <-chan stream.Result[model.UserID] {
	out := make(chan stream.Result[model.UserID])

	go func() {
		defer close(out)
		for {
			select {
			case r, ok := <-in:
				if !ok {
					return
				}

				var item stream.Result[model.UserID]
				switch {
				case r.Err != nil:
					item = stream.Fail[model.UserID](r.Err)
				case r.Val.User == u:
					item = stream.Ok(r.Val.Friend)
				default:
					continue
				}

				select {
				case out <- item:
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

// ProjectFriendUpdates narrows a tagged update stream to the edges whose
// first element is u, dropping the subscriber side of the pair.
func ProjectFriendUpdates(ctx context.Context, u model.UserID, in <-chan stream.Result[model.FriendshipUpdate]) <-chan stream.Result[model.FriendUpdate] {
	out := make(chan stream.Result[model.FriendUpdate])

	go func() {
		defer close(out)
		for {
			select {
			case r, ok := <-in:
				if !ok {
					return
				}

				var item stream.Result[model.FriendUpdate]
				switch {
				case r.Err != nil:
					item = stream.Fail[model.FriendUpdate](r.Err)
				case r.Val.User == u:
					item = stream.Ok(model.FriendUpdate{Kind: r.Val.Kind, Friend: r.Val.Friend})
				default:
					continue
				}

				select {
				case out <- item:
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

// MessagesFromFriends filters messages through a friend set driven by the
// updates stream. A message is emitted iff its author is in the set at the
// instant the message is handled. The set is owned by the single reducer
// goroutine, so no locking is involved.
//
// The updates stream may close (a finite snapshot); filtering then continues
// against the frozen set. The output closes when messages closes or ctx is
// cancelled.
func MessagesFromFriends(ctx context.Context, updates <-chan stream.Result[model.FriendUpdate], messages <-chan stream.Result[model.Message]) <-chan stream.Result[model.Message] {
	out := make(chan stream.Result[model.Message])

	go func() {
		defer close(out)

		friends := make(map[model.UserID]struct{})

		emit := func(r stream.Result[model.Message]) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case r, ok := <-updates:
				if !ok {
					updates = nil
					continue
				}
				if r.Err != nil {
					if !emit(stream.Fail[model.Message](r.Err)) {
						return
					}
					continue
				}
				switch r.Val.Kind {
				case model.UpdateNew:
					friends[r.Val.Friend] = struct{}{}
				case model.UpdateRemoved:
					delete(friends, r.Val.Friend)
				}
			case r, ok := <-messages:
				if !ok {
					return
				}
				if r.Err != nil {
					if !emit(r) {
						return
					}
					continue
				}
				if _, member := friends[r.Val.Author]; !member {
					continue
				}
				if !emit(r) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
