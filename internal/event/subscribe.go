package event

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/hsabouri/the-social-network/internal/metrics"
	"github.com/hsabouri/the-social-network/internal/model"
	"github.com/hsabouri/the-social-network/internal/stream"
	"github.com/hsabouri/the-social-network/internal/wire"
)

// inboxSize bounds the raw NATS delivery channel. Decoding is cheap, so the
// buffer only has to absorb scheduler jitter.
const inboxSize = 256

// subscribe opens a subscription on subject and pumps decoded items into the
// returned stream. The subscription is torn down and the stream closed when
// ctx is cancelled.
func subscribe[T any](ctx context.Context, conn *nats.Conn, log zerolog.Logger, subject string, decode func([]byte) (T, error)) (<-chan stream.Result[T], error) {
	inbox := make(chan *nats.Msg, inboxSize)
	sub, err := conn.ChanSubscribe(subject, inbox)
	if err != nil {
		return nil, &BusError{Op: "subscribe", Subject: subject, Err: err}
	}

	out := make(chan stream.Result[T])
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil {
				log.Warn().Err(err).Str("subject", subject).Msg("unsubscribe failed")
			}
		}()

		for {
			select {
			case msg := <-inbox:
				metrics.RecordReceive(subject)

				var res stream.Result[T]
				if v, err := decode(msg.Data); err != nil {
					metrics.RecordDecodeFailure(subject)
					log.Debug().Err(err).Str("subject", subject).Msg("payload rejected")
					res = stream.Fail[T](err)
				} else {
					res = stream.Ok(v)
				}

				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// NewMessages streams every message published on the bus.
func (b *Bus) NewMessages(ctx context.Context) (<-chan stream.Result[model.Message], error) {
	return subscribe(ctx, b.conn, b.log, SubjectNewMessage, wire.DecodeMessage)
}

// NewFriendships streams new friendship edges as they are announced.
func (b *Bus) NewFriendships(ctx context.Context) (<-chan stream.Result[model.FriendshipUpdate], error) {
	return subscribe(ctx, b.conn, b.log, SubjectNewFriendship, decodeUpdate(model.UpdateNew))
}

// RemovedFriendships streams removed friendship edges.
func (b *Bus) RemovedFriendships(ctx context.Context) (<-chan stream.Result[model.FriendshipUpdate], error) {
	return subscribe(ctx, b.conn, b.log, SubjectRemovedFriendship, decodeUpdate(model.UpdateRemoved))
}

// FriendshipUpdates interleaves new and removed friendship edges into one
// tagged stream, in bus arrival order per subject.
func (b *Bus) FriendshipUpdates(ctx context.Context) (<-chan stream.Result[model.FriendshipUpdate], error) {
	added, err := b.NewFriendships(ctx)
	if err != nil {
		return nil, err
	}
	removed, err := b.RemovedFriendships(ctx)
	if err != nil {
		return nil, err
	}
	return stream.FanIn(ctx, added, removed), nil
}

// SeenMessages streams read tags as users mark messages seen.
func (b *Bus) SeenMessages(ctx context.Context) (<-chan stream.Result[model.SeenTag], error) {
	return subscribe(ctx, b.conn, b.log, SubjectSeenMessage, decodeTag)
}

// UnseenMessages streams tags removed by users marking messages back unread.
func (b *Bus) UnseenMessages(ctx context.Context) (<-chan stream.Result[model.SeenTag], error) {
	return subscribe(ctx, b.conn, b.log, SubjectUnseenMessage, decodeTag)
}

// NewFriendsOf streams the counterparty of every new friendship whose first
// element is u.
func (b *Bus) NewFriendsOf(ctx context.Context, u model.UserID) (<-chan stream.Result[model.UserID], error) {
	in, err := b.NewFriendships(ctx)
	if err != nil {
		return nil, err
	}
	return CounterpartiesOf(ctx, u, in), nil
}

// RemovedFriendsOf is the removal-side counterpart of NewFriendsOf.
func (b *Bus) RemovedFriendsOf(ctx context.Context, u model.UserID) (<-chan stream.Result[model.UserID], error) {
	in, err := b.RemovedFriendships(ctx)
	if err != nil {
		return nil, err
	}
	return CounterpartiesOf(ctx, u, in), nil
}

// FriendUpdatesFor projects the full update stream down to the edges whose
// first element is u, keeping the add/remove tag.
func (b *Bus) FriendUpdatesFor(ctx context.Context, u model.UserID) (<-chan stream.Result[model.FriendUpdate], error) {
	in, err := b.FriendshipUpdates(ctx)
	if err != nil {
		return nil, err
	}
	return ProjectFriendUpdates(ctx, u, in), nil
}

func decodeUpdate(kind model.UpdateKind) func([]byte) (model.FriendshipUpdate, error) {
	return func(data []byte) (model.FriendshipUpdate, error) {
		user, friend, err := wire.DecodeFriendship(data)
		if err != nil {
			return model.FriendshipUpdate{}, err
		}
		return model.FriendshipUpdate{Kind: kind, User: user, Friend: friend}, nil
	}
}

func decodeTag(data []byte) (model.SeenTag, error) {
	user, id, err := wire.DecodeMessageTag(data)
	if err != nil {
		return model.SeenTag{}, err
	}
	return model.SeenTag{User: user, Message: id}, nil
}
