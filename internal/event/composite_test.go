package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsabouri/the-social-network/internal/model"
	"github.com/hsabouri/the-social-network/internal/stream"
)

func msgFrom(author model.UserID, content string) model.Message {
	at := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	return model.Message{
		ID:      model.NewMessageID(author, at),
		Author:  author,
		Date:    at,
		Content: content,
	}
}

func TestCounterpartiesOf(t *testing.T) {
	ctx := context.Background()
	u := model.NewUserID()
	a := model.NewUserID()
	b := model.NewUserID()
	boom := errors.New("boom")

	in := stream.FromSlice([]stream.Result[model.FriendshipUpdate]{
		stream.Ok(model.FriendshipUpdate{Kind: model.UpdateNew, User: u, Friend: a}),
		stream.Ok(model.FriendshipUpdate{Kind: model.UpdateNew, User: b, Friend: u}),
		stream.Fail[model.FriendshipUpdate](boom),
		stream.Ok(model.FriendshipUpdate{Kind: model.UpdateNew, User: u, Friend: b}),
	})

	got := stream.Collect(ctx, CounterpartiesOf(ctx, u, in))

	// Only edges keyed on u pass; the (b, u) form is someone else's view.
	// Errors flow through in place.
	want := []stream.Result[model.UserID]{
		stream.Ok(a),
		stream.Fail[model.UserID](boom),
		stream.Ok(b),
	}
	assert.Equal(t, want, got)
}

func TestProjectFriendUpdates(t *testing.T) {
	ctx := context.Background()
	u := model.NewUserID()
	a := model.NewUserID()

	in := stream.FromSlice([]stream.Result[model.FriendshipUpdate]{
		stream.Ok(model.FriendshipUpdate{Kind: model.UpdateNew, User: u, Friend: a}),
		stream.Ok(model.FriendshipUpdate{Kind: model.UpdateRemoved, User: u, Friend: a}),
		stream.Ok(model.FriendshipUpdate{Kind: model.UpdateNew, User: a, Friend: u}),
	})

	got := stream.Collect(ctx, ProjectFriendUpdates(ctx, u, in))

	want := []stream.Result[model.FriendUpdate]{
		stream.Ok(model.FriendUpdate{Kind: model.UpdateNew, Friend: a}),
		stream.Ok(model.FriendUpdate{Kind: model.UpdateRemoved, Friend: a}),
	}
	assert.Equal(t, want, got)
}

// Feeds the reducer one item at a time over unbuffered channels. A send
// returns only once the reducer has taken the item, and the reducer applies
// it before selecting again, so the interleaving is deterministic.
func TestMessagesFromFriends(t *testing.T) {
	ctx := context.Background()
	a := model.NewUserID()
	b := model.NewUserID()

	updates := make(chan stream.Result[model.FriendUpdate])
	messages := make(chan stream.Result[model.Message])
	out := MessagesFromFriends(ctx, updates, messages)

	var got []stream.Result[model.Message]
	done := make(chan struct{})
	go func() {
		defer close(done)
		got = stream.Collect(ctx, out)
	}()

	hi := msgFrom(a, "hi")
	yo := msgFrom(b, "yo")
	bye := msgFrom(a, "bye")

	updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateNew, Friend: a})
	messages <- stream.Ok(hi)
	updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateNew, Friend: b})
	messages <- stream.Ok(yo)
	updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateRemoved, Friend: a})
	messages <- stream.Ok(bye) // former friend, dropped
	close(messages)
	<-done

	want := []stream.Result[model.Message]{stream.Ok(hi), stream.Ok(yo)}
	assert.Equal(t, want, got)
}

func TestMessagesFromFriendsNonFriendDropped(t *testing.T) {
	ctx := context.Background()
	a := model.NewUserID()
	stranger := model.NewUserID()

	updates := make(chan stream.Result[model.FriendUpdate])
	messages := make(chan stream.Result[model.Message])
	out := MessagesFromFriends(ctx, updates, messages)

	var got []stream.Result[model.Message]
	done := make(chan struct{})
	go func() {
		defer close(done)
		got = stream.Collect(ctx, out)
	}()

	updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateNew, Friend: a})
	close(updates) // frozen snapshot from here on

	fromStranger := msgFrom(stranger, "psst")
	fromFriend := msgFrom(a, "hello")
	messages <- stream.Ok(fromStranger)
	messages <- stream.Ok(fromFriend)
	close(messages)
	<-done

	assert.Equal(t, []stream.Result[model.Message]{stream.Ok(fromFriend)}, got)
}

func TestMessagesFromFriendsAddRemoveAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a := model.NewUserID()

	updates := make(chan stream.Result[model.FriendUpdate])
	messages := make(chan stream.Result[model.Message])
	out := MessagesFromFriends(ctx, updates, messages)

	var got []stream.Result[model.Message]
	done := make(chan struct{})
	go func() {
		defer close(done)
		got = stream.Collect(ctx, out)
	}()

	updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateNew, Friend: a})
	updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateRemoved, Friend: a})
	updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateNew, Friend: a})

	m := msgFrom(a, "once")
	messages <- stream.Ok(m)
	close(messages)
	<-done

	// Re-adding after removal yields exactly one membership, one emission.
	assert.Equal(t, []stream.Result[model.Message]{stream.Ok(m)}, got)
}

func TestMessagesFromFriendsSurfacesErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("decode blew up")

	updates := make(chan stream.Result[model.FriendUpdate])
	messages := make(chan stream.Result[model.Message])
	out := MessagesFromFriends(ctx, updates, messages)

	var got []stream.Result[model.Message]
	done := make(chan struct{})
	go func() {
		defer close(done)
		got = stream.Collect(ctx, out)
	}()

	messages <- stream.Fail[model.Message](boom)
	updates <- stream.Fail[model.FriendUpdate](boom)
	close(messages)
	<-done

	require.Len(t, got, 2)
	assert.ErrorIs(t, got[0].Err, boom)
	assert.ErrorIs(t, got[1].Err, boom)
}

func TestMessagesFromFriendsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	updates := make(chan stream.Result[model.FriendUpdate])
	messages := make(chan stream.Result[model.Message])
	out := MessagesFromFriends(ctx, updates, messages)

	cancel()

	_, ok := <-out
	assert.False(t, ok)
}
