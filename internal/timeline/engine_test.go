package timeline

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsabouri/the-social-network/internal/bucket"
	"github.com/hsabouri/the-social-network/internal/model"
	"github.com/hsabouri/the-social-network/internal/stream"
)

type fakeFriends struct {
	friends map[model.UserID][]model.UserID
	err     error
}

func (f *fakeFriends) FriendsOf(ctx context.Context, u model.UserID) ([]model.UserID, error) {
	return f.friends[u], f.err
}

// fakeHistory mirrors the store's bucket walk: one lookup per (user, bucket)
// pair so tests can count point queries.
type fakeHistory struct {
	messages map[model.UserID]map[int64][]model.Message
	lookups  int
}

func (f *fakeHistory) MessagesOf(ctx context.Context, u model.UserID, from, to bucket.Bucket) <-chan stream.Result[model.Message] {
	var out []stream.Result[model.Message]
	for _, b := range from.IterPastTo(to) {
		f.lookups++
		for _, m := range f.messages[u][b.Unix()] {
			out = append(out, stream.Ok(m))
		}
	}
	return stream.FromSlice(out)
}

type fakeEvents struct {
	updates  chan stream.Result[model.FriendUpdate]
	messages chan stream.Result[model.Message]
}

func (f *fakeEvents) NewMessages(ctx context.Context) (<-chan stream.Result[model.Message], error) {
	return f.messages, nil
}

func (f *fakeEvents) FriendUpdatesFor(ctx context.Context, u model.UserID) (<-chan stream.Result[model.FriendUpdate], error) {
	return f.updates, nil
}

func msgAt(author model.UserID, at time.Time, content string) model.Message {
	return model.Message{
		ID:      model.NewMessageID(author, at),
		Author:  author,
		Date:    at,
		Content: content,
	}
}

func TestHistoricalWalksBucketsPerFriend(t *testing.T) {
	ctx := context.Background()
	u := model.NewUserID()
	a := model.NewUserID()
	b := model.NewUserID()

	w0 := bucket.Current()
	w1 := w0.Previous()
	w2 := w1.Previous()

	// a posted in the current week and two weeks back, b in between.
	fromA1 := msgAt(a, w0.Time().Add(time.Hour), "a recent")
	fromA2 := msgAt(a, w2.Time().Add(time.Hour), "a old")
	fromB := msgAt(b, w1.Time().Add(time.Hour), "b middle")

	history := &fakeHistory{messages: map[model.UserID]map[int64][]model.Message{
		a: {w0.Unix(): {fromA1}, w2.Unix(): {fromA2}},
		b: {w1.Unix(): {fromB}},
	}}
	friends := &fakeFriends{friends: map[model.UserID][]model.UserID{u: {a, b}}}

	eng := NewEngine(friends, history, &fakeEvents{}, zerolog.Nop())

	out, err := eng.Historical(ctx, u)
	require.NoError(t, err)
	got := stream.Collect(ctx, out)

	require.Len(t, got, 3)
	var contents []string
	for _, r := range got {
		require.NoError(t, r.Err)
		contents = append(contents, r.Val.Content)
	}
	sort.Strings(contents)
	assert.Equal(t, []string{"a old", "a recent", "b middle"}, contents)

	// Every friend is walked over the full bucket range, one lookup each.
	weeks := len(bucket.Current().IterPastTo(bucket.Epoch()))
	assert.Equal(t, 2*weeks, history.lookups)
}

func TestHistoricalNoFriends(t *testing.T) {
	ctx := context.Background()
	u := model.NewUserID()

	eng := NewEngine(&fakeFriends{}, &fakeHistory{}, &fakeEvents{}, zerolog.Nop())

	out, err := eng.Historical(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, stream.Collect(ctx, out))
}

func TestHistoricalFriendLookupError(t *testing.T) {
	boom := errors.New("pool exhausted")
	eng := NewEngine(&fakeFriends{err: boom}, &fakeHistory{}, &fakeEvents{}, zerolog.Nop())

	_, err := eng.Historical(context.Background(), model.NewUserID())
	assert.ErrorIs(t, err, boom)
}

// Live sends go through two hops (the snapshot/live concatenation, then the
// reducer). Each hop hands an item over only when the next stage receives
// it, so sending one extra update synchronizes: once it is accepted, every
// earlier update has been applied by the reducer.
func TestRealTimeFollowsFriendshipChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u := model.NewUserID()
	a := model.NewUserID()
	b := model.NewUserID()
	c := model.NewUserID()

	events := &fakeEvents{
		updates:  make(chan stream.Result[model.FriendUpdate]),
		messages: make(chan stream.Result[model.Message]),
	}
	friends := &fakeFriends{friends: map[model.UserID][]model.UserID{u: {a}}}

	eng := NewEngine(friends, &fakeHistory{}, events, zerolog.Nop())

	out, err := eng.RealTime(ctx, u)
	require.NoError(t, err)

	var got []stream.Result[model.Message]
	done := make(chan struct{})
	go func() {
		defer close(done)
		got = stream.Collect(ctx, out)
	}()

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	hi := msgAt(a, now, "hi")
	yo := msgAt(b, now.Add(time.Second), "yo")
	bye := msgAt(a, now.Add(2*time.Second), "bye")

	// Accepting a live update means the initial snapshot has drained.
	events.updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateNew, Friend: b})
	events.messages <- stream.Ok(hi)

	// Sync: once this extra update is accepted, New(b) has been applied.
	events.updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateNew, Friend: c})
	events.messages <- stream.Ok(yo)

	events.updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateRemoved, Friend: a})
	events.updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateNew, Friend: c})
	events.messages <- stream.Ok(bye) // a was removed, dropped

	close(events.messages)
	<-done

	want := []stream.Result[model.Message]{stream.Ok(hi), stream.Ok(yo)}
	assert.Equal(t, want, got)
}

func TestRealTimeNeverEmitsOwnPosts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u := model.NewUserID()
	a := model.NewUserID()

	events := &fakeEvents{
		updates:  make(chan stream.Result[model.FriendUpdate]),
		messages: make(chan stream.Result[model.Message]),
	}
	friends := &fakeFriends{friends: map[model.UserID][]model.UserID{u: {a}}}

	eng := NewEngine(friends, &fakeHistory{}, events, zerolog.Nop())

	out, err := eng.RealTime(ctx, u)
	require.NoError(t, err)

	var got []stream.Result[model.Message]
	done := make(chan struct{})
	go func() {
		defer close(done)
		got = stream.Collect(ctx, out)
	}()

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	own := msgAt(u, now, "talking to myself")
	fromFriend := msgAt(a, now.Add(time.Second), "hello")

	events.updates <- stream.Ok(model.FriendUpdate{Kind: model.UpdateNew, Friend: a})
	events.messages <- stream.Ok(own)
	events.messages <- stream.Ok(fromFriend)
	close(events.messages)
	<-done

	assert.Equal(t, []stream.Result[model.Message]{stream.Ok(fromFriend)}, got)
}
