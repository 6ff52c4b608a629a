package model

// UpdateKind discriminates friendship change events.
type UpdateKind int

const (
	UpdateNew UpdateKind = iota
	UpdateRemoved
)

func (k UpdateKind) String() string {
	if k == UpdateRemoved {
		return "removed"
	}
	return "new"
}

// FriendshipUpdate is a change to a friendship edge, as published on the bus.
// The pair is directed: subscribers filter on User. The write path publishes
// both (a, b) and (b, a) so each side sees the change under its own id.
type FriendshipUpdate struct {
	Kind   UpdateKind
	User   UserID
	Friend UserID
}

// FriendUpdate is the per-subscriber projection of a FriendshipUpdate: the
// subscriber is implicit, only the counterparty remains.
type FriendUpdate struct {
	Kind   UpdateKind
	Friend UserID
}

// SeenTag marks a message as read by a user. Presence of the tag in the
// column store means read; absence means unread.
type SeenTag struct {
	User    UserID
	Message MessageID
}
