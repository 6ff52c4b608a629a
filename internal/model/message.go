package model

import (
	"fmt"
	"strconv"
	"time"
)

// MessageIDLen is the length of the canonical textual form of a MessageID:
// 36 bytes of hyphenated author UUID, one 'x' separator, 16 hex digits of
// millisecond timestamp.
const MessageIDLen = 36 + 1 + 16

const messageIDSep = 'x'

// MessageID identifies a message globally without a central allocator: the
// author's UserID plus the authoring instant in milliseconds since the Unix
// epoch. The embedded author makes author lookup from an id free.
type MessageID struct {
	User UserID
	// TS is the authoring instant, milliseconds since the Unix epoch.
	TS int64
}

// NewMessageID builds an id for a message authored by user at the given
// instant. Sub-millisecond precision is dropped.
func NewMessageID(user UserID, at time.Time) MessageID {
	return MessageID{User: user, TS: at.UnixMilli()}
}

// Time returns the authoring instant carried by the id, in UTC.
func (id MessageID) Time() time.Time {
	return time.UnixMilli(id.TS).UTC()
}

// String renders the canonical 53-byte ASCII form: "<uuid>x<16-hex-digits>".
func (id MessageID) String() string {
	return fmt.Sprintf("%sx%016x", id.User, uint64(id.TS))
}

// Compare orders ids by timestamp first, then author bytewise.
func (id MessageID) Compare(other MessageID) int {
	switch {
	case id.TS < other.TS:
		return -1
	case id.TS > other.TS:
		return 1
	}
	return id.User.Compare(other.User)
}

// Reasons a MessageID fails to parse. The taxonomy is closed: every failure
// is one of these.
type MessageIDErrorReason int

const (
	MessageIDBadLength MessageIDErrorReason = iota
	MessageIDBadSeparator
	MessageIDBadEncoding
	MessageIDBadUser
	MessageIDBadTimestamp
)

func (r MessageIDErrorReason) String() string {
	switch r {
	case MessageIDBadLength:
		return "wrong length"
	case MessageIDBadSeparator:
		return "missing 'x' separator"
	case MessageIDBadEncoding:
		return "not ASCII"
	case MessageIDBadUser:
		return "invalid author uuid"
	case MessageIDBadTimestamp:
		return "non-hex timestamp"
	}
	return "unknown"
}

// MessageIDError reports a malformed message id.
type MessageIDError struct {
	Reason MessageIDErrorReason
	Input  string
	Err    error
}

func (e *MessageIDError) Error() string {
	return fmt.Sprintf("malformed message id %q: %s", e.Input, e.Reason)
}

func (e *MessageIDError) Unwrap() error { return e.Err }

// ParseMessageID parses the canonical form produced by MessageID.String.
func ParseMessageID(s string) (MessageID, error) {
	if len(s) != MessageIDLen {
		return MessageID{}, &MessageIDError{Reason: MessageIDBadLength, Input: s}
	}
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return MessageID{}, &MessageIDError{Reason: MessageIDBadEncoding, Input: s}
		}
	}
	if s[36] != messageIDSep {
		return MessageID{}, &MessageIDError{Reason: MessageIDBadSeparator, Input: s}
	}
	user, err := ParseUserID(s[:36])
	if err != nil {
		return MessageID{}, &MessageIDError{Reason: MessageIDBadUser, Input: s, Err: err}
	}
	ts, err := strconv.ParseUint(s[37:], 16, 64)
	if err != nil {
		return MessageID{}, &MessageIDError{Reason: MessageIDBadTimestamp, Input: s, Err: err}
	}
	return MessageID{User: user, TS: int64(ts)}, nil
}

// Message is a user-posted message. Messages are immutable once written.
//
// Invariants: ID.User == Author, and ID.TS matches Date to the millisecond.
type Message struct {
	ID      MessageID
	Author  UserID
	Date    time.Time
	Content string
}

// NewMessage stamps a fresh message authored now. The returned message
// already carries its final id, so it can be persisted and published
// without further allocation.
func NewMessage(author UserID, content string) Message {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return Message{
		ID:      NewMessageID(author, now),
		Author:  author,
		Date:    now,
		Content: content,
	}
}

// Less orders messages by date ascending, ties broken by id bytewise.
func (m Message) Less(other Message) bool {
	if !m.Date.Equal(other.Date) {
		return m.Date.Before(other.Date)
	}
	return m.ID.Compare(other.ID) < 0
}
