// Package event is the NATS event plane: typed publishers for the five
// subjects the service emits on, and subscriber streams that decode bus
// payloads into domain values. Per-item decode failures surface as stream
// items so a subscription survives a bad payload.
package event

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/hsabouri/the-social-network/internal/metrics"
	"github.com/hsabouri/the-social-network/internal/model"
	"github.com/hsabouri/the-social-network/internal/wire"
)

// Bus subjects.
const (
	SubjectNewMessage        = "message.new"
	SubjectNewFriendship     = "friendship.new"
	SubjectRemovedFriendship = "friendship.removed"
	SubjectSeenMessage       = "message.seen"
	SubjectUnseenMessage     = "message.unseen"
)

// BusError reports a failed bus operation.
type BusError struct {
	Op      string
	Subject string
	Err     error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus %s on %s: %v", e.Op, e.Subject, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// Bus wraps the NATS connection with the service's subjects and payload
// encodings.
type Bus struct {
	conn *nats.Conn
	log  zerolog.Logger
}

func NewBus(conn *nats.Conn, log zerolog.Logger) *Bus {
	return &Bus{
		conn: conn,
		log:  log.With().Str("component", "bus").Logger(),
	}
}

func (b *Bus) publish(subject string, payload []byte) error {
	if err := b.conn.Publish(subject, payload); err != nil {
		metrics.RecordPublishFailure(subject)
		return &BusError{Op: "publish", Subject: subject, Err: err}
	}
	metrics.RecordPublish(subject)
	return nil
}

// PublishMessage announces a freshly persisted message.
func (b *Bus) PublishMessage(m model.Message) error {
	return b.publish(SubjectNewMessage, wire.EncodeMessage(m))
}

// PublishFriendship announces a new friendship edge. Both directed forms are
// published so each side sees the change keyed on its own id.
func (b *Bus) PublishFriendship(user, friend model.UserID) error {
	if err := b.publish(SubjectNewFriendship, wire.EncodeFriendship(user, friend)); err != nil {
		return err
	}
	return b.publish(SubjectNewFriendship, wire.EncodeFriendship(friend, user))
}

// PublishFriendshipRemoved announces a removed friendship edge, both
// directions.
func (b *Bus) PublishFriendshipRemoved(user, friend model.UserID) error {
	if err := b.publish(SubjectRemovedFriendship, wire.EncodeFriendship(user, friend)); err != nil {
		return err
	}
	return b.publish(SubjectRemovedFriendship, wire.EncodeFriendship(friend, user))
}

// PublishSeen announces a message tagged read by a user.
func (b *Bus) PublishSeen(user model.UserID, id model.MessageID) error {
	return b.publish(SubjectSeenMessage, wire.EncodeMessageTag(user, id))
}

// PublishUnseen announces a message tagged back to unread.
func (b *Bus) PublishUnseen(user model.UserID, id model.MessageID) error {
	return b.publish(SubjectUnseenMessage, wire.EncodeMessageTag(user, id))
}
