package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/hsabouri/the-social-network/internal/model"
)

// RPC message bodies for the SocialNetwork service. Identifiers travel as
// their canonical strings and are parsed at the service boundary, where a
// parse failure becomes InvalidArgument. Each type implements Marshaler and
// Unmarshaler so the transport codec stays generic.

// Marshaler is implemented by RPC messages that can serialize themselves.
type Marshaler interface {
	AppendWire(b []byte) []byte
}

// Unmarshaler is implemented by RPC messages that can parse themselves.
type Unmarshaler interface {
	UnmarshalWire(b []byte) error
}

// UserByNameRequest asks for the user record behind a display name.
type UserByNameRequest struct {
	Name string
}

func (r *UserByNameRequest) AppendWire(b []byte) []byte {
	return appendString(b, 1, r.Name)
}

func (r *UserByNameRequest) UnmarshalWire(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		if num != 1 {
			return nil
		}
		s, err := fieldString(typ, payload)
		if err != nil {
			return err
		}
		r.Name = s
		return nil
	})
}

// UserResponse carries a resolved user record.
type UserResponse struct {
	UserID string
	Name   string
}

func (r *UserResponse) AppendWire(b []byte) []byte {
	b = appendString(b, 1, r.UserID)
	return appendString(b, 2, r.Name)
}

func (r *UserResponse) UnmarshalWire(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		switch num {
		case 1:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			r.UserID = s
		case 2:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			r.Name = s
		}
		return nil
	})
}

// FriendRequest names the two ends of a friendship edge.
type FriendRequest struct {
	UserID   string
	FriendID string
}

func (r *FriendRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, r.UserID)
	return appendString(b, 2, r.FriendID)
}

func (r *FriendRequest) UnmarshalWire(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		switch num {
		case 1:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			r.UserID = s
		case 2:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			r.FriendID = s
		}
		return nil
	})
}

// FriendResponse acknowledges a friendship mutation.
type FriendResponse struct {
	Success bool
}

func (r *FriendResponse) AppendWire(b []byte) []byte {
	return appendWireBool(b, 1, r.Success)
}

func (r *FriendResponse) UnmarshalWire(b []byte) error {
	v, err := unmarshalBoolField(b, 1)
	if err != nil {
		return err
	}
	r.Success = v
	return nil
}

// PostMessageRequest submits new message content; the id is assigned
// server-side.
type PostMessageRequest struct {
	UserID  string
	Content string
}

func (r *PostMessageRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, r.UserID)
	return appendString(b, 2, r.Content)
}

func (r *PostMessageRequest) UnmarshalWire(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		switch num {
		case 1:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			r.UserID = s
		case 2:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			r.Content = s
		}
		return nil
	})
}

// TagMessageRequest marks a message seen or unseen for a user.
type TagMessageRequest struct {
	UserID    string
	MessageID string
}

func (r *TagMessageRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, r.UserID)
	return appendString(b, 2, r.MessageID)
}

func (r *TagMessageRequest) UnmarshalWire(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		switch num {
		case 1:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			r.UserID = s
		case 2:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			r.MessageID = s
		}
		return nil
	})
}

// MessageStatusResponse acknowledges a message write or tag mutation.
type MessageStatusResponse struct {
	Success bool
}

func (r *MessageStatusResponse) AppendWire(b []byte) []byte {
	return appendWireBool(b, 1, r.Success)
}

func (r *MessageStatusResponse) UnmarshalWire(b []byte) error {
	v, err := unmarshalBoolField(b, 1)
	if err != nil {
		return err
	}
	r.Success = v
	return nil
}

// TimelineRequest opens a historical timeline stream for a user.
type TimelineRequest struct {
	UserID string
}

func (r *TimelineRequest) AppendWire(b []byte) []byte {
	return appendString(b, 1, r.UserID)
}

func (r *TimelineRequest) UnmarshalWire(b []byte) error {
	v, err := unmarshalStringField(b, 1)
	if err != nil {
		return err
	}
	r.UserID = v
	return nil
}

// TimelineResponse is one batch of a historical timeline stream.
type TimelineResponse struct {
	Messages []model.Message
}

func (r *TimelineResponse) AppendWire(b []byte) []byte {
	for _, m := range r.Messages {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, EncodeMessage(m))
	}
	return b
}

func (r *TimelineResponse) UnmarshalWire(b []byte) error {
	r.Messages = nil
	return eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		if num != 1 {
			return nil
		}
		raw, err := fieldBytes(typ, payload)
		if err != nil {
			return err
		}
		m, err := DecodeMessage(raw)
		if err != nil {
			return err
		}
		r.Messages = append(r.Messages, m)
		return nil
	})
}

// NotificationsRequest opens a live notification stream for a user.
type NotificationsRequest struct {
	UserID string
}

func (r *NotificationsRequest) AppendWire(b []byte) []byte {
	return appendString(b, 1, r.UserID)
}

func (r *NotificationsRequest) UnmarshalWire(b []byte) error {
	v, err := unmarshalStringField(b, 1)
	if err != nil {
		return err
	}
	r.UserID = v
	return nil
}

// NotificationsResponse is one live notification. Message is nil for
// keep-alive frames.
type NotificationsResponse struct {
	Message *model.Message
}

func (r *NotificationsResponse) AppendWire(b []byte) []byte {
	if r.Message == nil {
		return b
	}
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	return protowire.AppendBytes(b, EncodeMessage(*r.Message))
}

func (r *NotificationsResponse) UnmarshalWire(b []byte) error {
	r.Message = nil
	return eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		if num != 1 {
			return nil
		}
		raw, err := fieldBytes(typ, payload)
		if err != nil {
			return err
		}
		m, err := DecodeMessage(raw)
		if err != nil {
			return err
		}
		r.Message = &m
		return nil
	})
}

func fieldBytes(typ protowire.Type, payload []byte) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, &FrameError{Err: fmt.Errorf("unexpected wire type %v for bytes field", typ)}
	}
	raw, n := protowire.ConsumeBytes(payload)
	if n < 0 {
		return nil, &FrameError{Err: protowire.ParseError(n)}
	}
	return raw, nil
}

func appendWireBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func unmarshalStringField(b []byte, want protowire.Number) (string, error) {
	var out string
	err := eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		if num != want {
			return nil
		}
		s, err := fieldString(typ, payload)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

func unmarshalBoolField(b []byte, want protowire.Number) (bool, error) {
	var out bool
	err := eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		if num != want {
			return nil
		}
		v, err := fieldVarint(typ, payload)
		if err != nil {
			return err
		}
		out = v != 0
		return nil
	})
	return out, err
}
