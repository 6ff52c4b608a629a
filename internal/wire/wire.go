// Package wire is the binary codec shared by the event plane and the RPC
// transport. Payloads are protobuf-encoded with fixed field numbers,
// hand-assembled with encoding/protowire; the schema below matches the
// service's published .proto contract, so payloads interoperate with any
// generated client.
//
//	message Message {
//	    string message_id = 1;
//	    string user_id    = 2;
//	    uint64 timestamp  = 3;   // milliseconds since the Unix epoch
//	    string content    = 4;
//	    bool   read       = 5;
//	}
//	message Friendship  { string user = 1; string friend = 2; }
//	message MessageTag  { string user_id = 1; string message_id = 2; }
//
// NATS delivers each payload as one atomic bus message, so no outer length
// prefix is needed.
package wire

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/hsabouri/the-social-network/internal/model"
)

// fields of message Message
const (
	msgFieldID        = 1
	msgFieldUser      = 2
	msgFieldTimestamp = 3
	msgFieldContent   = 4
	msgFieldRead      = 5
)

// fields of message Friendship
const (
	friendshipFieldUser   = 1
	friendshipFieldFriend = 2
)

// fields of message MessageTag
const (
	tagFieldUser    = 1
	tagFieldMessage = 2
)

// AppendMessage appends the encoding of m to b. Messages published by this
// service are always unread, so the read field stays at its default and is
// omitted.
func AppendMessage(b []byte, m model.Message) []byte {
	b = appendString(b, msgFieldID, m.ID.String())
	b = appendString(b, msgFieldUser, m.Author.String())
	b = protowire.AppendTag(b, msgFieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Date.UnixMilli()))
	b = appendString(b, msgFieldContent, m.Content)
	return b
}

// EncodeMessage encodes m as a standalone payload.
func EncodeMessage(m model.Message) []byte {
	return AppendMessage(nil, m)
}

// DecodeMessage parses a Message payload into a full model.Message. The
// date is derived from the timestamp field; the message id and author are
// parsed from their canonical textual forms.
func DecodeMessage(b []byte) (model.Message, error) {
	var (
		rawID   string
		rawUser string
		rawTS   uint64
		content string
		sawID   bool
		sawUser bool
		sawTS   bool
	)

	err := eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		switch num {
		case msgFieldID:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			rawID, sawID = s, true
		case msgFieldUser:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			rawUser, sawUser = s, true
		case msgFieldTimestamp:
			v, err := fieldVarint(typ, payload)
			if err != nil {
				return err
			}
			rawTS, sawTS = v, true
		case msgFieldContent:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			content = s
		}
		return nil
	})
	if err != nil {
		return model.Message{}, err
	}
	if !sawID || !sawUser || !sawTS {
		return model.Message{}, &MessageError{Err: fmt.Errorf("missing required field (id=%v user=%v ts=%v)", sawID, sawUser, sawTS)}
	}

	id, err := model.ParseMessageID(rawID)
	if err != nil {
		return model.Message{}, &MessageError{Err: err}
	}
	author, err := model.ParseUserID(rawUser)
	if err != nil {
		return model.Message{}, &MessageError{Err: err}
	}
	if rawTS > math.MaxInt64 {
		return model.Message{}, &MessageError{Err: fmt.Errorf("timestamp %d out of range", rawTS)}
	}

	return model.Message{
		ID:      id,
		Author:  author,
		Date:    time.UnixMilli(int64(rawTS)).UTC(),
		Content: content,
	}, nil
}

// EncodeFriendship encodes a directed friendship pair.
func EncodeFriendship(user, friend model.UserID) []byte {
	var b []byte
	b = appendString(b, friendshipFieldUser, user.String())
	b = appendString(b, friendshipFieldFriend, friend.String())
	return b
}

// DecodeFriendship parses a Friendship payload.
func DecodeFriendship(b []byte) (user, friend model.UserID, err error) {
	var rawUser, rawFriend string

	err = eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		switch num {
		case friendshipFieldUser:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			rawUser = s
		case friendshipFieldFriend:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			rawFriend = s
		}
		return nil
	})
	if err != nil {
		return model.UserID{}, model.UserID{}, err
	}

	if user, err = model.ParseUserID(rawUser); err != nil {
		return model.UserID{}, model.UserID{}, err
	}
	if friend, err = model.ParseUserID(rawFriend); err != nil {
		return model.UserID{}, model.UserID{}, err
	}
	return user, friend, nil
}

// EncodeMessageTag encodes a (user, message) read/unread tag payload.
func EncodeMessageTag(user model.UserID, message model.MessageID) []byte {
	var b []byte
	b = appendString(b, tagFieldUser, user.String())
	b = appendString(b, tagFieldMessage, message.String())
	return b
}

// DecodeMessageTag parses a MessageTag payload.
func DecodeMessageTag(b []byte) (user model.UserID, message model.MessageID, err error) {
	var rawUser, rawMessage string

	err = eachField(b, func(num protowire.Number, typ protowire.Type, payload []byte) error {
		switch num {
		case tagFieldUser:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			rawUser = s
		case tagFieldMessage:
			s, err := fieldString(typ, payload)
			if err != nil {
				return err
			}
			rawMessage = s
		}
		return nil
	})
	if err != nil {
		return model.UserID{}, model.MessageID{}, err
	}

	if user, err = model.ParseUserID(rawUser); err != nil {
		return model.UserID{}, model.MessageID{}, err
	}
	if message, err = model.ParseMessageID(rawMessage); err != nil {
		return model.UserID{}, model.MessageID{}, err
	}
	return user, message, nil
}

// eachField walks every field of a payload, handing the raw remainder to fn
// and skipping fields fn does not consume. Framing problems surface as
// *FrameError.
func eachField(b []byte, fn func(num protowire.Number, typ protowire.Type, payload []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return &FrameError{Err: protowire.ParseError(n)}
		}
		b = b[n:]

		if err := fn(num, typ, b); err != nil {
			return err
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return &FrameError{Err: protowire.ParseError(n)}
		}
		b = b[n:]
	}
	return nil
}

func fieldString(typ protowire.Type, payload []byte) (string, error) {
	if typ != protowire.BytesType {
		return "", &FrameError{Err: fmt.Errorf("unexpected wire type %v for string field", typ)}
	}
	s, n := protowire.ConsumeString(payload)
	if n < 0 {
		return "", &FrameError{Err: protowire.ParseError(n)}
	}
	return s, nil
}

func fieldVarint(typ protowire.Type, payload []byte) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, &FrameError{Err: fmt.Errorf("unexpected wire type %v for varint field", typ)}
	}
	v, n := protowire.ConsumeVarint(payload)
	if n < 0 {
		return 0, &FrameError{Err: protowire.ParseError(n)}
	}
	return v, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}
