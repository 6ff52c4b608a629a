package wire

import "fmt"

// Decode failures form a closed taxonomy:
//
//   - *FrameError: the protobuf framing itself is broken.
//   - *MessageError: the frame held a Message whose body is invalid (bad
//     embedded MessageID, bad author UserID, or timestamp out of range);
//     the cause is wrapped.
//   - *model.UserIDError, *model.MessageIDError: a Friendship or MessageTag
//     frame carried a malformed identifier; surfaced as-is.
//
// Everything else decodes.

// FrameError reports malformed protobuf framing in a bus payload.
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("malformed wire frame: %v", e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// MessageError reports a structurally valid Message frame with an invalid
// body.
type MessageError struct {
	Err error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("invalid message body: %v", e.Err)
}

func (e *MessageError) Unwrap() error { return e.Err }
