// Package model holds the core domain types: user and message identifiers,
// messages, and friendship change events. Identifiers have a fixed canonical
// textual form used both on the wire and in the stores.
package model

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// UserID is a 128-bit user identifier. Its canonical textual form is the
// 36-byte hyphenated UUID representation. Equality, hashing and ordering are
// the bitwise identity, so UserID is usable as a map key.
type UserID uuid.UUID

// ParseUserID parses the canonical hyphenated form.
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, &UserIDError{Input: s, Err: err}
	}
	return UserID(id), nil
}

// NewUserID returns a random (v4) user id.
func NewUserID() UserID {
	return UserID(uuid.New())
}

func (u UserID) String() string {
	return uuid.UUID(u).String()
}

// Compare orders two ids bytewise.
func (u UserID) Compare(other UserID) int {
	return bytes.Compare(u[:], other[:])
}

// UserIDError reports a malformed user id.
type UserIDError struct {
	Input string
	Err   error
}

func (e *UserIDError) Error() string {
	return fmt.Sprintf("malformed user id %q: %v", e.Input, e.Err)
}

func (e *UserIDError) Unwrap() error { return e.Err }

// User is a registered user. The name is unique in the relational store.
type User struct {
	ID   UserID
	Name string
}
