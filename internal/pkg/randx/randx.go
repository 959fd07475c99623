/*
Package randx generates identifiers for connections and messages.

Both are UUID v4 strings: unique for practical purposes, opaque to clients and not
meant to survive a process restart.
*/
package randx

import (
	"github.com/google/uuid"
)

// MessageID returns a new identifier for a chat message.
func MessageID() string {
	return uuid.NewString()
}

// ConnectionID returns a new identifier for a live transport connection.
func ConnectionID() string {
	return uuid.NewString()
}

// IsValidID reports whether id is a canonical UUID string as produced by this package.
func IsValidID(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return parsed.String() == id
}
