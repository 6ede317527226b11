// Package idgen supplies time-ordered unique identifiers as an injected
// capability, so the core never reaches for a process-wide singleton.
package idgen

import "github.com/google/uuid"

// Generator produces identifiers that are globally unique and comparable
// under a stable total order. The transfer path relies on that order to lock
// wallet rows deterministically.
type Generator interface {
	NewID() (uuid.UUID, error)
}

// UUIDv7 generates RFC 9562 version 7 UUIDs, which sort by creation time.
type UUIDv7 struct{}

func NewUUIDv7() UUIDv7 { return UUIDv7{} }

func (UUIDv7) NewID() (uuid.UUID, error) { return uuid.NewV7() }
