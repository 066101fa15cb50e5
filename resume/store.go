// Package resume provides persistence for session resumption handles.
//
// The endpoint periodically issues opaque handles that let a future
// connection resume a session's server-side context. A Store keeps the
// latest handle per session so resumption survives reconnects and, with the
// Redis backend, process restarts.
package resume

import (
	"context"
	"errors"
)

// Store persists the latest resumption handle per session.
type Store interface {
	// Load retrieves the stored handle for a session.
	// Returns ErrNotFound when no handle has been saved.
	Load(ctx context.Context, sessionID string) (string, error)

	// Save stores the handle for a session, replacing any previous one.
	Save(ctx context.Context, sessionID, handle string) error

	// Clear removes the stored handle for a session.
	// Clearing an absent handle is not an error.
	Clear(ctx context.Context, sessionID string) error
}

// ErrNotFound is returned when no handle exists for a session.
var ErrNotFound = errors.New("resumption handle not found")

// ErrInvalidID is returned when an empty session ID is provided.
var ErrInvalidID = errors.New("invalid session ID")
