package storage

import (
	"context"

	"github.com/blockport/blockport-go/api"
)

// Record is the persisted projection of the in-memory session. It is written
// after every state-mutating session operation and read back once at startup.
// Memory is always the write source; the record never leads it.
type Record struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	IsAuthenticated bool      `json:"is_authenticated"`
	User            *api.User `json:"user,omitempty"`
}

// Store is the persistence port for the session record. Implementations back
// it with a file, an OS keystore, or plain memory for tests.
type Store interface {
	// Load returns the persisted record, or (nil, nil) when no usable record
	// exists. A corrupt record reads as absent - it must never block startup.
	Load() (*Record, error)

	// Save replaces the persisted record.
	Save(record *Record) error

	// Clear removes the persisted record. Clearing an absent record is a no-op.
	Clear() error

	// Watch returns a channel that signals whenever the persisted record
	// changes, including changes made by other processes sharing the backing
	// store. The subscription ends when ctx is cancelled.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
