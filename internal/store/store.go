// Package store defines the persistence capability consumed by the dialogue
// engine: create/read/update/list records of a given entity kind.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/voyagent/voyagent/internal/trip"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Record is one persisted entity.
type Record struct {
	ID        string      `json:"id"`
	Kind      trip.Kind   `json:"kind"`
	TripID    string      `json:"trip_id,omitempty"`
	Fields    trip.Entity `json:"fields"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ListOptions filters and pages ListRecords.
type ListOptions struct {
	TripID string
	Limit  int
	Offset int
}

// RecordStore is the engine's view of the backend-as-a-service. All methods
// are fallible; the engine treats failures on best-effort writes as
// log-and-continue and everything else as surfaced errors.
type RecordStore interface {
	// CreateRecord persists a new record. CreatedAt/UpdatedAt are set by the store.
	CreateRecord(ctx context.Context, rec *Record) error

	// GetRecord retrieves a record by kind and ID.
	GetRecord(ctx context.Context, kind trip.Kind, id string) (*Record, error)

	// UpdateRecord replaces a record's fields and returns the updated record.
	UpdateRecord(ctx context.Context, kind trip.Kind, id string, fields trip.Entity) (*Record, error)

	// ListRecords lists records of a kind ordered by creation time.
	ListRecords(ctx context.Context, kind trip.Kind, opts ListOptions) ([]*Record, error)

	// Close releases the underlying storage.
	Close() error
}
