// Package store persists facility state snapshots and the receipt journal.
package store

import (
	"context"
	"errors"

	"lifo-parking/internal/parking"
)

var (
	ErrNoState      = errors.New("no saved state")
	ErrCorruptState = errors.New("corrupt saved state")
)

// Store saves and loads complete facility snapshots. Save replaces any prior
// snapshot as a whole; readers never observe a partial write.
type Store interface {
	Save(ctx context.Context, state parking.State) error
	Load(ctx context.Context) (parking.State, error)
	Close() error
}

// Journal keeps completed visits.
type Journal interface {
	Record(ctx context.Context, receipt parking.Receipt) (string, error)
	Recent(ctx context.Context, limit int) ([]JournalEntry, error)
}

type JournalEntry struct {
	ID      string          `json:"id" msgpack:"id"`
	Receipt parking.Receipt `json:"receipt" msgpack:"receipt"`
}
