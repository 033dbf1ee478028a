package store

import (
	"context"
	"sync"

	"lifo-parking/internal/parking"
)

// MemoryStore holds the encoded snapshot in process. The state still goes
// through the binary codec so behaviour matches the durable stores.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, state parking.State) error {
	data, err := EncodeBytes(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (parking.State, error) {
	s.mu.Lock()
	data := s.data
	s.mu.Unlock()

	if data == nil {
		return parking.State{}, ErrNoState
	}
	return DecodeBytes(data)
}

func (s *MemoryStore) Close() error {
	return nil
}

// MemoryJournal is an in-process Journal.
type MemoryJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
	nextID  func() string
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{nextID: newReceiptID}
}

func (j *MemoryJournal) Record(_ context.Context, receipt parking.Receipt) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id := j.nextID()
	j.entries = append(j.entries, JournalEntry{ID: id, Receipt: receipt})
	return id, nil
}

func (j *MemoryJournal) Recent(_ context.Context, limit int) ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]JournalEntry, 0, len(j.entries))
	for i := len(j.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, j.entries[i])
	}
	return out, nil
}
