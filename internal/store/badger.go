package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/segmentio/ksuid"
	"github.com/vmihailenco/msgpack/v5"

	"lifo-parking/internal/parking"
)

const (
	snapshotKey    = "state/snapshot"
	receiptPrefix  = "receipt"
	receiptSeqKey  = "seq/receipt"
	receiptSeqBand = 100
)

func OpenBadger(dir string) (*badger.DB, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}

	db, err := badger.Open(opts.WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return db, nil
}

// BadgerStore keeps the encoded snapshot under a single key.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (b *BadgerStore) Save(_ context.Context, state parking.State) error {
	buf, err := EncodeBytes(state)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKey), buf)
	})
}

func (b *BadgerStore) Load(_ context.Context) (parking.State, error) {
	var buf []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKey))
		if err != nil {
			return err
		}
		buf, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return parking.State{}, ErrNoState
	}
	if err != nil {
		return parking.State{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return DecodeBytes(buf)
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// BadgerJournal stores receipts as msgpack values. Keys carry a persisted
// badger sequence, so iteration order is recording order even within one
// second; the ksuid is the receipt's public id.
type BadgerJournal struct {
	entityPrefix []byte
	db           *badger.DB
	seq          *badger.Sequence
	nextID       func() string
}

func NewBadgerJournal(db *badger.DB) (*BadgerJournal, error) {
	seq, err := db.GetSequence([]byte(receiptSeqKey), receiptSeqBand)
	if err != nil {
		return nil, fmt.Errorf("failed to lease receipt sequence: %w", err)
	}

	return &BadgerJournal{
		entityPrefix: []byte(receiptPrefix + "/"),
		db:           db,
		seq:          seq,
		nextID:       newReceiptID,
	}, nil
}

func (b *BadgerJournal) buildKey(n uint64) []byte {
	key := make([]byte, len(b.entityPrefix)+8)
	copy(key, b.entityPrefix)
	binary.BigEndian.PutUint64(key[len(b.entityPrefix):], n)
	return key
}

func (b *BadgerJournal) Record(_ context.Context, receipt parking.Receipt) (string, error) {
	n, err := b.seq.Next()
	if err != nil {
		return "", fmt.Errorf("failed to allocate receipt key: %w", err)
	}

	entry := JournalEntry{ID: b.nextID(), Receipt: receipt}

	buf, err := msgpack.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to marshal receipt: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.buildKey(n), buf)
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// Recent returns up to limit receipts, newest first. A non-positive limit
// returns all of them.
func (b *BadgerJournal) Recent(_ context.Context, limit int) ([]JournalEntry, error) {
	var entries []JournalEntry

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = b.entityPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(b.buildKey(^uint64(0))); it.ValidForPrefix(b.entityPrefix); it.Next() {
			if limit > 0 && len(entries) == limit {
				break
			}

			var e JournalEntry
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	return entries, nil
}

// Close returns the unused part of the sequence lease. Call it before the
// database is closed.
func (b *BadgerJournal) Close() error {
	return b.seq.Release()
}

func newReceiptID() string {
	return ksuid.New().String()
}
