package store

import (
	"context"
	"fmt"
)

const (
	BackendFile     = "file"
	BackendBadger   = "badger"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Options struct {
	Backend     string
	Path        string
	BadgerDir   string
	RedisURL    string
	RedisKey    string
	DatabaseURL string
}

// Open builds the configured snapshot store and a journal for receipts. The
// badger backend shares its database with the journal; other backends keep
// receipts in memory.
func Open(ctx context.Context, opts Options) (Store, Journal, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Path), NewMemoryJournal(), nil
	case BackendMemory:
		return NewMemoryStore(), NewMemoryJournal(), nil
	case BackendBadger:
		db, err := OpenBadger(opts.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		journal, err := NewBadgerJournal(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return NewBadgerStore(db), journal, nil
	case BackendRedis:
		client, err := OpenRedis(ctx, opts.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client, opts.RedisKey), NewMemoryJournal(), nil
	case BackendPostgres:
		s, err := OpenPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, NewMemoryJournal(), nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", opts.Backend)
	}
}
