package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lifo-parking/internal/parking"
)

const createSnapshotTable = `
CREATE TABLE IF NOT EXISTS parking_state (
	id         SMALLINT PRIMARY KEY CHECK (id = 1),
	snapshot   BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertSnapshot = `
INSERT INTO parking_state (id, snapshot, updated_at)
VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at`

const selectSnapshot = `SELECT snapshot FROM parking_state WHERE id = 1`

// PostgresStore keeps the encoded snapshot in a single-row table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createSnapshotTable); err != nil {
		return fmt.Errorf("create parking_state table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, state parking.State) error {
	buf, err := EncodeBytes(state)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, upsertSnapshot, buf); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (parking.State, error) {
	var buf []byte
	err := s.pool.QueryRow(ctx, selectSnapshot).Scan(&buf)
	if errors.Is(err, pgx.ErrNoRows) {
		return parking.State{}, ErrNoState
	}
	if err != nil {
		return parking.State{}, fmt.Errorf("select snapshot: %w", err)
	}

	return DecodeBytes(buf)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
