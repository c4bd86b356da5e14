package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/giantroach/Mistvoyage-sub000/internal/game"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS saves (
  slot TEXT PRIMARY KEY,
  payload JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresStore keeps slots in a shared Postgres table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects with dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, slot string, snap game.Snapshot) error {
	payload, err := encode(snap)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO saves(slot, payload, updated_at)
		 VALUES($1, $2, now())
		 ON CONFLICT(slot) DO UPDATE SET
		   payload=excluded.payload,
		   updated_at=now()`,
		SanitizeSlot(slot),
		string(payload),
	)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, slot string) (game.Snapshot, error) {
	var payload string
	err := s.pool.QueryRow(ctx, `SELECT payload::text FROM saves WHERE slot = $1`, SanitizeSlot(slot)).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return game.Snapshot{}, ErrNotFound
		}
		return game.Snapshot{}, err
	}
	return decode([]byte(payload))
}

func (s *PostgresStore) Delete(ctx context.Context, slot string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM saves WHERE slot = $1`, SanitizeSlot(slot))
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
