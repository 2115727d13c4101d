package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores sealed blobs in the ore.saves table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a pool whose schema has been applied.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	var sum string
	err := p.pool.QueryRow(ctx, `
		SELECT blob, checksum
		FROM ore.saves
		WHERE key = $1
	`, key).Scan(&blob, &sum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return Open(blob, sum)
}

func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	blob, sum, err := Seal(value)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, `
		INSERT INTO ore.saves (key, blob, checksum, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET blob = $2, checksum = $3, updated_at = now()
	`, key, blob, sum); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM ore.saves WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
