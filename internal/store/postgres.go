// Package store persists taxonomy documents as JSON blobs behind a small
// key-value repository interface.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modelopt/taxonomy/internal/models"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS taxonomies (
	id TEXT PRIMARY KEY,
	document JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores each taxonomy as a JSONB row.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) NewID() string {
	return newID()
}

func (p *Postgres) Create(ctx context.Context, doc models.Document) (string, error) {
	id := p.NewID()
	if err := p.Upsert(ctx, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (models.Document, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx, `SELECT document FROM taxonomies WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get taxonomy %s: %w", id, err)
	}
	return decode(payload)
}

func (p *Postgres) Upsert(ctx context.Context, id string, doc models.Document) error {
	payload, err := encode(doc)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, `
		INSERT INTO taxonomies (id, document, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`,
		id, string(payload),
	); err != nil {
		return fmt.Errorf("failed to upsert taxonomy %s: %w", id, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
