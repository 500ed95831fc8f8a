// Package store persists taxonomy documents as JSON blobs behind a small
// key-value repository interface.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelopt/taxonomy/internal/models"
)

// ErrNotFound is returned by Get when no document is stored under the id.
var ErrNotFound = errors.New("taxonomy not found")

// Repository stores whole taxonomy documents. Callers serialize writers per
// id; backends only guarantee that each call is atomic on its own.
type Repository interface {
	Create(ctx context.Context, doc models.Document) (string, error)
	Get(ctx context.Context, id string) (models.Document, error)
	Upsert(ctx context.Context, id string, doc models.Document) error
	NewID() string
	Close() error
}

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string
	Path   string
	DSN    string
}

// Open selects and opens the configured backend. An empty driver means memory.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (Repository, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(ctx, cfg.Path)
	case DriverBadger:
		return NewBadger(cfg.Path, log)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("postgres storage requires a dsn")
		}
		return NewPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newID() string {
	return uuid.NewString()
}

func encode(doc models.Document) ([]byte, error) {
	if doc == nil {
		doc = models.Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode taxonomy: %w", err)
	}
	return data, nil
}

func decode(data []byte) (models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode taxonomy: %w", err)
	}
	if doc == nil {
		doc = models.Document{}
	}
	return doc, nil
}
