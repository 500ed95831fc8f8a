// Package store persists taxonomy documents as JSON blobs behind a small
// key-value repository interface.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/modelopt/taxonomy/internal/models"
)

const badgerKeyPrefix = "taxonomy/"

// Badger keeps taxonomies in an embedded BadgerDB. An empty path opens an
// in-memory database.
type Badger struct {
	db *badger.DB
}

// badgerLogger adapts zap to BadgerDB's Logger interface.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...any)   { l.log.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...any) { l.log.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...any)    { l.log.Infof(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...any)   { l.log.Debugf(format, args...) }

func NewBadger(path string, log *zap.Logger) (*Badger, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)

	if log != nil {
		opts = opts.WithLogger(&badgerLogger{log: log.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) NewID() string {
	return newID()
}

func (b *Badger) Create(ctx context.Context, doc models.Document) (string, error) {
	id := b.NewID()
	if err := b.Upsert(ctx, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (b *Badger) Get(ctx context.Context, id string) (models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var payload []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + id))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return decode(payload)
}

func (b *Badger) Upsert(ctx context.Context, id string, doc models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encode(doc)
	if err != nil {
		return err
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+id), payload)
	}); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	return nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}
