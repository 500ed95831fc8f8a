// Package store persists taxonomy documents as JSON blobs behind a small
// key-value repository interface.
package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modelopt/taxonomy/internal/models"
)

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		doc := models.Document{
			"CNN": map[string]any{"Classification": map[string]any{}},
			"relationships": []any{
				map[string]any{"id": "rel_1", "methods": []any{"a", "b"}, "weights": map[string]any{"confidence": 0.5}},
			},
		}

		id, err := repo.Create(ctx, doc)
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, doc, got)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		id := repo.NewID()
		require.NoError(t, repo.Upsert(ctx, id, models.Document{"version": 1.0}))
		require.NoError(t, repo.Upsert(ctx, id, models.Document{"version": 2.0}))

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.Document{"version": 2.0}, got)
	})

	t.Run("returned documents are independent", func(t *testing.T) {
		id, err := repo.Create(ctx, models.Document{"CNN": map[string]any{}})
		require.NoError(t, err)

		first, err := repo.Get(ctx, id)
		require.NoError(t, err)
		first["CNN"].(map[string]any)["mutated"] = true

		second, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, second["CNN"])
	})

	t.Run("nil document stored as empty", func(t *testing.T) {
		id, err := repo.Create(ctx, nil)
		require.NoError(t, err)

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.Document{}, got)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := repo.Get(ctx, "does-not-exist")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ids are unique", func(t *testing.T) {
		assert.NotEqual(t, repo.NewID(), repo.NewID())
	})
}

func TestMemory(t *testing.T) {
	repo := NewMemory()
	defer repo.Close()

	exerciseRepository(t, repo)
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "taxonomy.db")
	repo, err := NewSQLite(context.Background(), path)
	require.NoError(t, err)
	defer repo.Close()

	assert.FileExists(t, path)
	exerciseRepository(t, repo)

	t.Run("data survives reopen", func(t *testing.T) {
		ctx := context.Background()
		id, err := repo.Create(ctx, models.Document{"kept": true})
		require.NoError(t, err)
		require.NoError(t, repo.Close())

		reopened, err := NewSQLite(ctx, path)
		require.NoError(t, err)
		defer reopened.Close()

		got, err := reopened.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.Document{"kept": true}, got)
	})
}

func TestBadger(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		repo, err := NewBadger("", zap.NewNop())
		require.NoError(t, err)
		defer repo.Close()

		exerciseRepository(t, repo)
	})

	t.Run("on disk", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "badger")
		repo, err := NewBadger(dir, nil)
		require.NoError(t, err)

		id, err := repo.Create(context.Background(), models.Document{"kept": true})
		require.NoError(t, err)
		require.NoError(t, repo.Close())

		reopened, err := NewBadger(dir, nil)
		require.NoError(t, err)
		defer reopened.Close()

		got, err := reopened.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.Document{"kept": true}, got)
	})

	t.Run("cancelled context", func(t *testing.T) {
		repo, err := NewBadger("", nil)
		require.NoError(t, err)
		defer repo.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, repo.Upsert(ctx, "x", models.Document{}), context.Canceled)
	})
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TAXONOMY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TAXONOMY_TEST_DATABASE_URL not set")
	}

	repo, err := NewPostgres(context.Background(), dsn)
	require.NoError(t, err)
	defer repo.Close()

	exerciseRepository(t, repo)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("default is memory", func(t *testing.T) {
		repo, err := Open(ctx, Config{}, nil)
		require.NoError(t, err)
		defer repo.Close()

		assert.IsType(t, &Memory{}, repo)
	})

	t.Run("sqlite", func(t *testing.T) {
		repo, err := Open(ctx, Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "t.db")}, nil)
		require.NoError(t, err)
		defer repo.Close()

		assert.IsType(t, &SQLite{}, repo)
	})

	t.Run("badger", func(t *testing.T) {
		repo, err := Open(ctx, Config{Driver: DriverBadger}, zap.NewNop())
		require.NoError(t, err)
		defer repo.Close()

		assert.IsType(t, &Badger{}, repo)
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		_, err := Open(ctx, Config{Driver: DriverPostgres}, nil)

		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(ctx, Config{Driver: "mongo"}, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown storage driver")
	})
}
