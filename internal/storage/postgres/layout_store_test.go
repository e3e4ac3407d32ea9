package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/storage"
)

func TestLayoutStore_SaveAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLayoutStore(pool)
	ctx := context.Background()

	rec := &domain.LayoutRecord{
		Name:      "default",
		Document:  []byte(`{"max_range_x": 60, "relative_time": true}`),
		SavedAtMs: 1700000000000,
	}
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "default", got.Name)
	assert.Equal(t, int64(1700000000000), got.SavedAtMs)
	// JSONB normalizes formatting; compare semantically.
	assert.JSONEq(t, string(rec.Document), string(got.Document))
}

func TestLayoutStore_SaveUpserts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLayoutStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.LayoutRecord{
		Name: "l", Document: []byte(`{"v": 1}`), SavedAtMs: 1,
	}))
	require.NoError(t, store.Save(ctx, &domain.LayoutRecord{
		Name: "l", Document: []byte(`{"v": 2}`), SavedAtMs: 2,
	}))

	got, err := store.Get(ctx, "l")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v": 2}`, string(got.Document))
	assert.Equal(t, int64(2), got.SavedAtMs)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"l"}, names)
}

func TestLayoutStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLayoutStore(pool)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLayoutStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLayoutStore(pool)
	ctx := context.Background()

	for _, name := range []string{"zebra", "alpha", "mid"} {
		require.NoError(t, store.Save(ctx, &domain.LayoutRecord{
			Name: name, Document: []byte(`{}`),
		}))
	}

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zebra"}, names)
}

func TestLayoutStore_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLayoutStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.LayoutRecord{
		Name: "l", Document: []byte(`{}`),
	}))
	require.NoError(t, store.Delete(ctx, "l"))

	err := store.Delete(ctx, "l")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLayoutStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLayoutStore(pool)

	err := store.Save(context.Background(), &domain.LayoutRecord{Name: ""})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
