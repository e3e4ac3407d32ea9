package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/storage"
)

func TestSeriesPointStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSeriesPointStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op.
	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)

	points := []*domain.ArchivedPoint{
		{SessionID: "sess-1", SeriesName: "motor/velocity", Time: 0.5, Value: 1.25},
	}
	err = store.InsertBulk(ctx, points)
	require.NoError(t, err)

	got, err := store.GetBySeries(ctx, "sess-1", "motor/velocity")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sess-1", got[0].SessionID)
	assert.Equal(t, "motor/velocity", got[0].SeriesName)
	assert.Equal(t, 0.5, got[0].Time)
	assert.Equal(t, 1.25, got[0].Value)
}

func TestSeriesPointStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSeriesPointStore(conn)
	ctx := context.Background()

	points := []*domain.ArchivedPoint{
		{SessionID: "sess-1", SeriesName: "a", Time: 1.0, Value: 1.0},
	}
	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	err = store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSeriesPointStore_InsertBulk_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSeriesPointStore(conn)
	ctx := context.Background()

	points := []*domain.ArchivedPoint{
		{SessionID: "sess-1", SeriesName: "a", Time: 1.0, Value: 1.0},
		{SessionID: "sess-1", SeriesName: "a", Time: 1.0, Value: 2.0},
	}
	err := store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetBySeries(ctx, "sess-1", "a")
	require.NoError(t, err)
	assert.Empty(t, got, "failed batch must not be partially applied")
}

func TestSeriesPointStore_InsertBulk_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSeriesPointStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.ArchivedPoint{
		{SessionID: "", SeriesName: "a", Time: 1.0},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSeriesPointStore_GetBySession(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSeriesPointStore(conn)
	ctx := context.Background()

	points := []*domain.ArchivedPoint{
		{SessionID: "sess-1", SeriesName: "b", Time: 0.2, Value: 2},
		{SessionID: "sess-1", SeriesName: "a", Time: 0.3, Value: 3},
		{SessionID: "sess-1", SeriesName: "a", Time: 0.1, Value: 1},
		{SessionID: "sess-2", SeriesName: "a", Time: 0.1, Value: 9},
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetBySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by series name, then time.
	assert.Equal(t, "a", got[0].SeriesName)
	assert.Equal(t, 0.1, got[0].Time)
	assert.Equal(t, "a", got[1].SeriesName)
	assert.Equal(t, 0.3, got[1].Time)
	assert.Equal(t, "b", got[2].SeriesName)
}

func TestSeriesPointStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSeriesPointStore(conn)
	ctx := context.Background()

	var points []*domain.ArchivedPoint
	for i := 0; i < 10; i++ {
		points = append(points, &domain.ArchivedPoint{
			SessionID:  "sess-1",
			SeriesName: "a",
			Time:       float64(i),
			Value:      float64(i) * 10,
		})
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByTimeRange(ctx, "sess-1", "a", 2, 5)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, 2.0, got[0].Time)
	assert.Equal(t, 5.0, got[3].Time)
}

func TestSeriesPointStore_GetBySeries_Empty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSeriesPointStore(conn)

	got, err := store.GetBySeries(context.Background(), "missing", "a")
	require.NoError(t, err)
	assert.Empty(t, got)
}
