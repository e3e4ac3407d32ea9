package clickhouse

import (
	"context"
	"fmt"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/storage"
)

// SeriesPointStore implements storage.SeriesPointStore using ClickHouse.
type SeriesPointStore struct {
	conn *Conn
}

// NewSeriesPointStore creates a new SeriesPointStore.
func NewSeriesPointStore(conn *Conn) *SeriesPointStore {
	return &SeriesPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SeriesPointStore = (*SeriesPointStore)(nil)

// InsertBulk adds multiple points. Fails the entire batch with
// ErrDuplicateKey on any duplicate (session_id, series_name, time).
// MergeTree does not enforce uniqueness, so duplicates are checked
// explicitly before the batch is sent.
func (s *SeriesPointStore) InsertBulk(ctx context.Context, points []*domain.ArchivedPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		sessionID  string
		seriesName string
		time       float64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.SessionID == "" || p.SeriesName == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.SessionID, p.SeriesName, p.Time}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.SessionID, p.SeriesName, p.Time)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO series_points (
			session_id, series_name, time, value
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.SessionID, p.SeriesName, p.Time, p.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySession retrieves all points of a session, ordered by series name
// then time ASC.
func (s *SeriesPointStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.ArchivedPoint, error) {
	query := `
		SELECT session_id, series_name, time, value
		FROM series_points
		WHERE session_id = ?
		ORDER BY series_name ASC, time ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query by session: %w", err)
	}
	defer rows.Close()

	return scanArchivedPoints(rows)
}

// GetBySeries retrieves all points of one series, ordered by time ASC.
func (s *SeriesPointStore) GetBySeries(ctx context.Context, sessionID, seriesName string) ([]*domain.ArchivedPoint, error) {
	query := `
		SELECT session_id, series_name, time, value
		FROM series_points
		WHERE session_id = ? AND series_name = ?
		ORDER BY time ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID, seriesName)
	if err != nil {
		return nil, fmt.Errorf("query by series: %w", err)
	}
	defer rows.Close()

	return scanArchivedPoints(rows)
}

// GetByTimeRange retrieves points within [start, end] inclusive, ordered by
// time ASC.
func (s *SeriesPointStore) GetByTimeRange(ctx context.Context, sessionID, seriesName string, start, end float64) ([]*domain.ArchivedPoint, error) {
	query := `
		SELECT session_id, series_name, time, value
		FROM series_points
		WHERE session_id = ? AND series_name = ? AND time >= ? AND time <= ?
		ORDER BY time ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID, seriesName, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanArchivedPoints(rows)
}

// exists checks if a point with the given key exists.
func (s *SeriesPointStore) exists(ctx context.Context, sessionID, seriesName string, time float64) (bool, error) {
	query := `
		SELECT count(*) FROM series_points
		WHERE session_id = ? AND series_name = ? AND time = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, sessionID, seriesName, time).Scan(&count); err != nil {
		return false, fmt.Errorf("count existing: %w", err)
	}
	return count > 0, nil
}

// chRows abstracts driver.Rows for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanArchivedPoints(rows chRows) ([]*domain.ArchivedPoint, error) {
	var result []*domain.ArchivedPoint
	for rows.Next() {
		p := &domain.ArchivedPoint{}
		if err := rows.Scan(&p.SessionID, &p.SeriesName, &p.Time, &p.Value); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}
