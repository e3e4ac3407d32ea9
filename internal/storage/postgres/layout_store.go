package postgres

import (
	"context"
	"fmt"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/storage"
)

// LayoutStore implements storage.LayoutStore using PostgreSQL.
type LayoutStore struct {
	pool *Pool
}

// NewLayoutStore creates a new LayoutStore.
func NewLayoutStore(pool *Pool) *LayoutStore {
	return &LayoutStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LayoutStore = (*LayoutStore)(nil)

// Save inserts or replaces the layout under its name.
func (s *LayoutStore) Save(ctx context.Context, rec *domain.LayoutRecord) error {
	if rec == nil || rec.Name == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO layouts (name, document, saved_at_ms)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET document = EXCLUDED.document, saved_at_ms = EXCLUDED.saved_at_ms
	`

	_, err := s.pool.Exec(ctx, query, rec.Name, []byte(rec.Document), rec.SavedAtMs)
	if err != nil {
		return fmt.Errorf("save layout: %w", err)
	}
	return nil
}

// Get retrieves a layout by name. Returns ErrNotFound if not exists.
func (s *LayoutStore) Get(ctx context.Context, name string) (*domain.LayoutRecord, error) {
	query := `
		SELECT name, document, saved_at_ms
		FROM layouts
		WHERE name = $1
	`

	rec := &domain.LayoutRecord{}
	var doc []byte
	err := s.pool.QueryRow(ctx, query, name).Scan(&rec.Name, &doc, &rec.SavedAtMs)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get layout: %w", err)
	}
	rec.Document = doc
	return rec, nil
}

// List returns all layout names, sorted.
func (s *LayoutStore) List(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM layouts ORDER BY name ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan layout name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate layouts: %w", err)
	}
	return names, nil
}

// Delete removes a layout by name. Returns ErrNotFound if not exists.
func (s *LayoutStore) Delete(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM layouts WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete layout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
