package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/linesync/internal/models"
)

// SnapshotRepository stores the last good collection of each resource type as a JSON document.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new [SnapshotRepository] with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save upserts the snapshot for s.Resource.
func (r *SnapshotRepository) Save(ctx context.Context, s models.Snapshot) error {
	if s.Resource == "" {
		return fmt.Errorf("snapshot resource is required")
	}
	items := s.Items
	if len(items) == 0 {
		items = []byte("[]")
	}

	query := `
		INSERT INTO snapshots (resource, items, item_count, refreshed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(resource) DO UPDATE SET
			items = excluded.items,
			item_count = excluded.item_count,
			refreshed_at = excluded.refreshed_at
	`

	if _, err := r.db.ExecContext(ctx, query, s.Resource, string(items), s.ItemCount, s.RefreshedAt.UTC()); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", s.Resource, err)
	}
	return nil
}

// Get returns the snapshot for resource, or nil when none is stored.
func (r *SnapshotRepository) Get(ctx context.Context, resource string) (*models.Snapshot, error) {
	query := `SELECT resource, items, item_count, refreshed_at FROM snapshots WHERE resource = ?`

	s, err := scanSnapshot(r.db.QueryRowContext(ctx, query, resource))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot %s: %w", resource, err)
	}
	return s, nil
}

// List returns every stored snapshot ordered by resource.
func (r *SnapshotRepository) List(ctx context.Context) ([]*models.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT resource, items, item_count, refreshed_at FROM snapshots ORDER BY resource`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// Clear removes every snapshot.
func (r *SnapshotRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var (
		s           models.Snapshot
		items       string
		refreshedAt time.Time
	)
	if err := row.Scan(&s.Resource, &items, &s.ItemCount, &refreshedAt); err != nil {
		return nil, err
	}
	s.Items = []byte(items)
	s.RefreshedAt = refreshedAt
	return &s, nil
}
