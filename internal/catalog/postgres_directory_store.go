package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectoryStore maintains the coarse per-folder index described
// in DirectoryStore. It is a best-effort side index, not a Store, so it
// gets its own small table instead of living in the batched catalog path.
type PostgresDirectoryStore struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectoryStore(pool *pgxpool.Pool) *PostgresDirectoryStore {
	return &PostgresDirectoryStore{pool: pool}
}

func (s *PostgresDirectoryStore) Upsert(ctx context.Context, dir *Directory) error {
	if dir.ID == "" {
		dir.ID = uuid.NewString()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO directories (id, path, parent_id, file_count, last_modified)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (path) DO UPDATE SET
			parent_id = EXCLUDED.parent_id,
			file_count = EXCLUDED.file_count,
			last_modified = EXCLUDED.last_modified`,
		dir.ID, dir.Path, dir.ParentID, dir.FileCount, toEpochMillis(dir.LastModified),
	)
	if err != nil {
		return fmt.Errorf("upsert directory: %w", err)
	}
	return nil
}

func (s *PostgresDirectoryStore) FindByPath(ctx context.Context, path string) (*Directory, error) {
	var dir Directory
	var lastModifiedMs int64

	err := s.pool.QueryRow(ctx, `
		SELECT id, path, parent_id, file_count, last_modified
		FROM directories WHERE path = $1`, path,
	).Scan(&dir.ID, &dir.Path, &dir.ParentID, &dir.FileCount, &lastModifiedMs)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find directory by path: %w", err)
	}

	dir.LastModified = fromEpochMillis(lastModifiedMs)
	return &dir, nil
}
