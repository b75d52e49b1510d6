package catalog

import "context"

// Store is the transactional persistence layer the Catalog Adapter wraps.
// It is the "deliberately out of scope" collaborator from the scan
// pipeline's design: the core assumes ACID batch writes and nothing more.
type Store interface {
	// FindByPath returns the record at path, or nil if none exists.
	FindByPath(ctx context.Context, path string) (*MediaRecord, error)

	// AllPaths returns every path currently in the catalog, used by the
	// planner to compute the delete set as a set difference against the
	// filesystem walk.
	AllPaths(ctx context.Context) ([]string, error)

	// SaveBatch upserts records (keyed by Path) in one transaction.
	SaveBatch(ctx context.Context, records []*MediaRecord) error

	// DeleteBatch removes records by path in one transaction.
	DeleteBatch(ctx context.Context, paths []string) error

	// DeleteStaleGeneration removes every record whose scanGeneration is
	// older than currentGeneration, returning the count removed. This is
	// the supplemental, cheaper alternative to set-difference deletion
	// for catalogs too large to comfortably hold as an in-memory set.
	DeleteStaleGeneration(ctx context.Context, currentGeneration int64) (int, error)

	// Count returns the number of records in the catalog.
	Count(ctx context.Context) (int, error)
}

// DirectoryStore maintains the coarse per-folder index. It is lazily and
// best-effort updated; the scan pipeline never treats it as authoritative.
type DirectoryStore interface {
	Upsert(ctx context.Context, dir *Directory) error
	FindByPath(ctx context.Context, path string) (*Directory, error)
}
