package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumilio/scanner/internal/utils/file"
)

// PostgresStore is the production Store, backed by a pgxpool connection
// pool. Batch writes go through a single pgx.Batch inside one transaction
// instead of issuing one upsert statement per record.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) FindByPath(ctx context.Context, path string) (*MediaRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, path, file_name, size, mime_type, category,
		       width, height, exif_timestamp, exif_timezone_offset,
		       create_time, modify_time, last_scanned,
		       camera_make, camera_model, lens_model, exposure_time,
		       aperture, iso, focal_length, duration, video_codec,
		       thumbnail_generated, scan_generation
		FROM media_files WHERE path = $1`, path)

	rec, err := scanMediaRecord(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find by path: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) AllPaths(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT path FROM media_files`)
	if err != nil {
		return nil, fmt.Errorf("query all paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// SaveBatch upserts records in a single transaction using pgx.Batch, the
// fix for the per-record upsert loop the earlier file-record store used.
func (s *PostgresStore) SaveBatch(ctx context.Context, records []*MediaRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		batch.Queue(upsertMediaFileSQL,
			rec.ID, rec.Path, rec.FileName, rec.Size, rec.MimeType, string(rec.Category),
			rec.Width, rec.Height, toEpochMillisPtr(rec.ExifTimestamp), rec.ExifTimezoneOffset,
			toEpochMillis(rec.CreateTime), toEpochMillis(rec.ModifyTime), toEpochMillis(rec.LastScanned),
			rec.CameraMake, rec.CameraModel, rec.LensModel, rec.ExposureTime,
			rec.Aperture, rec.ISO, rec.FocalLength, rec.Duration, rec.VideoCodec,
			rec.ThumbnailGenerated, rec.scanGeneration,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("batch upsert: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBatch(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, path := range paths {
		batch.Queue(`DELETE FROM media_files WHERE path = $1`, path)
	}

	results := tx.SendBatch(ctx, batch)
	for range paths {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("batch delete: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) DeleteStaleGeneration(ctx context.Context, currentGeneration int64) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM media_files WHERE scan_generation < $1`, currentGeneration)
	if err != nil {
		return 0, fmt.Errorf("delete stale generation: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM media_files`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

const upsertMediaFileSQL = `
INSERT INTO media_files (
	id, path, file_name, size, mime_type, category,
	width, height, exif_timestamp, exif_timezone_offset,
	create_time, modify_time, last_scanned,
	camera_make, camera_model, lens_model, exposure_time,
	aperture, iso, focal_length, duration, video_codec,
	thumbnail_generated, scan_generation
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9, $10,
	$11, $12, $13,
	$14, $15, $16, $17,
	$18, $19, $20, $21, $22,
	$23, $24
)
ON CONFLICT (path) DO UPDATE SET
	file_name = EXCLUDED.file_name,
	size = EXCLUDED.size,
	mime_type = EXCLUDED.mime_type,
	category = EXCLUDED.category,
	width = EXCLUDED.width,
	height = EXCLUDED.height,
	exif_timestamp = EXCLUDED.exif_timestamp,
	exif_timezone_offset = EXCLUDED.exif_timezone_offset,
	modify_time = EXCLUDED.modify_time,
	last_scanned = EXCLUDED.last_scanned,
	camera_make = EXCLUDED.camera_make,
	camera_model = EXCLUDED.camera_model,
	lens_model = EXCLUDED.lens_model,
	exposure_time = EXCLUDED.exposure_time,
	aperture = EXCLUDED.aperture,
	iso = EXCLUDED.iso,
	focal_length = EXCLUDED.focal_length,
	duration = EXCLUDED.duration,
	video_codec = EXCLUDED.video_codec,
	thumbnail_generated = EXCLUDED.thumbnail_generated,
	scan_generation = EXCLUDED.scan_generation
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMediaRecord(row rowScanner) (*MediaRecord, error) {
	var rec MediaRecord
	var category string
	var exifTimestampMs *int64
	var createMs, modifyMs, scannedMs int64

	err := row.Scan(
		&rec.ID, &rec.Path, &rec.FileName, &rec.Size, &rec.MimeType, &category,
		&rec.Width, &rec.Height, &exifTimestampMs, &rec.ExifTimezoneOffset,
		&createMs, &modifyMs, &scannedMs,
		&rec.CameraMake, &rec.CameraModel, &rec.LensModel, &rec.ExposureTime,
		&rec.Aperture, &rec.ISO, &rec.FocalLength, &rec.Duration, &rec.VideoCodec,
		&rec.ThumbnailGenerated, &rec.scanGeneration,
	)
	if err != nil {
		return nil, err
	}

	rec.Category = file.Category(category)
	rec.CreateTime = fromEpochMillis(createMs)
	rec.ModifyTime = fromEpochMillis(modifyMs)
	rec.LastScanned = fromEpochMillis(scannedMs)
	if exifTimestampMs != nil {
		t := fromEpochMillis(*exifTimestampMs)
		rec.ExifTimestamp = &t
	}
	return &rec, nil
}

func toEpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func toEpochMillisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
