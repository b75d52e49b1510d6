// Package catalog holds the plain record types the scan pipeline persists
// and the store abstraction it persists them through. There is no ORM here
// by design: MediaRecord and Directory are product types, and the Store
// interface's methods are the only way to mutate them.
package catalog

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/lumilio/scanner/internal/utils/file"
)

// MediaRecord is the catalog entity for one media file.
type MediaRecord struct {
	ID   string
	Path string // absolute filesystem path, unique

	FileName string
	Size     int64
	MimeType string
	Category file.Category

	Width  *int
	Height *int

	ExifTimestamp      *time.Time
	ExifTimezoneOffset *string
	CreateTime         time.Time
	ModifyTime         time.Time
	LastScanned        time.Time

	CameraMake   *string
	CameraModel  *string
	LensModel    *string
	ExposureTime *string
	Aperture     *float32
	ISO          *int
	FocalLength  *float32

	Duration   *float64
	VideoCodec *string

	ThumbnailGenerated bool

	// scanGeneration tags the scan that last touched this record, used by
	// the generation-based orphan detection path in DeleteStaleGeneration.
	scanGeneration int64
}

// SameContent reports whether disk's size and mtime still match what was
// recorded for this file, the fast-path skip invariant from the scan
// planner's update classification.
func (m *MediaRecord) SameContent(size int64, modifyTime time.Time) bool {
	return m.Size == size && m.ModifyTime.Equal(modifyTime)
}

// Clone returns a copy of m, so assigning a field on a record handed out
// by a Store does not change the stored one. The copy is shallow: pointer
// fields (Width, CameraMake, Duration, ...) still point at the same
// values as m's.
func (m *MediaRecord) Clone() *MediaRecord {
	var out MediaRecord
	if err := copier.Copy(&out, m); err != nil {
		copy := *m
		return &copy
	}
	out.scanGeneration = m.scanGeneration
	return &out
}

// Directory is the coarse per-folder index maintained for aggregate UI
// only; the scan pipeline never treats it as a correctness source.
type Directory struct {
	ID           string
	Path         string // unique
	ParentID     *string
	FileCount    int
	LastModified time.Time
}
