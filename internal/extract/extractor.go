package extract

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lumilio/scanner/internal/catalog"
	"github.com/lumilio/scanner/internal/heif"
	"github.com/lumilio/scanner/internal/utils/file"
)

// Extractor is the polymorphic capability that turns a file path and its
// stat info into a MediaRecord. Dispatch is by extension; among
// non-HEIF image extensions a magic-byte probe routes HEIF content to the
// HEIF reader. A file whose extension is missing or not whitelisted is
// not probed and comes back as UnsupportedFormat.
type Extractor struct {
	validator  *file.Validator
	exiftool   *ExifToolRunner
	heifBridge *heif.Bridge
}

func NewExtractor(exiftool *ExifToolRunner, heifBridge *heif.Bridge) *Extractor {
	return &Extractor{
		validator:  file.NewValidator(),
		exiftool:   exiftool,
		heifBridge: heifBridge,
	}
}

// Extract reads path and produces a MediaRecord. A non-nil *FileError with
// Kind == KindUnreadableFile means the caller must drop the file entirely;
// any other kind means rec is still usable with some fields left null.
func (e *Extractor) Extract(ctx context.Context, path string, info os.FileInfo) (*catalog.MediaRecord, *FileError) {
	category, ok := e.validator.CategoryByExtension(filepath.Ext(path))

	rec := &catalog.MediaRecord{
		ID:          uuid.NewString(),
		Path:        path,
		FileName:    filepath.Base(path),
		Size:        info.Size(),
		MimeType:    e.validator.GetMimeTypeFromExtension(filepath.Ext(path)),
		Category:    category,
		CreateTime:  birthTime(info),
		ModifyTime:  info.ModTime(),
		LastScanned: info.ModTime(), // overwritten by caller with actual scan time
	}

	if !ok {
		// Unsupported format is a normal outcome, not a failure: the
		// record is catalogued with every format-specific field left null.
		return rec, newFileError(KindUnsupportedFormat, path, nil)
	}

	var fileErr *FileError
	switch {
	case e.heifBridge.IsHeif(path):
		fileErr = e.extractHeif(ctx, path, rec)
	case category == file.CategoryVideo:
		fileErr = e.extractVideo(ctx, path, rec)
	default:
		fileErr = e.resolveAmbiguousImage(ctx, path, rec)
	}

	if fileErr != nil && fileErr.Kind == KindUnreadableFile {
		return nil, fileErr
	}
	return rec, fileErr
}

// resolveAmbiguousImage dispatches to the plain image reader, using a
// magic-byte sniff only to confirm a HEIF container hiding behind an
// unexpected extension (e.g. a mislabeled .jpg).
func (e *Extractor) resolveAmbiguousImage(ctx context.Context, path string, rec *catalog.MediaRecord) *FileError {
	if kind, _, err := sniffContainer(path); err == nil && kind == containerHEIF {
		return e.extractHeif(ctx, path, rec)
	}
	return e.extractImage(ctx, path, rec)
}

func birthTime(info os.FileInfo) time.Time {
	if bt, ok := birthTimeOS(info); ok {
		return bt
	}
	return info.ModTime()
}
