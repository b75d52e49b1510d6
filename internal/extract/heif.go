package extract

import (
	"context"

	"github.com/lumilio/scanner/internal/catalog"
)

// extractHeif delegates dimensions to the HEIF bridge and parses the EXIF
// block the same way the JPEG/TIFF/PNG/WebP reader does. A bridge that
// reports itself unsupported does not fail the file: the record keeps
// only the dimensions exiftool reported (null when it reported none) and
// comes back with a KindNativeToolUnavailable FileError.
func (e *Extractor) extractHeif(ctx context.Context, path string, rec *catalog.MediaRecord) *FileError {
	tags, err := e.exiftool.Run(ctx, path, photoTags)
	if err == nil {
		applyPhotoTags(tags, rec)
	}

	if !e.heifBridge.IsSupported() {
		return newFileError(KindNativeToolUnavailable, path, nil)
	}

	if rec.Width == nil || rec.Height == nil {
		if w, h, dimErr := e.heifBridge.Dimensions(path); dimErr == nil {
			rec.Width, rec.Height = &w, &h
		}
	}

	if err != nil {
		return newFileError(kindFromExifToolError(err), path, err)
	}
	return nil
}
