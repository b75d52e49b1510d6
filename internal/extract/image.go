package extract

import (
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/lumilio/scanner/internal/catalog"
)

// extractImage handles JPEG/TIFF/PNG/WebP: EXIF via exiftool, dimensions
// from the container header without a full decode when exiftool didn't
// already report them. Only JPEG and PNG header decoders are registered,
// so TIFF and WebP files get no header fallback.
func (e *Extractor) extractImage(ctx context.Context, path string, rec *catalog.MediaRecord) *FileError {
	tags, err := e.exiftool.Run(ctx, path, photoTags)
	if err != nil {
		return newFileError(kindFromExifToolError(err), path, err)
	}

	applyPhotoTags(tags, rec)

	if rec.Width == nil || rec.Height == nil {
		if w, h, ok := decodeHeaderDimensions(path); ok {
			rec.Width, rec.Height = &w, &h
		}
	}
	return nil
}

func applyPhotoTags(tags map[string]string, rec *catalog.MediaRecord) {
	rec.CameraMake = firstNonEmpty(tags, "Make")
	rec.CameraModel = firstNonEmpty(tags, "Model")
	rec.LensModel = firstNonEmpty(tags, "LensModel", "LensID")
	rec.ExposureTime = firstNonEmpty(tags, "ExposureTime")
	rec.Aperture = parseFloat32(tags, "FNumber")
	rec.ISO = parseInt(tags, "ISO")
	rec.FocalLength = parseFloat32(tags, "FocalLength")
	rec.ExifTimestamp, rec.ExifTimezoneOffset = capturedAt(tags)

	w := parseInt(tags, "ImageWidth", "ExifImageWidth")
	h := parseInt(tags, "ImageHeight", "ExifImageHeight")
	correctForOrientation(tags["Orientation"], &w, &h)
	rec.Width, rec.Height = w, h
}

// correctForOrientation swaps width/height when the stored orientation
// indicates a 90/270 degree rotation, so dimensions describe the image as
// it is meant to be viewed.
func correctForOrientation(orientation string, w, h **int) {
	rotated := map[string]bool{
		"5": true, "6": true, "7": true, "8": true,
		"Rotate 90 CW": true, "Rotate 270 CW": true,
		"Rotate 90 CCW": true, "Rotate 270 CCW": true,
	}
	if !rotated[normalize(orientation)] {
		return
	}
	if *w != nil && *h != nil {
		*w, *h = *h, *w
	}
}

func decodeHeaderDimensions(path string) (int, int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

func kindFromExifToolError(err error) Kind {
	if errors.Is(err, errNativeToolMissing) {
		return KindNativeToolUnavailable
	}
	if errors.Is(err, errFileUnreadable) {
		return KindUnreadableFile
	}
	return KindCorruptMetadata
}
