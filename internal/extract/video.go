package extract

import (
	"context"
	"time"

	"github.com/lumilio/scanner/internal/catalog"
)

// extractVideo identifies the container and reads duration, the first
// video track's codec, pixel dimensions, and creation time via exiftool,
// which understands MP4/MOV/MKV/AVI container atoms directly.
func (e *Extractor) extractVideo(ctx context.Context, path string, rec *catalog.MediaRecord) *FileError {
	tags, err := e.exiftool.Run(ctx, path, videoTags)
	if err != nil {
		return newFileError(kindFromExifToolError(err), path, err)
	}

	rec.Duration = parseFloat64(tags, "Duration")
	rec.VideoCodec = firstNonEmpty(tags, "CompressorID", "VideoCodec", "CodecID")
	rec.Width = parseInt(tags, "ImageWidth")
	rec.Height = parseInt(tags, "ImageHeight")

	if created, ok := firstParsableDate(tags, "CreateDate", "MediaCreateDate", "TrackCreateDate"); ok {
		rec.ExifTimestamp = &created
	}
	return nil
}

func firstParsableDate(tags map[string]string, keys ...string) (time.Time, bool) {
	for _, k := range keys {
		if raw, ok := tags[k]; ok {
			if t, ok := parseExifDateTime(raw); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
