package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ExifToolConfig mirrors the knobs the earlier exiftool shell-out used,
// trimmed to what the scan pipeline actually needs.
type ExifToolConfig struct {
	Timeout time.Duration
}

func DefaultExifToolConfig() ExifToolConfig {
	return ExifToolConfig{Timeout: 30 * time.Second}
}

// photoTags and videoTags are the -TAG arguments passed to exiftool. The
// photo set covers camera/lens/exposure fields plus the OffsetTime* tags
// needed to populate exifTimezoneOffset.
var photoTags = []string{
	"Make", "Model", "LensModel", "LensID",
	"ExposureTime", "FNumber", "ISO", "FocalLength",
	"DateTimeOriginal", "OffsetTimeOriginal",
	"DateTimeDigitized", "OffsetTimeDigitized",
	"DateTime", "OffsetTime",
	"ImageWidth", "ImageHeight", "ExifImageWidth", "ExifImageHeight",
	"Orientation",
}

var videoTags = []string{
	"Make",
	"Duration", "CompressorID", "VideoCodec", "CodecID",
	"ImageWidth", "ImageHeight",
	"CreateDate", "MediaCreateDate", "TrackCreateDate",
}

// ExifToolRunner shells out to exiftool per file, the same native-tool
// dependency the catalog's metadata extraction has always used.
type ExifToolRunner struct {
	cfg ExifToolConfig
}

func NewExifToolRunner(cfg ExifToolConfig) *ExifToolRunner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultExifToolConfig().Timeout
	}
	return &ExifToolRunner{cfg: cfg}
}

// IsAvailable reports whether the exiftool binary can be invoked at all,
// grounding the NativeToolUnavailable classification.
func (r *ExifToolRunner) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "exiftool", "-ver").Run() == nil
}

// Run executes exiftool against path requesting tags, returning the first
// (and only) JSON object's fields as strings.
func (r *ExifToolRunner) Run(ctx context.Context, path string, tags []string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	args := make([]string, 0, len(tags)+4)
	args = append(args, "-j", "-charset", "utf8", "-ignoreMinorErrors")
	for _, tag := range tags {
		args = append(args, "-"+tag)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, "exiftool", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if isToolMissing(err) {
			return nil, fmt.Errorf("%w: %v", errNativeToolMissing, err)
		}
		if isFileUnreadable(stderr.String()) {
			return nil, fmt.Errorf("%w: %s", errFileUnreadable, strings.TrimSpace(stderr.String()))
		}
		if containsCriticalError(stderr.String()) {
			return nil, fmt.Errorf("exiftool: %s", stderr.String())
		}
	}

	var parsed []map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return nil, fmt.Errorf("parse exiftool output: %w", err)
	}
	if len(parsed) == 0 {
		return map[string]string{}, nil
	}

	out := make(map[string]string, len(parsed[0]))
	for k, v := range parsed[0] {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out, nil
}

func isToolMissing(err error) bool {
	var execErr *exec.Error
	if ee, ok := err.(*exec.Error); ok {
		execErr = ee
	}
	return execErr != nil && execErr.Err == exec.ErrNotFound
}

// isFileUnreadable reports whether stderr indicates exiftool could not
// open the file at all, as opposed to a parse failure on an opened file.
func isFileUnreadable(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "file not found") || strings.Contains(lower, "permission denied")
}

// containsCriticalError filters exiftool's routine warning noise from
// actual failures, the same allowlist the earlier shell-out used.
func containsCriticalError(stderr string) bool {
	if stderr == "" {
		return false
	}
	benign := []string{"Warning", "Unknown file type", "End of directory", "Minor errors"}
	for _, b := range benign {
		if strings.Contains(stderr, b) {
			return false
		}
	}
	return true
}
