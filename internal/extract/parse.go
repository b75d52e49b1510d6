package extract

import (
	"strconv"
	"strings"
	"time"
)

var exifDateFormats = []string{
	"2006:01:02 15:04:05",
	"2006:01:02 15:04:05.000",
	"2006:01:02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

// parseExifDateTime tries the EXIF datetime format and its common
// variants, returning zero time if none match.
func parseExifDateTime(value string) (time.Time, bool) {
	value = normalize(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range exifDateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// capturedAt resolves exifTimestamp/exifTimezoneOffset from the priority
// order the spec requires: DateTimeOriginal, then DateTimeDigitized, then
// DateTime, paired with the matching OffsetTime* tag when present.
func capturedAt(tags map[string]string) (ts *time.Time, offset *string) {
	pairs := []struct{ datetimeTag, offsetTag string }{
		{"DateTimeOriginal", "OffsetTimeOriginal"},
		{"DateTimeDigitized", "OffsetTimeDigitized"},
		{"DateTime", "OffsetTime"},
	}
	for _, p := range pairs {
		raw, ok := tags[p.datetimeTag]
		if !ok {
			continue
		}
		t, ok := parseExifDateTime(raw)
		if !ok {
			continue
		}
		ts = &t
		if off := normalize(tags[p.offsetTag]); off != "" {
			offset = &off
		}
		return ts, offset
	}
	return nil, nil
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "undefined", "n/a":
		return ""
	}
	return strings.Trim(s, "\x00")
}

func firstNonEmpty(tags map[string]string, keys ...string) *string {
	for _, k := range keys {
		if v := normalize(tags[k]); v != "" {
			return &v
		}
	}
	return nil
}

func parseFloat32(tags map[string]string, keys ...string) *float32 {
	for _, k := range keys {
		v := normalize(tags[k])
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(stripUnits(v), 32); err == nil {
			f32 := float32(f)
			return &f32
		}
	}
	return nil
}

func parseFloat64(tags map[string]string, keys ...string) *float64 {
	for _, k := range keys {
		v := normalize(tags[k])
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(stripUnits(v), 64); err == nil {
			return &f
		}
	}
	return nil
}

func parseInt(tags map[string]string, keys ...string) *int {
	for _, k := range keys {
		v := normalize(tags[k])
		if v == "" {
			continue
		}
		if i, err := strconv.Atoi(stripUnits(v)); err == nil {
			return &i
		}
		if f, err := strconv.ParseFloat(stripUnits(v), 64); err == nil {
			i := int(f)
			return &i
		}
	}
	return nil
}

// stripUnits drops trailing unit suffixes exiftool sometimes attaches,
// e.g. "24.0 mm" or "1/500".
func stripUnits(v string) string {
	v = strings.TrimSpace(v)
	if idx := strings.IndexByte(v, ' '); idx > 0 {
		v = v[:idx]
	}
	if strings.Contains(v, "/") {
		parts := strings.SplitN(v, "/", 2)
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 == nil && err2 == nil && den != 0 {
			return strconv.FormatFloat(num/den, 'f', -1, 64)
		}
	}
	return v
}
