// Package heif isolates HEIF/HEIC support behind a narrow contract so the
// scan pipeline degrades cleanly when the underlying native decoder is
// unavailable on a given platform.
package heif

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/h2non/bimg"
)

// heifExts mirrors the whitelist the planner applies, kept local so the
// bridge has no dependency on the extract package.
var heifExts = map[string]bool{
	".heic":  true,
	".heif":  true,
	".heics": true,
	".heifs": true,
}

// probeFixture is a minimal 1x1 HEIC payload used to exercise the native
// decoder once per process without touching any scanned file.
var probeFixture = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'h', 'e', 'i', 'c', 0x00, 0x00, 0x00, 0x00,
	'm', 'i', 'f', '1', 'h', 'e', 'i', 'c',
}

// Bridge wraps the bimg/libvips binding that backs HEIF decoding. Its
// public surface matches what the scanner needs (dimension probing) plus
// the derivative-cache operations (toJpegBytes, thumbnail) that this
// module exposes but does not call itself.
type Bridge struct {
	probeOnce sync.Once
	supported bool

	sem chan struct{}
}

// NewBridge returns a Bridge whose concurrent native calls are capped at
// maxConcurrent (the underlying libvips binding documents a safe upper
// bound; 0 or negative means unbounded).
func NewBridge(maxConcurrent int) *Bridge {
	b := &Bridge{}
	if maxConcurrent > 0 {
		b.sem = make(chan struct{}, maxConcurrent)
	}
	return b
}

// IsSupported probes the native decoder exactly once per process.
func (b *Bridge) IsSupported() bool {
	b.probeOnce.Do(func() {
		if !bimg.IsTypeSupported(bimg.HEIF) {
			b.supported = false
			return
		}
		b.supported = b.decodeProbe()
	})
	return b.supported
}

func (b *Bridge) decodeProbe() bool {
	defer func() { recover() }()
	_, err := bimg.NewImage(probeFixture).Size()
	return err == nil
}

// IsHeif reports whether path's extension marks it as a HEIF/HEIC family
// file, case-insensitive.
func (b *Bridge) IsHeif(path string) bool {
	return heifExts[strings.ToLower(filepath.Ext(path))]
}

func (b *Bridge) acquire() func() {
	if b.sem == nil {
		return func() {}
	}
	b.sem <- struct{}{}
	return func() { <-b.sem }
}

// Dimensions returns the pixel width and height of path's primary image.
func (b *Bridge) Dimensions(path string) (width, height int, err error) {
	if !b.IsSupported() {
		return 0, 0, ErrNativeToolUnavailable
	}

	release := b.acquire()
	defer release()

	buf, err := readFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read heif file: %w", err)
	}

	size, err := bimg.NewImage(buf).Size()
	if err != nil {
		return 0, 0, fmt.Errorf("probe heif size: %w", err)
	}
	return size.Width, size.Height, nil
}

// ToJpegBytes re-encodes path as JPEG at the given quality. Used by the
// derivative cache, not by the scanner itself.
func (b *Bridge) ToJpegBytes(path string, quality int) ([]byte, error) {
	if !b.IsSupported() {
		return nil, ErrNativeToolUnavailable
	}

	release := b.acquire()
	defer release()

	buf, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read heif file: %w", err)
	}

	return bimg.NewImage(buf).Process(bimg.Options{
		Type:    bimg.JPEG,
		Quality: clampQuality(quality),
	})
}

// Thumbnail re-encodes path as a JPEG scaled so its longest edge is at
// most maxEdge pixels, preserving aspect ratio.
func (b *Bridge) Thumbnail(path string, maxEdge, quality int) ([]byte, error) {
	if !b.IsSupported() {
		return nil, ErrNativeToolUnavailable
	}

	release := b.acquire()
	defer release()

	buf, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read heif file: %w", err)
	}

	size, err := bimg.NewImage(buf).Size()
	if err != nil {
		return nil, fmt.Errorf("probe heif size: %w", err)
	}

	width := maxEdge
	if size.Height > size.Width && size.Width > 0 {
		width = maxEdge * size.Width / size.Height
	}
	if width < 1 {
		width = 1
	}

	return bimg.NewImage(buf).Process(bimg.Options{
		Width:   width,
		Type:    bimg.JPEG,
		Quality: clampQuality(quality),
		Enlarge: false,
	})
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

var readFile = func(path string) ([]byte, error) {
	return bimg.Read(path)
}
