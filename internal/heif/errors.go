package heif

import "errors"

// ErrNativeToolUnavailable is returned by every Bridge method once
// IsSupported has determined the native decoder cannot be used on this
// platform.
var ErrNativeToolUnavailable = errors.New("heif: native decoder unavailable")
