//go:build linux

package extract

import (
	"os"
	"syscall"
	"time"
)

// birthTimeOS reads the inode change time as a best-effort stand-in for a
// filesystem birth time; Linux's stat(2) has no portable creation-time
// field, so Ctim is the closest available proxy.
func birthTimeOS(info os.FileInfo) (time.Time, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec), true
}
