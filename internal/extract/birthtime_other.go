//go:build !linux

package extract

import (
	"os"
	"time"
)

func birthTimeOS(info os.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
