//go:build !darwin && !freebsd && !netbsd && !windows

package fs

import (
	"os"
	"time"
)

// birthTime reports the file's creation time. Linux and the remaining
// platforms do not expose one through stat, so it is unavailable and
// the metadata resolver falls through to its next source.
func birthTime(os.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
