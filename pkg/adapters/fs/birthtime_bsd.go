//go:build darwin || freebsd || netbsd

package fs

import (
	"os"
	"syscall"
	"time"
)

// birthTime reports the file's creation time. The BSD family records
// it in stat as Birthtimespec.
func birthTime(info os.FileInfo) (time.Time, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec), true
}
