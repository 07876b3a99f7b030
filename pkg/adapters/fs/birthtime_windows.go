//go:build windows

package fs

import (
	"os"
	"syscall"
	"time"
)

// birthTime reports the file's creation time from the Win32 file
// attributes.
func birthTime(info os.FileInfo) (time.Time, bool) {
	attrs, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(0, attrs.CreationTime.Nanoseconds()), true
}
