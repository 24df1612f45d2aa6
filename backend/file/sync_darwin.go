package file

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncFile asks the drive itself to flush its write cache. A plain fsync()
// on macOS only pushes data to the drive, which may still hold it in volatile
// cache. Some filesystems (e.g. network mounts) reject F_FULLFSYNC, in which
// case fsync() is the best we can do.
func syncFile(f *os.File) error {
	fd := f.Fd()
	if _, err := unix.FcntlInt(fd, unix.F_FULLFSYNC, 0); err == nil {
		return nil
	}
	return unix.Fsync(int(fd))
}
