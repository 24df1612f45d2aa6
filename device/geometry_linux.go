package device

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// blockDeviceGeometry asks the kernel for the size in bytes and the logical
// sector size of a block device node. Stat() reports a size of zero for
// those, so the ioctl is the only source.
func blockDeviceGeometry(f *os.File) (int64, int, error) {
	fd := f.Fd()
	var sizeBytes uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&sizeBytes))); errno != 0 {
		return 0, 0, fmt.Errorf("unable to get size of device %s: %w", f.Name(), errno)
	}
	logicalSectorSize, err := unix.IoctlGetInt(int(fd), unix.BLKSSZGET)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get logical sector size of device %s: %w", f.Name(), err)
	}
	return int64(sizeBytes), logicalSectorSize, nil
}
