package device

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// this constants should be part of "golang.org/x/sys/unix", but aren't, yet
const (
	DKIOCGETBLOCKSIZE  = 0x40046418
	DKIOCGETBLOCKCOUNT = 0x40086419
)

// blockDeviceGeometry asks the kernel for the size in bytes and the logical
// sector size of a disk node such as /dev/disk4s1 or /dev/rdisk4s1
func blockDeviceGeometry(f *os.File) (int64, int, error) {
	fd := int(f.Fd())

	logicalSectorSize, err := unix.IoctlGetInt(fd, DKIOCGETBLOCKSIZE)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get logical sector size of device %s: %w", f.Name(), err)
	}
	blockCount, err := unix.IoctlGetInt(fd, DKIOCGETBLOCKCOUNT)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get block count of device %s: %w", f.Name(), err)
	}
	return int64(blockCount) * int64(logicalSectorSize), logicalSectorSize, nil
}
