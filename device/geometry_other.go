//go:build !linux && !darwin

package device

import (
	"errors"
	"os"
)

// blockDeviceGeometry get the size and logical sector size of a block device
func blockDeviceGeometry(f *os.File) (int64, int, error) {
	return 0, 0, errors.New("block devices not supported on this platform")
}
