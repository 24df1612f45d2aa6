package device

import (
	"fmt"
	iofs "io/fs"
	"os"
)

type DeviceType int

const (
	DeviceTypeUnknown DeviceType = iota
	// DeviceTypeFile is a disk image held in a regular file
	DeviceTypeFile
	// DeviceTypeBlockDevice is an OS-managed block device node
	DeviceTypeBlockDevice
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeFile:
		return "file"
	case DeviceTypeBlockDevice:
		return "block device"
	default:
		return "unknown"
	}
}

func DetermineDeviceType(f iofs.File) (DeviceType, iofs.FileInfo, error) {
	info, err := f.Stat()
	if err != nil {
		return DeviceTypeUnknown, nil, fmt.Errorf("could not stat file: %w", err)
	}
	mode := info.Mode()
	var dt DeviceType
	switch {
	case mode.IsRegular():
		dt = DeviceTypeFile
	case mode&os.ModeDevice != 0:
		dt = DeviceTypeBlockDevice
	default:
		return DeviceTypeUnknown, info, fmt.Errorf("device %s is neither a block device nor a regular file", info.Name())
	}
	return dt, info, nil
}
