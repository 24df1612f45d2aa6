// Package smntfs is the block storage layer beneath a read/write NTFS driver.
//
// It opens raw block devices such as /dev/disk4s1 or image files such as
// /tmp/ntfs.img and gives the layers above three views of them:
//
//   - a bounds-checked, read-only-aware byte store (package device)
//   - a write path with coalescing and sync pacing (package writeback)
//   - a sequential read/seek stream for the volume parser (package stream)
//
// Devices open read-only unless asked otherwise. Nothing here decodes NTFS
// structures or mounts anything.
//
// Some examples:
//
// 1. Read the boot sector of a volume.
//
//	import smntfs "github.com/smntfs/go-smntfs"
//
//	d, err := smntfs.Open("/dev/disk4s1")
//	defer d.Close()
//	boot, err := d.ReadBlock(0)
//
// 2. Hand a volume to a parser that wants io.ReadSeeker, with read-ahead.
//
//	v, err := smntfs.OpenVolume("/dev/disk4s1", config.Default())
//	defer v.Close()
//	parser.Parse(v)
//
// 3. Write through a coalescing buffer that syncs every five seconds.
//
//	w, err := smntfs.OpenWriter("/tmp/ntfs.img", config.Default())
//	go w.Run(ctx)
//	defer w.Close()
//	_, err = w.WriteAt(record, mftOffset)
package smntfs

import (
	"github.com/smntfs/go-smntfs/backend/file"
	"github.com/smntfs/go-smntfs/config"
	"github.com/smntfs/go-smntfs/device"
	"github.com/smntfs/go-smntfs/iobuf"
	"github.com/smntfs/go-smntfs/ioerr"
	"github.com/smntfs/go-smntfs/stream"
	"github.com/smntfs/go-smntfs/writeback"
)

// Open a Device from a path to a device
// Should pass a path to a block device e.g. /dev/disk4s1 or a path to a file /tmp/ntfs.img
// The provided device must exist at the time you call Open(); it is opened
// read-only unless device.WithReadOnly(false) is passed.
func Open(path string, opts ...device.OpenOpt) (*device.Device, error) {
	return device.Open(path, opts...)
}

// Create a zero-filled image file of size bytes and open it read-write.
// The provided file must not exist at the time you call Create()
func Create(path string, size int64, opts ...device.OpenOpt) (*device.Device, error) {
	s, err := file.CreateFromPath(path, size)
	if err != nil {
		return nil, ioerr.Wrap(ioerr.KindSystem, "create", err).WithPath(path)
	}
	all := append([]device.OpenOpt{device.WithStorage(s), device.WithReadOnly(false)}, opts...)
	return device.Open(path, all...)
}

// OpenVolume opens path read-only as a stream for a volume parser. A nil cfg
// means config.Default().
func OpenVolume(path string, cfg *config.Config, opts ...device.OpenOpt) (*stream.Adapter, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	all := append([]device.OpenOpt{device.WithBlockSize(cfg.BlockSize)}, opts...)
	d, err := device.Open(path, all...)
	if err != nil {
		return nil, err
	}
	var sopts []stream.Option
	if n := cfg.ReadAheadBytes(); n > 0 {
		sopts = append(sopts, stream.WithReadAhead(iobuf.New(n)))
	}
	return stream.New(d, sopts...), nil
}

// OpenWriter opens path read-write behind a writeback.Writer configured from
// cfg. A nil cfg means config.Default(). The caller runs Writer.Run for
// periodic syncs.
func OpenWriter(path string, cfg *config.Config, opts ...device.OpenOpt) (*writeback.Writer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	all := append([]device.OpenOpt{device.WithBlockSize(cfg.BlockSize), device.WithReadOnly(false)}, opts...)
	d, err := device.Open(path, all...)
	if err != nil {
		return nil, err
	}
	w, err := writeback.FromConfig(d, cfg)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	return w, nil
}
