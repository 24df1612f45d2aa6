package device

import (
	"errors"
	"io/fs"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/smntfs/go-smntfs/backend"
	"github.com/smntfs/go-smntfs/backend/file"
	"github.com/smntfs/go-smntfs/ioerr"
	"github.com/smntfs/go-smntfs/util"
)

// Open a Device from a path to a device
// Should pass a path to a block device e.g. /dev/disk4s1 or a path to a file /tmp/ntfs.img
// The provided device must exist at the time you call Open(). Unless
// WithOpenMode(ReadWrite) is given, the device is opened read-only.
func Open(path string, opts ...OpenOpt) (*Device, error) {
	o := openOpts{
		mode:   ReadOnly,
		logger: util.DiscardLogger(),
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, ioerr.Wrap(ioerr.KindSystem, "open", err).WithPath(path)
		}
	}
	readOnly := o.mode != ReadWrite

	storage := o.storage
	if storage == nil {
		if path == "" {
			return nil, ioerr.New(ioerr.KindDeviceNotFound, "open", "must pass device name")
		}
		s, err := file.OpenFromPath(path, readOnly)
		if err != nil {
			kind := ioerr.KindDeviceNotFound
			if errors.Is(err, fs.ErrPermission) {
				kind = ioerr.KindPermissionDenied
			}
			return nil, ioerr.Wrap(kind, "open", err).WithPath(path)
		}
		storage = s
	}

	d, err := initDevice(path, storage, readOnly, &o)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	d.logger.WithFields(logrus.Fields{
		"type":       d.devType.String(),
		"size":       d.size,
		"block_size": d.blockSize,
		"mode":       o.mode.String(),
	}).Debug("Opened device")
	return d, nil
}

func initDevice(path string, storage backend.Storage, readOnly bool, o *openOpts) (*Device, error) {
	devType, info, err := DetermineDeviceType(storage)
	if err != nil {
		return nil, ioerr.Wrap(ioerr.KindSystem, "open", err).WithPath(path)
	}

	var (
		size      int64
		blockSize = DefaultBlockSize
	)
	switch devType {
	case DeviceTypeBlockDevice:
		osFile, err := storage.Sys()
		if err != nil {
			return nil, ioerr.Wrap(ioerr.KindSystem, "open", err).WithPath(path)
		}
		var sectorSize int
		size, sectorSize, err = blockDeviceGeometry(osFile)
		if err != nil {
			return nil, ioerr.Wrap(ioerr.KindSystem, "open", err).WithPath(path)
		}
		if sectorSize > 0 {
			blockSize = sectorSize
		}
	default:
		size = info.Size()
	}
	if o.blockSize > 0 {
		blockSize = o.blockSize
	}

	if o.windowSize > 0 {
		if o.windowOffset+o.windowSize > size {
			return nil, ioerr.New(ioerr.KindSystem, "open", "window of %d bytes at %d exceeds device size %d", o.windowSize, o.windowOffset, size).WithPath(path)
		}
		storage = backend.Sub(storage, o.windowOffset, o.windowSize)
		size = o.windowSize
	}
	if size <= 0 {
		return nil, ioerr.New(ioerr.KindSystem, "open", "could not get size for device").WithPath(path)
	}

	if o.maxConcurrentWrites > 0 {
		storage = backend.NewWriteConcurrencyLimiting(storage, semaphore.NewWeighted(o.maxConcurrentWrites))
	}

	var writable backend.WritableFile
	if !readOnly {
		writable, err = storage.Writable()
		if err != nil {
			return nil, ioerr.Wrap(ioerr.KindPermissionDenied, "open", err).WithPath(path)
		}
	}

	handle := uuid.New()
	return &Device{
		storage:   storage,
		writable:  writable,
		path:      path,
		devType:   devType,
		blockSize: blockSize,
		size:      size,
		readOnly:  readOnly,
		logger: o.logger.WithFields(logrus.Fields{
			"device": path,
			"handle": handle.String(),
		}),
		readMetrics:  newOperationMetrics("read"),
		writeMetrics: newOperationMetrics("write"),
		flushMetrics: newOperationMetrics("flush"),
	}, nil
}
