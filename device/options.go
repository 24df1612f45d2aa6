package device

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/smntfs/go-smntfs/backend"
)

// DefaultBlockSize is the sector size assumed when neither the caller nor
// the kernel provides one
const DefaultBlockSize = 512

// OpenModeOption is the mode a device is opened in
type OpenModeOption int

const (
	// ReadOnly rejects every write; it is the default
	ReadOnly OpenModeOption = iota
	// ReadWrite allows writes and flushes on close
	ReadWrite
)

func (m OpenModeOption) String() string {
	if m == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

type openOpts struct {
	mode                OpenModeOption
	blockSize           int
	logger              logrus.FieldLogger
	storage             backend.Storage
	windowOffset        int64
	windowSize          int64
	maxConcurrentWrites int64
}

// OpenOpt configures Open
type OpenOpt func(o *openOpts) error

// WithOpenMode sets read-only or read-write access
func WithOpenMode(mode OpenModeOption) OpenOpt {
	return func(o *openOpts) error {
		o.mode = mode
		return nil
	}
}

// WithBlockSize overrides the block size. It must be a positive power of two.
func WithBlockSize(size int) OpenOpt {
	return func(o *openOpts) error {
		if size <= 0 || size&(size-1) != 0 {
			return fmt.Errorf("block size %d is not a positive power of two", size)
		}
		o.blockSize = size
		return nil
	}
}

// WithLogger sets the logger diagnostic events are sent to. Without it they
// are dropped.
func WithLogger(l logrus.FieldLogger) OpenOpt {
	return func(o *openOpts) error {
		o.logger = l
		return nil
	}
}

// WithStorage uses an already open storage instead of opening the path. The
// path is then only used to name the device in logs and errors. Ownership of
// the storage moves to the Device.
func WithStorage(s backend.Storage) OpenOpt {
	return func(o *openOpts) error {
		o.storage = s
		return nil
	}
}

// WithWindow restricts the device to size bytes starting at offset of the
// underlying storage, e.g. a single partition of a whole disk.
func WithWindow(offset, size int64) OpenOpt {
	return func(o *openOpts) error {
		if offset < 0 || size <= 0 {
			return fmt.Errorf("invalid window: offset %d size %d", offset, size)
		}
		o.windowOffset = offset
		o.windowSize = size
		return nil
	}
}

// WithMaxConcurrentWrites bounds the number of WriteAt calls that may be in
// flight at the same time against the storage.
func WithMaxConcurrentWrites(n int64) OpenOpt {
	return func(o *openOpts) error {
		if n <= 0 {
			return fmt.Errorf("maximum concurrent writes must be positive, got %d", n)
		}
		o.maxConcurrentWrites = n
		return nil
	}
}

// WithReadOnly is shorthand for WithOpenMode(ReadOnly) or WithOpenMode(ReadWrite)
func WithReadOnly(readOnly bool) OpenOpt {
	if readOnly {
		return WithOpenMode(ReadOnly)
	}
	return WithOpenMode(ReadWrite)
}
