// Package device provides offset-addressed access to a raw block device or a
// disk image file.
//
// A Device is bounds-checked and knows whether it was opened read-only. It
// performs positioned I/O only, so reads and writes never depend on a shared
// file cursor. A Device is not safe for concurrent mutation; the embedding
// system serializes writes and flushes.
package device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smntfs/go-smntfs/backend"
	"github.com/smntfs/go-smntfs/ioerr"
)

// Device is an open handle on a block device or image file
type Device struct {
	storage   backend.Storage
	writable  backend.WritableFile
	path      string
	devType   DeviceType
	blockSize int
	size      int64
	readOnly  bool
	closed    bool
	logger    logrus.FieldLogger

	readMetrics  operationMetrics
	writeMetrics operationMetrics
	flushMetrics operationMetrics
}

// ReadAt fills p with the bytes starting at off. Either all of p is read or
// an error of kind ioerr.KindRead is returned; a read that would run past the
// end of the device is reported as ioerr.ErrShortIO.
func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	if d.closed {
		return 0, d.fail(d.readMetrics, ioerr.Wrap(ioerr.KindIO, "read", os.ErrClosed))
	}
	if off < 0 || off >= d.size {
		return 0, d.fail(d.readMetrics, ioerr.Wrap(ioerr.KindRead, "read", ioerr.ErrOutOfBounds).WithOffset(off, d.size))
	}
	if len(p) == 0 {
		return 0, nil
	}

	timeStart := time.Now()
	want := p
	if remaining := d.size - off; int64(len(want)) > remaining {
		want = want[:remaining]
	}
	n, err := d.storage.ReadAt(want, off)
	switch {
	case n == len(p):
		// a full read may legitimately be accompanied by io.EOF
	case err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		return n, d.fail(d.readMetrics, ioerr.Wrap(ioerr.KindRead, "read", ioerr.ErrShortIO).WithOffset(off, d.size).WithLength(len(p), n))
	default:
		return n, d.fail(d.readMetrics, ioerr.Wrap(ioerr.KindRead, "read", err).WithOffset(off, d.size).WithLength(len(p), n))
	}
	d.readMetrics.observe(timeStart, n)
	return n, nil
}

// ReadBytes returns size bytes starting at off
func (d *Device) ReadBytes(off int64, size int) ([]byte, error) {
	if size < 0 {
		return nil, ioerr.New(ioerr.KindRead, "read", "negative read size %d", size).WithPath(d.path)
	}
	b := make([]byte, size)
	if _, err := d.ReadAt(b, off); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadBlock returns block n. Only whole blocks are addressable; a trailing
// partial block is out of range.
func (d *Device) ReadBlock(n int64) ([]byte, error) {
	return d.ReadBlocks(n, 1)
}

// ReadBlocks returns count consecutive blocks starting with block start
func (d *Device) ReadBlocks(start, count int64) ([]byte, error) {
	if start < 0 || count < 0 || start+count > d.BlockCount() {
		return nil, d.fail(d.readMetrics, ioerr.New(ioerr.KindRead, "read", "blocks %d+%d out of range, device has %d blocks: %w", start, count, d.BlockCount(), ioerr.ErrOutOfBounds))
	}
	return d.ReadBytes(start*int64(d.blockSize), int(count)*d.blockSize)
}

// WriteAt writes all of p at off. A write on a read-only device fails with
// ioerr.KindPermissionDenied before anything is checked or touched. A write
// that does not fit between off and the end of the device is rejected
// without modifying the device.
func (d *Device) WriteAt(p []byte, off int64) (int, error) {
	if d.readOnly {
		return 0, d.fail(d.writeMetrics, ioerr.Wrap(ioerr.KindPermissionDenied, "write", ioerr.ErrReadOnly))
	}
	if d.closed {
		return 0, d.fail(d.writeMetrics, ioerr.Wrap(ioerr.KindIO, "write", os.ErrClosed))
	}
	if off < 0 || off >= d.size || int64(len(p)) > d.size-off {
		return 0, d.fail(d.writeMetrics, ioerr.Wrap(ioerr.KindWrite, "write", ioerr.ErrOutOfBounds).WithOffset(off, d.size).WithLength(len(p), 0))
	}
	if len(p) == 0 {
		return 0, nil
	}

	timeStart := time.Now()
	n, err := d.writable.WriteAt(p, off)
	switch {
	case n == len(p):
	case err == nil || errors.Is(err, io.ErrShortWrite):
		return n, d.fail(d.writeMetrics, ioerr.Wrap(ioerr.KindWrite, "write", ioerr.ErrShortIO).WithOffset(off, d.size).WithLength(len(p), n))
	default:
		return n, d.fail(d.writeMetrics, ioerr.Wrap(ioerr.KindWrite, "write", err).WithOffset(off, d.size).WithLength(len(p), n))
	}
	d.writeMetrics.observe(timeStart, n)
	return n, nil
}

// WriteBlock writes block n. data must be exactly one block long.
func (d *Device) WriteBlock(n int64, data []byte) error {
	if d.readOnly {
		return d.fail(d.writeMetrics, ioerr.Wrap(ioerr.KindPermissionDenied, "write", ioerr.ErrReadOnly))
	}
	if len(data) != d.blockSize {
		return d.fail(d.writeMetrics, ioerr.Wrap(ioerr.KindWrite, "write", ioerr.ErrBlockSizeMismatch).WithLength(d.blockSize, len(data)))
	}
	if n < 0 || n >= d.BlockCount() {
		return d.fail(d.writeMetrics, ioerr.New(ioerr.KindWrite, "write", "block %d out of range, device has %d blocks: %w", n, d.BlockCount(), ioerr.ErrOutOfBounds))
	}
	_, err := d.WriteAt(data, n*int64(d.blockSize))
	return err
}

// Flush asks the operating system to make all accepted writes durable. It is
// a no-op on a read-only device.
func (d *Device) Flush() error {
	if d.readOnly {
		return nil
	}
	if d.closed {
		return d.fail(d.flushMetrics, ioerr.Wrap(ioerr.KindIO, "flush", os.ErrClosed))
	}
	timeStart := time.Now()
	if err := d.writable.Sync(); err != nil {
		return d.fail(d.flushMetrics, ioerr.Wrap(ioerr.KindFlushFailed, "flush", err))
	}
	d.flushMetrics.observe(timeStart, 0)
	d.logger.Debug("Flushed device")
	return nil
}

// Close releases the device. A read-write device is flushed once first; a
// failing flush is logged and otherwise ignored, so Close only reports errors
// from releasing the handle itself. Calling Close again does nothing.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	if !d.readOnly {
		if err := d.Flush(); err != nil {
			d.logger.WithError(err).Warn("Failed to flush device on close")
		}
	}
	d.closed = true
	if err := d.storage.Close(); err != nil {
		return fmt.Errorf("could not close device %s: %w", d.path, err)
	}
	d.logger.Debug("Closed device")
	return nil
}

// BlockSize returns the block size in bytes
func (d *Device) BlockSize() int {
	return d.blockSize
}

// Size returns the size of the device in bytes
func (d *Device) Size() int64 {
	return d.size
}

// BlockCount returns the number of whole blocks on the device
func (d *Device) BlockCount() int64 {
	return d.size / int64(d.blockSize)
}

func (d *Device) ReadOnly() bool {
	return d.readOnly
}

func (d *Device) Path() string {
	return d.path
}

func (d *Device) Type() DeviceType {
	return d.devType
}

// Use opens path, runs fn with the device and closes the device when fn
// returns or panics. The error from fn takes precedence over the one from
// Close.
func Use(path string, fn func(d *Device) error, opts ...OpenOpt) (err error) {
	d, err := Open(path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(d)
}

func (d *Device) fail(m operationMetrics, e *ioerr.Error) error {
	m.failed(e.Kind)
	return e.WithPath(d.path)
}
