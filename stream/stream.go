// Package stream exposes a Device as a sequential byte stream for parsers
// that want io.Reader and io.Seeker rather than positioned access.
package stream

import (
	"fmt"
	"io"
	"math"

	"github.com/smntfs/go-smntfs/device"
	"github.com/smntfs/go-smntfs/iobuf"
	"github.com/smntfs/go-smntfs/ioerr"
)

// VolumeReader is what a volume parser consumes
type VolumeReader interface {
	io.Reader
	io.Seeker
}

// Adapter is a cursor over a Device. It owns the device and closes it on
// Close. An Adapter is not safe for concurrent use.
type Adapter struct {
	dev   *device.Device
	pos   int64
	ahead *iobuf.Buffer
}

var _ VolumeReader = (*Adapter)(nil)

// Option configures an Adapter
type Option func(a *Adapter)

// WithReadAhead serves reads from buf, refilling it with up to buf.Cap()
// bytes from the cursor whenever the cursor leaves the staged range.
func WithReadAhead(buf *iobuf.Buffer) Option {
	return func(a *Adapter) {
		if buf != nil && buf.Cap() > 0 {
			buf.Clear()
			a.ahead = buf
		}
	}
}

// New creates an Adapter positioned at the start of dev
func New(dev *device.Device, opts ...Option) *Adapter {
	a := &Adapter{dev: dev}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Read reads up to len(p) bytes at the cursor and advances it by the number
// of bytes returned. At or beyond the end of the device it returns io.EOF.
func (a *Adapter) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	size := a.dev.Size()
	if a.pos >= size {
		return 0, io.EOF
	}
	n := int(min(int64(len(p)), size-a.pos))

	var err error
	if a.ahead != nil {
		n, err = a.readAhead(p[:n])
	} else {
		n, err = a.dev.ReadAt(p[:n], a.pos)
	}
	if err != nil {
		return 0, ioerr.Wrap(ioerr.KindIO, "stream read", err).WithPath(a.dev.Path())
	}
	a.pos += int64(n)
	return n, nil
}

func (a *Adapter) readAhead(p []byte) (int, error) {
	if a.ahead.IsEmpty() || a.ahead.Offset() != a.pos {
		fill := int(min(int64(a.ahead.Cap()), a.dev.Size()-a.pos))
		chunk, err := a.dev.ReadBytes(a.pos, fill)
		if err != nil {
			a.ahead.Clear()
			return 0, err
		}
		a.ahead.Clear()
		a.ahead.SetOffset(a.pos)
		if _, err := a.ahead.Write(chunk); err != nil {
			return 0, err
		}
	}
	n := copy(p, a.ahead.Next(len(p)))
	a.ahead.SetOffset(a.ahead.Offset() + int64(n))
	return n, nil
}

// Seek moves the cursor. Positions before the start of the device saturate
// at 0; positions past the end are allowed and make the next Read return
// io.EOF.
func (a *Adapter) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = a.pos
	case io.SeekEnd:
		base = a.dev.Size()
	default:
		return a.pos, fmt.Errorf("invalid whence %d", whence)
	}
	pos := base + offset
	switch {
	case offset > 0 && pos < base:
		pos = math.MaxInt64
	case pos < 0 || (offset < 0 && pos > base):
		pos = 0
	}
	if a.ahead != nil && a.ahead.Offset() != pos {
		a.ahead.Clear()
	}
	a.pos = pos
	return pos, nil
}

// Position returns the cursor
func (a *Adapter) Position() int64 {
	return a.pos
}

// Device returns the underlying device
func (a *Adapter) Device() *device.Device {
	return a.dev
}

// Close closes the underlying device
func (a *Adapter) Close() error {
	return a.dev.Close()
}
