// Package ioerr defines the errors returned by the block I/O layer.
//
// Every fallible operation returns an *Error whose Kind tells which class of
// failure occurred. The reason sentinels (ErrOutOfBounds, ErrShortIO, ...)
// are wrapped inside it, so callers can test for them with errors.Is.
package ioerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error
type Kind int

const (
	// KindIO is a generic I/O failure, e.g. a device error surfaced through a byte stream
	KindIO Kind = iota
	// KindRead a read from the device failed
	KindRead
	// KindWrite a write to the device failed
	KindWrite
	// KindDeviceNotFound the device or backing file could not be opened
	KindDeviceNotFound
	// KindPermissionDenied the operation is not allowed on this handle
	KindPermissionDenied
	// KindFlushFailed the request to make writes durable failed
	KindFlushFailed
	// KindSystem the operating environment could not answer a query, e.g. the device size
	KindSystem
	// KindBufferOverflow a buffer write would exceed its capacity
	KindBufferOverflow
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindRead:
		return "failed to read from device"
	case KindWrite:
		return "failed to write to device"
	case KindDeviceNotFound:
		return "device not found"
	case KindPermissionDenied:
		return "permission denied"
	case KindFlushFailed:
		return "failed to flush write buffer"
	case KindSystem:
		return "system error"
	case KindBufferOverflow:
		return "buffer overflow"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

// reasons carried inside an Error
var (
	ErrOutOfBounds       = errors.New("offset out of device bounds")
	ErrShortIO           = errors.New("short transfer")
	ErrReadOnly          = errors.New("device opened read-only")
	ErrBlockSizeMismatch = errors.New("data length does not match block size")
	ErrCapacity          = errors.New("insufficient buffer capacity")
)

// Error is the error type returned by the block I/O layer.
//
// Offset, DeviceSize, Expected and Actual are only meaningful when Has* says so;
// most errors only carry the subset relevant to where they were detected.
type Error struct {
	Kind Kind
	// Op is the operation that failed, e.g. "read", "write", "flush"
	Op   string
	Path string

	Offset     int64
	DeviceSize int64
	HasOffset  bool

	Expected  int
	Actual    int
	HasLength bool

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		fmt.Fprintf(&b, " (%s", e.Op)
		if e.Path != "" {
			fmt.Fprintf(&b, " %s", e.Path)
		}
		b.WriteString(")")
	} else if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.HasOffset {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
		if e.DeviceSize > 0 {
			fmt.Fprintf(&b, " of %d", e.DeviceSize)
		}
	}
	if e.HasLength {
		fmt.Fprintf(&b, ": expected %d bytes, got %d", e.Expected, e.Actual)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind. This lets callers
// match with errors.Is(err, &ioerr.Error{Kind: ioerr.KindRead}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an Error of the given kind with a formatted cause
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  fmt.Errorf(format, args...),
	}
}

// Wrap creates an Error of the given kind around err
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}

// WithPath sets the path of the device the error relates to
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithOffset records the offset and device size involved in the failure
func (e *Error) WithOffset(offset, deviceSize int64) *Error {
	e.Offset = offset
	e.DeviceSize = deviceSize
	e.HasOffset = true
	return e
}

// WithLength records the expected and actual transfer lengths
func (e *Error) WithLength(expected, actual int) *Error {
	e.Expected = expected
	e.Actual = actual
	e.HasLength = true
	return e
}

// KindOf returns the Kind of the first *Error in err's chain. Errors that did not
// originate in this layer are reported as KindIO.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIO
}

// IsKind reports whether err carries an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
