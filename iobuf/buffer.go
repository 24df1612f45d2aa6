// Package iobuf provides a bounded FIFO byte queue used to coalesce writes
// and stage read-ahead data before it reaches the device.
package iobuf

import (
	"io"

	"github.com/smntfs/go-smntfs/ioerr"
)

// DefaultCapacity is the capacity of a Buffer created with NewDefault
const DefaultCapacity = 128 * 1024

// Buffer is a fixed-capacity FIFO of bytes backed by a ring. It also carries
// the device offset its contents belong to; the Buffer itself never
// interprets that offset.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	data   []byte
	head   int
	length int
	offset int64
}

// New creates an empty Buffer holding at most capacity bytes
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{
		data: make([]byte, capacity),
	}
}

// NewDefault creates an empty Buffer of DefaultCapacity
func NewDefault() *Buffer {
	return New(DefaultCapacity)
}

// Write appends all of p, or nothing at all if p does not fit in the space
// that is left.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) > b.Available() {
		return 0, ioerr.Wrap(ioerr.KindBufferOverflow, "buffer write", ioerr.ErrCapacity).WithLength(len(p), b.Available())
	}
	tail := (b.head + b.length) % max(len(b.data), 1)
	n := copy(b.data[tail:], p)
	copy(b.data, p[n:])
	b.length += len(p)
	return len(p), nil
}

// Next removes and returns up to n bytes from the front of the buffer.
// Asking for more than is buffered returns only what is there.
func (b *Buffer) Next(n int) []byte {
	n = max(min(n, b.length), 0)
	out := make([]byte, n)
	b.take(out)
	return out
}

// Read is the io.Reader form of Next. It returns io.EOF once the buffer is
// empty and p is not.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.length == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	return b.take(p), nil
}

func (b *Buffer) take(p []byte) int {
	n := min(len(p), b.length)
	if n == 0 {
		return 0
	}
	c := copy(p[:n], b.data[b.head:])
	copy(p[c:n], b.data)
	b.head = (b.head + n) % len(b.data)
	b.length -= n
	if b.length == 0 {
		b.head = 0
	}
	return n
}

// Bytes returns a copy of the buffered bytes without consuming them
func (b *Buffer) Bytes() []byte {
	out := make([]byte, b.length)
	c := copy(out, b.data[b.head:min(b.head+b.length, len(b.data))])
	copy(out[c:], b.data)
	return out
}

func (b *Buffer) IsEmpty() bool {
	return b.length == 0
}

func (b *Buffer) IsFull() bool {
	return b.length >= len(b.data)
}

// Len returns the number of buffered bytes
func (b *Buffer) Len() int {
	return b.length
}

// Cap returns the capacity of the buffer
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Available returns how many more bytes can be written
func (b *Buffer) Available() int {
	return len(b.data) - b.length
}

// Clear discards all buffered bytes
func (b *Buffer) Clear() {
	b.head = 0
	b.length = 0
}

// Offset returns the device offset associated with the buffer
func (b *Buffer) Offset() int64 {
	return b.offset
}

func (b *Buffer) SetOffset(offset int64) {
	b.offset = offset
}
