// Package memory provides a fixed-size backend.Storage held in memory.
// It is meant for tests and tools that need a device without real media.
package memory

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/smntfs/go-smntfs/backend"
)

// Storage is an in-memory device. The zero value is not usable; create one
// with New or FromBytes.
type Storage struct {
	mu       sync.RWMutex
	name     string
	data     []byte
	readOnly bool
	pos      int64
	syncs    int
	closed   bool
}

// New creates a zero-filled writable device of size bytes
func New(size int64) *Storage {
	return &Storage{
		name: "memory",
		data: make([]byte, size),
	}
}

// FromBytes creates a device holding a copy of b
func FromBytes(b []byte, readOnly bool) *Storage {
	data := make([]byte, len(b))
	copy(data, b)
	return &Storage{
		name:     "memory",
		data:     data,
		readOnly: readOnly,
	}
}

// backend.Storage interface guard
var _ backend.Storage = (*Storage)(nil)

// Bytes returns a copy of the device contents
func (s *Storage) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := make([]byte, len(s.data))
	copy(b, s.data)
	return b
}

// Syncs returns how many times Sync was called
func (s *Storage) Syncs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncs
}

func (s *Storage) Stat() (fs.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, os.ErrClosed
	}
	return fileInfo{name: s.name, size: int64(len(s.data))}, nil
}

func (s *Storage) Read(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, os.ErrClosed
	}
	if s.pos >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(b, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *Storage) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = s.pos + offset
	case io.SeekEnd:
		pos = int64(len(s.data)) + offset
	default:
		return -1, backend.ErrNotSuitable
	}
	if pos < 0 {
		return -1, errors.New("negative position")
	}
	s.pos = pos
	return pos, nil
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}
	s.closed = true
	return nil
}

// ReadAt behaves like bytes.Reader: a read running past the end returns the
// bytes that exist and io.EOF
func (s *Storage) ReadAt(p []byte, off int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *Storage) Sys() (*os.File, error) {
	return nil, backend.ErrNotSuitable
}

func (s *Storage) Writable() (backend.WritableFile, error) {
	if s.readOnly {
		return nil, backend.ErrIncorrectOpenMode
	}
	return writable{s}, nil
}

type writable struct {
	*Storage
}

// WriteAt stores as much of p as fits before the end of the device; the
// remainder is reported as a short write, as a real device would.
func (w writable) WriteAt(p []byte, off int64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(w.data)) {
		return 0, io.ErrShortWrite
	}
	n := copy(w.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (w writable) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return os.ErrClosed
	}
	w.syncs++
	return nil
}

type fileInfo struct {
	name string
	size int64
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() fs.FileMode  { return 0o600 }
func (fi fileInfo) ModTime() time.Time { return time.Time{} }
func (fi fileInfo) IsDir() bool        { return false }
func (fi fileInfo) Sys() any           { return nil }
