// Package file provides a backend.Storage over an operating system file:
// a raw device node such as /dev/disk4s1 or an image file such as /tmp/ntfs.img.
//
// All reads and writes are positioned: they carry their own offset and never
// move the descriptor's shared file cursor, so one handle can serve reads and
// writes from several call sites without seek races.
package file

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/smntfs/go-smntfs/backend"
)

// fileStorage wraps any fs.File. An *os.File gets positioned system calls;
// other files are used through whatever io interfaces they implement.
type fileStorage struct {
	fs.File
	osFile   *os.File
	readOnly bool
}

// backend.Storage interface guard
var _ backend.Storage = fileStorage{}

// New creates a backend.Storage from f
func New(f fs.File, readOnly bool) backend.Storage {
	osFile, _ := f.(*os.File)
	return fileStorage{File: f, osFile: osFile, readOnly: readOnly}
}

// OpenFromPath opens a block device e.g. /dev/disk4s1 or an image file e.g.
// /tmp/ntfs.img, which must already exist. Read-write opens are exclusive,
// which on block devices fails while the volume is mounted elsewhere.
func OpenFromPath(pathName string, readOnly bool) (backend.Storage, error) {
	if pathName == "" {
		return nil, errors.New("must pass device of file name")
	}
	if _, err := os.Stat(pathName); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("provided device/file %s does not exist: %w", pathName, err)
		}
		return nil, fmt.Errorf("could not stat device %s: %w", pathName, err)
	}

	flags := os.O_RDONLY
	if !readOnly {
		flags = os.O_RDWR | os.O_EXCL
	}
	f, err := os.OpenFile(pathName, flags, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open device %s with mode %v: %w", pathName, flags, err)
	}
	return New(f, readOnly), nil
}

// CreateFromPath creates a zero-filled image file of size bytes. The file
// must not exist yet.
func CreateFromPath(pathName string, size int64) (backend.Storage, error) {
	switch {
	case pathName == "":
		return nil, errors.New("must pass device name")
	case size <= 0:
		return nil, errors.New("must pass valid device size to create")
	}
	f, err := os.OpenFile(pathName, os.O_RDWR|os.O_EXCL|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("could not create device %s: %w", pathName, err)
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not expand device %s to size %d: %w", pathName, size, err)
	}
	return New(f, false), nil
}

// Sys returns the *os.File for ioctl calls via its descriptor
func (s fileStorage) Sys() (*os.File, error) {
	if s.osFile == nil {
		return nil, backend.ErrNotSuitable
	}
	return s.osFile, nil
}

func (s fileStorage) Writable() (backend.WritableFile, error) {
	if s.readOnly {
		return nil, backend.ErrIncorrectOpenMode
	}
	if s.osFile != nil {
		return osWritable{s}, nil
	}
	if wf, ok := s.File.(backend.WritableFile); ok {
		return wf, nil
	}
	return nil, backend.ErrNotSuitable
}

func (s fileStorage) ReadAt(p []byte, off int64) (int, error) {
	if s.osFile != nil {
		return pread(s.osFile, p, off)
	}
	if r, ok := s.File.(io.ReaderAt); ok {
		return r.ReadAt(p, off)
	}
	return 0, backend.ErrNotSuitable
}

func (s fileStorage) Seek(offset int64, whence int) (int64, error) {
	if sk, ok := s.File.(io.Seeker); ok {
		return sk.Seek(offset, whence)
	}
	return -1, backend.ErrNotSuitable
}

// osWritable routes writes and syncs of an *os.File through the platform shims
type osWritable struct {
	fileStorage
}

func (w osWritable) WriteAt(p []byte, off int64) (int, error) {
	return pwrite(w.osFile, p, off)
}

func (w osWritable) Sync() error {
	return syncFile(w.osFile)
}
