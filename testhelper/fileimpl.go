package testhelper

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/smntfs/go-smntfs/backend"
)

type reader func(b []byte, offset int64) (int, error)
type writer func(b []byte, offset int64) (int, error)
type syncer func() error

// FileImpl implements backend.Storage and backend.WritableFile
// used for testing to enable stubbing out devices and injecting faults
type FileImpl struct {
	Reader reader
	Writer writer
	Syncer syncer
	// Size is reported through Stat as the size of a regular file
	Size   int64
	Closed int
}

var (
	_ backend.Storage      = (*FileImpl)(nil)
	_ backend.WritableFile = (*FileImpl)(nil)
)

func (f *FileImpl) Stat() (fs.FileInfo, error) {
	return fileInfo{size: f.Size}, nil
}

func (f *FileImpl) Read(b []byte) (int, error) {
	return f.Reader(b, 0)
}

func (f *FileImpl) Close() error {
	f.Closed++
	return nil
}

// ReadAt read at a particular offset
func (f *FileImpl) ReadAt(b []byte, offset int64) (int, error) {
	return f.Reader(b, offset)
}

// WriteAt write at a particular offset
func (f *FileImpl) WriteAt(b []byte, offset int64) (int, error) {
	return f.Writer(b, offset)
}

// Sync calls Syncer if set
func (f *FileImpl) Sync() error {
	if f.Syncer == nil {
		return nil
	}
	return f.Syncer()
}

// Seek seek a particular offset - does not actually work
//
//nolint:unused,revive // to implement the interface
func (f *FileImpl) Seek(offset int64, whence int) (int64, error) {
	return 0, fmt.Errorf("FileImpl does not implement Seek()")
}

func (f *FileImpl) Sys() (*os.File, error) {
	return nil, backend.ErrNotSuitable
}

func (f *FileImpl) Writable() (backend.WritableFile, error) {
	return f, nil
}

type fileInfo struct {
	size int64
}

func (fi fileInfo) Name() string       { return "stub" }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() fs.FileMode  { return 0o600 }
func (fi fileInfo) ModTime() time.Time { return time.Time{} }
func (fi fileInfo) IsDir() bool        { return false }
func (fi fileInfo) Sys() any           { return nil }
