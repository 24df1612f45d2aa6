// Package mmap provides a read-only backend.Storage over a memory-mapped
// image file. Reads are served from the page cache without a system call
// per request.
package mmap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	xmmap "golang.org/x/exp/mmap"

	"github.com/smntfs/go-smntfs/backend"
)

// Storage is a read-only mapping of an image file
type Storage struct {
	r    *xmmap.ReaderAt
	info fs.FileInfo
	pos  int64
}

// backend.Storage interface guard
var _ backend.Storage = (*Storage)(nil)

// OpenFromPath maps the image file at pathName. Only regular files can be
// mapped; block devices have to go through backend/file.
func OpenFromPath(pathName string) (*Storage, error) {
	if pathName == "" {
		return nil, errors.New("must pass image file name")
	}
	info, err := os.Stat(pathName)
	if err != nil {
		return nil, fmt.Errorf("could not stat image %s: %w", pathName, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("cannot map %s: %w", pathName, backend.ErrNotSuitable)
	}
	r, err := xmmap.Open(pathName)
	if err != nil {
		return nil, fmt.Errorf("could not map image %s: %w", pathName, err)
	}
	return &Storage{r: r, info: info}, nil
}

func (s *Storage) Stat() (fs.FileInfo, error) {
	return s.info, nil
}

func (s *Storage) ReadAt(p []byte, off int64) (int, error) {
	return s.r.ReadAt(p, off)
}

func (s *Storage) Read(b []byte) (int, error) {
	n, err := s.r.ReadAt(b, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *Storage) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = s.pos + offset
	case io.SeekEnd:
		pos = int64(s.r.Len()) + offset
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
	return s.r.Close()
}

func (s *Storage) Sys() (*os.File, error) {
	return nil, backend.ErrNotSuitable
}

// Writable always fails; mappings are read-only
func (s *Storage) Writable() (backend.WritableFile, error) {
	return nil, backend.ErrIncorrectOpenMode
}
