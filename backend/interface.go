// Package backend defines the storage handles the block I/O layer performs
// positioned I/O against, whether raw devices, image files or memory.
package backend

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

var (
	ErrIncorrectOpenMode = errors.New("disk file or device not open for write")
	ErrNotSuitable       = errors.New("backing file is not suitable")
)

// File is a read handle. Reads go through ReadAt; Read and Seek only exist so
// that a File is also usable where an fs.File is expected.
type File interface {
	fs.File
	io.ReaderAt
	io.Seeker
	io.Closer
}

// WritableFile is a handle that accepts positioned writes and can commit them
// to stable storage.
type WritableFile interface {
	File
	io.WriterAt
	// Sync blocks until all previously accepted writes are durable
	Sync() error
}

type Storage interface {
	File
	// OS-specific file for ioctl calls via fd
	Sys() (*os.File, error)
	// file for read-write operations
	Writable() (WritableFile, error)
}
