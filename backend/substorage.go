package backend

import (
	"io"
	"io/fs"
	"os"
)

// window exposes size bytes of base starting at start, e.g. the partition
// holding a volume inside a whole-disk image. Offsets are relative to the
// start of the window and accesses never reach outside it.
type window struct {
	base  Storage
	start int64
	size  int64
}

// Sub returns a Storage restricted to size bytes of u starting at offset
func Sub(u Storage, offset, size int64) Storage {
	return window{base: u, start: offset, size: size}
}

// clip shortens p so that it ends at the window boundary
func (w window) clip(p []byte, off int64) ([]byte, bool) {
	if rest := w.size - off; int64(len(p)) > rest {
		return p[:max(rest, 0)], true
	}
	return p, false
}

// Stat reports the size of the window rather than of the underlying file
func (w window) Stat() (fs.FileInfo, error) {
	info, err := w.base.Stat()
	if err != nil {
		return nil, err
	}
	return windowInfo{FileInfo: info, size: w.size}, nil
}

func (w window) Read(b []byte) (int, error) {
	return w.base.Read(b)
}

func (w window) Close() error {
	return w.base.Close()
}

func (w window) ReadAt(p []byte, off int64) (int, error) {
	p, clipped := w.clip(p, off)
	n, err := w.base.ReadAt(p, w.start+off)
	if err == nil && clipped {
		err = io.EOF
	}
	return n, err
}

func (w window) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = w.start + offset
	case io.SeekCurrent:
		pos, err := w.base.Seek(offset, io.SeekCurrent)
		if err != nil {
			return -1, err
		}
		return pos - w.start, nil
	case io.SeekEnd:
		target = w.start + w.size + offset
	default:
		return -1, ErrNotSuitable
	}
	pos, err := w.base.Seek(target, io.SeekStart)
	if err != nil {
		return -1, err
	}
	return pos - w.start, nil
}

func (w window) Sys() (*os.File, error) {
	return w.base.Sys()
}

func (w window) Writable() (WritableFile, error) {
	wf, err := w.base.Writable()
	if err != nil {
		return nil, err
	}
	return writableWindow{window: w, wf: wf}, nil
}

// writableWindow reads through the window and writes through the
// underlying writable handle
type writableWindow struct {
	window
	wf WritableFile
}

func (w writableWindow) WriteAt(p []byte, off int64) (int, error) {
	p, clipped := w.clip(p, off)
	n, err := w.wf.WriteAt(p, w.start+off)
	if err == nil && clipped {
		err = io.ErrShortWrite
	}
	return n, err
}

func (w writableWindow) Sync() error {
	return w.wf.Sync()
}

type windowInfo struct {
	fs.FileInfo
	size int64
}

func (i windowInfo) Size() int64 {
	return i.size
}
