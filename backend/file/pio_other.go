//go:build !(aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)

package file

import "os"

// os.File implements ReadAt and WriteAt with positioned system calls
// (overlapped I/O on Windows) on every platform it supports.
func pread(f *os.File, p []byte, off int64) (int, error) {
	return f.ReadAt(p, off)
}

func pwrite(f *os.File, p []byte, off int64) (int, error) {
	return f.WriteAt(p, off)
}

func syncFile(f *os.File) error {
	return f.Sync()
}
