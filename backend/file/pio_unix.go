//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package file

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// pread fills p from offset off. A pread() that returns fewer bytes than
// asked for is retried from where it stopped; io.EOF is only returned once
// the kernel reports end of file.
func pread(f *os.File, p []byte, off int64) (int, error) {
	fd := int(f.Fd())
	nTotal := 0
	for len(p) > 0 {
		n, err := unix.Pread(fd, p, off)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nTotal, err
		}
		if n == 0 {
			return nTotal, io.EOF
		}
		nTotal += n
		p = p[n:]
		off += int64(n)
	}
	return nTotal, nil
}

// pwrite writes all of p at offset off.
//
// The pwrite() system call cannot return a size and error at the same
// time. If an error occurs after one or more bytes are written, it
// returns the size without an error (a "short write"). As WriteAt() must
// return an error in those cases, we must invoke pwrite() repeatedly.
func pwrite(f *os.File, p []byte, off int64) (int, error) {
	fd := int(f.Fd())
	nTotal := 0
	for len(p) > 0 {
		n, err := unix.Pwrite(fd, p, off)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nTotal, err
		}
		if n == 0 {
			return nTotal, io.ErrShortWrite
		}
		nTotal += n
		p = p[n:]
		off += int64(n)
	}
	return nTotal, nil
}
