//go:build aix || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package file

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func syncFile(f *os.File) error {
	for {
		err := unix.Fsync(int(f.Fd()))
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
