package device_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/smntfs/go-smntfs/backend/memory"
	"github.com/smntfs/go-smntfs/device"
	"github.com/smntfs/go-smntfs/ioerr"
	"github.com/smntfs/go-smntfs/testhelper"
)

func tmpImage(t *testing.T, size int64) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ntfs.img")
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return p
}

func TestOpenImage(t *testing.T) {
	p := tmpImage(t, 10*1024*1024)

	d, err := device.Open(p)
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, device.DeviceTypeFile, d.Type())
	require.Equal(t, int64(10*1024*1024), d.Size())
	require.Equal(t, device.DefaultBlockSize, d.BlockSize())
	require.Equal(t, int64(20480), d.BlockCount())
	require.True(t, d.ReadOnly())
	require.Equal(t, p, d.Path())
}

func TestOpenErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, err := device.Open(filepath.Join(t.TempDir(), "missing.img"))
		require.Error(t, err)
		require.Equal(t, ioerr.KindDeviceNotFound, ioerr.KindOf(err))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("empty path", func(t *testing.T) {
		_, err := device.Open("")
		require.Equal(t, ioerr.KindDeviceNotFound, ioerr.KindOf(err))
	})
	t.Run("zero size", func(t *testing.T) {
		_, err := device.Open("mem", device.WithStorage(memory.New(0)))
		require.Equal(t, ioerr.KindSystem, ioerr.KindOf(err))
	})
	t.Run("invalid block size", func(t *testing.T) {
		_, err := device.Open("mem", device.WithStorage(memory.New(4096)), device.WithBlockSize(1000))
		require.Equal(t, ioerr.KindSystem, ioerr.KindOf(err))
	})
	t.Run("window past end", func(t *testing.T) {
		_, err := device.Open("mem", device.WithStorage(memory.New(4096)), device.WithWindow(2048, 4096))
		require.Equal(t, ioerr.KindSystem, ioerr.KindOf(err))
	})
}

func TestRoundTrip(t *testing.T) {
	p := tmpImage(t, 1024*1024)
	data := bytes.Repeat([]byte{0xCD}, 4096)

	err := device.Use(p, func(d *device.Device) error {
		n, err := d.WriteAt(data, 4096)
		if err != nil {
			return err
		}
		require.Equal(t, len(data), n)
		return d.Flush()
	}, device.WithReadOnly(false))
	require.NoError(t, err)

	err = device.Use(p, func(d *device.Device) error {
		b, err := d.ReadBytes(4096, 4096)
		if err != nil {
			return err
		}
		if diff := cmp.Diff(data, b); diff != "" {
			t.Errorf("read back mismatch (-want +got):\n%s", diff)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestBounds(t *testing.T) {
	mem := memory.New(4096)
	d, err := device.Open("mem", device.WithStorage(mem), device.WithReadOnly(false))
	require.NoError(t, err)
	defer d.Close()

	tests := []struct {
		name string
		op   func() error
		kind ioerr.Kind
		want error
	}{
		{"read at size", func() error { _, err := d.ReadAt(make([]byte, 1), 4096); return err }, ioerr.KindRead, ioerr.ErrOutOfBounds},
		{"read negative", func() error { _, err := d.ReadAt(make([]byte, 1), -1); return err }, ioerr.KindRead, ioerr.ErrOutOfBounds},
		{"read past end", func() error { _, err := d.ReadBytes(4000, 512); return err }, ioerr.KindRead, ioerr.ErrShortIO},
		{"write at size", func() error { _, err := d.WriteAt([]byte{1}, 4096); return err }, ioerr.KindWrite, ioerr.ErrOutOfBounds},
		{"write past end", func() error { _, err := d.WriteAt(make([]byte, 512), 4000); return err }, ioerr.KindWrite, ioerr.ErrOutOfBounds},
		{"block past end", func() error { _, err := d.ReadBlock(8); return err }, ioerr.KindRead, ioerr.ErrOutOfBounds},
		{"write block mismatch", func() error { return d.WriteBlock(0, make([]byte, 100)) }, ioerr.KindWrite, ioerr.ErrBlockSizeMismatch},
		{"write block past end", func() error { return d.WriteBlock(8, make([]byte, 512)) }, ioerr.KindWrite, ioerr.ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			require.Error(t, err)
			require.Equal(t, tt.kind, ioerr.KindOf(err))
			require.ErrorIs(t, err, tt.want)
		})
	}

	// rejected writes leave the device untouched
	require.Equal(t, make([]byte, 4096), mem.Bytes())
}

func TestReadOnly(t *testing.T) {
	orig := bytes.Repeat([]byte{0x5A}, 2048)
	mem := memory.FromBytes(orig, false)
	d, err := device.Open("mem", device.WithStorage(mem))
	require.NoError(t, err)
	defer d.Close()

	_, err = d.WriteAt([]byte{1, 2, 3}, 0)
	require.Equal(t, ioerr.KindPermissionDenied, ioerr.KindOf(err))
	require.ErrorIs(t, err, ioerr.ErrReadOnly)

	// checked before the block size
	err = d.WriteBlock(0, []byte{1})
	require.ErrorIs(t, err, ioerr.ErrReadOnly)

	require.NoError(t, d.Flush())
	require.NoError(t, d.Close())
	require.Equal(t, orig, mem.Bytes())
	require.Zero(t, mem.Syncs())
}

func TestBlockRoundTripFile(t *testing.T) {
	p := tmpImage(t, 4096)
	d, err := device.Open(p, device.WithReadOnly(false))
	require.NoError(t, err)

	block := bytes.Repeat([]byte{0xCD}, 512)
	require.NoError(t, d.WriteBlock(0, block))
	require.NoError(t, d.Flush())
	got, err := d.ReadBlock(0)
	require.NoError(t, err)
	require.Equal(t, block, got)
	require.NoError(t, d.Close())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, block, b[:512])
	require.Equal(t, make([]byte, 4096-512), b[512:])
}

func TestReadOnlyFileUnchanged(t *testing.T) {
	orig := bytes.Repeat([]byte{0x5A}, 4096)
	p := filepath.Join(t.TempDir(), "ntfs.img")
	require.NoError(t, os.WriteFile(p, orig, 0o600))

	d, err := device.Open(p)
	require.NoError(t, err)
	require.True(t, d.ReadOnly())

	_, err = d.WriteAt([]byte{1, 2, 3}, 0)
	require.ErrorIs(t, err, ioerr.ErrReadOnly)
	err = d.WriteBlock(1, make([]byte, 512))
	require.ErrorIs(t, err, ioerr.ErrReadOnly)
	require.NoError(t, d.Close())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, orig, b)
}

func TestBlockCountTruncates(t *testing.T) {
	d, err := device.Open("mem", device.WithStorage(memory.New(5000)), device.WithBlockSize(1024))
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, int64(4), d.BlockCount())
	_, err = d.ReadBlock(4)
	require.ErrorIs(t, err, ioerr.ErrOutOfBounds)
	// the partial tail is still reachable by offset
	b, err := d.ReadBytes(4096, 904)
	require.NoError(t, err)
	require.Len(t, b, 904)
}

func TestBlocks(t *testing.T) {
	mem := memory.New(4 * 512)
	d, err := device.Open("mem", device.WithStorage(mem), device.WithReadOnly(false))
	require.NoError(t, err)
	defer d.Close()

	block := bytes.Repeat([]byte{0xAB}, 512)
	require.NoError(t, d.WriteBlock(2, block))

	b, err := d.ReadBlocks(1, 3)
	require.NoError(t, err)
	want := append(make([]byte, 512), block...)
	want = append(want, make([]byte, 512)...)
	if diff := cmp.Diff(want, b); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestShortIO(t *testing.T) {
	stub := &testhelper.FileImpl{
		Size: 4096,
		Reader: func(b []byte, offset int64) (int, error) {
			return len(b) / 2, nil
		},
		Writer: func(b []byte, offset int64) (int, error) {
			return 3, nil
		},
	}
	d, err := device.Open("stub", device.WithStorage(stub), device.WithReadOnly(false))
	require.NoError(t, err)

	_, err = d.ReadAt(make([]byte, 512), 0)
	require.Equal(t, ioerr.KindRead, ioerr.KindOf(err))
	require.ErrorIs(t, err, ioerr.ErrShortIO)
	var e *ioerr.Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, 512, e.Expected)
	require.Equal(t, 256, e.Actual)

	n, err := d.WriteAt(make([]byte, 8), 0)
	require.Equal(t, 3, n)
	require.Equal(t, ioerr.KindWrite, ioerr.KindOf(err))
	require.ErrorIs(t, err, ioerr.ErrShortIO)
}

func TestHardwareErrorIsWrapped(t *testing.T) {
	eio := errors.New("input/output error")
	stub := &testhelper.FileImpl{
		Size:   4096,
		Reader: func(b []byte, offset int64) (int, error) { return 0, eio },
	}
	d, err := device.Open("stub", device.WithStorage(stub))
	require.NoError(t, err)

	_, err = d.ReadAt(make([]byte, 512), 512)
	require.Equal(t, ioerr.KindRead, ioerr.KindOf(err))
	require.ErrorIs(t, err, eio)
}

func TestFlushFailure(t *testing.T) {
	syncErr := errors.New("fsync: no space left on device")
	stub := &testhelper.FileImpl{
		Size:   4096,
		Syncer: func() error { return syncErr },
	}
	logger, hook := logtest.NewNullLogger()
	d, err := device.Open("stub", device.WithStorage(stub), device.WithReadOnly(false), device.WithLogger(logger))
	require.NoError(t, err)

	err = d.Flush()
	require.Equal(t, ioerr.KindFlushFailed, ioerr.KindOf(err))
	require.ErrorIs(t, err, syncErr)

	// teardown swallows the failure but logs it
	hook.Reset()
	require.NoError(t, d.Close())
	require.Equal(t, 1, stub.Closed)
	require.Len(t, hook.Entries, 1)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	require.ErrorIs(t, hook.LastEntry().Data[logrus.ErrorKey].(error), syncErr)

	require.NoError(t, d.Close())
	require.Equal(t, 1, stub.Closed)
}

func TestCloseFlushesOnce(t *testing.T) {
	mem := memory.New(4096)
	d, err := device.Open("mem", device.WithStorage(mem), device.WithReadOnly(false))
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	require.Equal(t, 1, mem.Syncs())

	_, err = d.ReadAt(make([]byte, 1), 0)
	require.Equal(t, ioerr.KindIO, ioerr.KindOf(err))
	require.ErrorIs(t, err, os.ErrClosed)
}

func TestUseClosesOnError(t *testing.T) {
	mem := memory.New(4096)
	boom := errors.New("boom")
	err := device.Use("mem", func(d *device.Device) error {
		_, err := d.WriteAt([]byte("abc"), 0)
		require.NoError(t, err)
		return boom
	}, device.WithStorage(mem), device.WithReadOnly(false))
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, mem.Syncs())

	_, err = mem.ReadAt(make([]byte, 1), 0)
	require.ErrorIs(t, err, os.ErrClosed)
}

func TestUseClosesOnPanic(t *testing.T) {
	mem := memory.New(4096)
	require.Panics(t, func() {
		_ = device.Use("mem", func(d *device.Device) error {
			panic("parser bug")
		}, device.WithStorage(mem), device.WithReadOnly(false))
	})
	require.Equal(t, 1, mem.Syncs())
}

func TestWindow(t *testing.T) {
	data := make([]byte, 8192)
	copy(data[1024:], "NTFS    ")
	mem := memory.FromBytes(data, false)
	d, err := device.Open("mem", device.WithStorage(mem), device.WithWindow(1024, 4096), device.WithReadOnly(false))
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, int64(4096), d.Size())
	b, err := d.ReadBytes(0, 8)
	require.NoError(t, err)
	require.Equal(t, []byte("NTFS    "), b)

	_, err = d.WriteAt([]byte{0xFF}, 4095)
	require.NoError(t, err)
	require.Equal(t, byte(0xFF), mem.Bytes()[1024+4095])

	_, err = d.ReadAt(make([]byte, 1), 4096)
	require.ErrorIs(t, err, ioerr.ErrOutOfBounds)
}

func TestMaxConcurrentWrites(t *testing.T) {
	mem := memory.New(4096)
	d, err := device.Open("mem", device.WithStorage(mem), device.WithReadOnly(false), device.WithMaxConcurrentWrites(1))
	require.NoError(t, err)
	defer d.Close()

	_, err = d.WriteAt([]byte("hello"), 10)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), mem.Bytes()[10:15])

	_, err = device.Open("mem", device.WithStorage(memory.New(1)), device.WithMaxConcurrentWrites(0))
	require.Error(t, err)
}

func TestReadAtIsReaderAt(t *testing.T) {
	mem := memory.FromBytes([]byte("0123456789"), true)
	d, err := device.Open("mem", device.WithStorage(mem))
	require.NoError(t, err)
	defer d.Close()

	var r io.ReaderAt = d
	b := make([]byte, 4)
	n, err := r.ReadAt(b, 6)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "6789", string(b))
}
