package smntfs_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	smntfs "github.com/smntfs/go-smntfs"
	"github.com/smntfs/go-smntfs/config"
	"github.com/smntfs/go-smntfs/device"
	"github.com/smntfs/go-smntfs/ioerr"
)

const oneMB = 1024 * 1024

func TestCreate(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ntfs.img")

	d, err := smntfs.Create(p, oneMB)
	require.NoError(t, err)
	require.False(t, d.ReadOnly())
	require.Equal(t, int64(oneMB), d.Size())
	require.Equal(t, device.DeviceTypeFile, d.Type())

	_, err = d.WriteAt([]byte("NTFS    "), 3)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, []byte("NTFS    "), b[3:11])

	_, err = smntfs.Create(p, oneMB)
	require.Equal(t, ioerr.KindSystem, ioerr.KindOf(err))
	_, err = smntfs.Create(filepath.Join(t.TempDir(), "zero.img"), 0)
	require.Error(t, err)
}

func TestOpenIsReadOnly(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ntfs.img")
	d, err := smntfs.Create(p, oneMB)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = smntfs.Open(p)
	require.NoError(t, err)
	defer d.Close()
	_, err = d.WriteAt([]byte{1}, 0)
	require.Equal(t, ioerr.KindPermissionDenied, ioerr.KindOf(err))
}

func TestOpenVolume(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ntfs.img")
	d, err := smntfs.Create(p, oneMB)
	require.NoError(t, err)
	pattern := bytes.Repeat([]byte("MFT0"), 1024)
	_, err = d.WriteAt(pattern, 16*4096)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	v, err := smntfs.OpenVolume(p, nil)
	require.NoError(t, err)
	defer v.Close()
	require.True(t, v.Device().ReadOnly())

	_, err = v.Seek(16*4096, io.SeekStart)
	require.NoError(t, err)
	got := make([]byte, len(pattern))
	_, err = io.ReadFull(v, got)
	require.NoError(t, err)
	require.Equal(t, pattern, got)
}

func TestOpenWriter(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ntfs.img")
	d, err := smntfs.Create(p, oneMB)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	cfg := config.Default()
	cfg.WriteBufferSizeMB = 1
	cfg.SyncPolicy = config.SyncPolicy{Mode: "manual"}
	w, err := smntfs.OpenWriter(p, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, w.Run(ctx), context.Canceled)

	_, err = w.WriteAt([]byte("FILE0"), 1024)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, []byte("FILE0"), b[1024:1029])

	_, err = smntfs.OpenWriter(filepath.Join(t.TempDir(), "missing.img"), cfg)
	require.Equal(t, ioerr.KindDeviceNotFound, ioerr.KindOf(err))
}
