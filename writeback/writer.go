// Package writeback composes a Device with a coalescing buffer and a sync
// manager, and runs the background loop that keeps the device durable.
package writeback

import (
	"context"
	"os"
	stdsync "sync"

	"github.com/sirupsen/logrus"

	"github.com/smntfs/go-smntfs/clock"
	"github.com/smntfs/go-smntfs/config"
	"github.com/smntfs/go-smntfs/device"
	"github.com/smntfs/go-smntfs/iobuf"
	"github.com/smntfs/go-smntfs/ioerr"
	smsync "github.com/smntfs/go-smntfs/sync"
	"github.com/smntfs/go-smntfs/util"
)

// Writer is the write path of a mounted volume. Writes are staged in a
// buffer while they are contiguous, released to the device when they are
// not, and flushed as the sync policy demands.
//
// Unlike the types it is built from, a Writer is safe for concurrent use,
// since Run flushes from its own goroutine. After Close every operation
// fails with os.ErrClosed and Run stops touching the device.
type Writer struct {
	mu      stdsync.Mutex
	closed  bool
	dev     *device.Device
	buf     *iobuf.Buffer
	manager *smsync.Manager
	clock   clock.Clock
	logger  logrus.FieldLogger
}

type options struct {
	buf    *iobuf.Buffer
	policy smsync.Policy
	clock  clock.Clock
	logger logrus.FieldLogger
}

// Option configures a Writer
type Option func(o *options)

// WithBuffer enables write coalescing through buf
func WithBuffer(buf *iobuf.Buffer) Option {
	return func(o *options) {
		o.buf = buf
	}
}

// WithPolicy sets the sync policy; the default is sync.DefaultPolicy()
func WithPolicy(p smsync.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a Writer that owns dev
func New(dev *device.Device, opts ...Option) *Writer {
	o := options{
		policy: smsync.DefaultPolicy(),
		clock:  clock.SystemClock,
		logger: util.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.buf != nil {
		o.buf.Clear()
	}
	return &Writer{
		dev:     dev,
		buf:     o.buf,
		manager: smsync.NewManagerWithClock(o.policy, o.clock),
		clock:   o.clock,
		logger:  o.logger.WithField("device", dev.Path()),
	}
}

// FromConfig creates a Writer with the buffer and policy described by cfg
func FromConfig(dev *device.Device, cfg *config.Config, opts ...Option) (*Writer, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	all := []Option{WithPolicy(policy)}
	if cfg.EnableWriteCoalescing && cfg.WriteBufferBytes() > 0 {
		all = append(all, WithBuffer(iobuf.New(cfg.WriteBufferBytes())))
	}
	return New(dev, append(all, opts...)...), nil
}

// WriteAt accepts p for offset off. With coalescing enabled the bytes may
// only reach the device on a later release; they are visible to ReadAt
// immediately either way.
func (w *Writer) WriteAt(p []byte, off int64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, w.errClosed("write")
	}
	if w.dev.ReadOnly() {
		return 0, ioerr.Wrap(ioerr.KindPermissionDenied, "write", ioerr.ErrReadOnly).WithPath(w.dev.Path())
	}
	size := w.dev.Size()
	if off < 0 || off >= size || int64(len(p)) > size-off {
		return 0, ioerr.Wrap(ioerr.KindWrite, "write", ioerr.ErrOutOfBounds).WithPath(w.dev.Path()).WithOffset(off, size).WithLength(len(p), 0)
	}
	if len(p) == 0 {
		return 0, nil
	}

	if w.buf != nil && len(p) <= w.buf.Cap() {
		contiguous := !w.buf.IsEmpty() && w.buf.Offset()+int64(w.buf.Len()) == off
		if !contiguous || len(p) > w.buf.Available() {
			if err := w.release(); err != nil {
				return 0, err
			}
		}
		if w.buf.IsEmpty() {
			w.buf.SetOffset(off)
		}
		if _, err := w.buf.Write(p); err != nil {
			return 0, err
		}
	} else {
		if err := w.release(); err != nil {
			return 0, err
		}
		if _, err := w.dev.WriteAt(p, off); err != nil {
			return 0, err
		}
	}

	w.manager.RecordWrite()
	if w.manager.NeedsSync() {
		if err := w.sync(); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// ReadAt reads through to the device after releasing staged writes
func (w *Writer) ReadAt(p []byte, off int64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, w.errClosed("read")
	}
	if err := w.release(); err != nil {
		return 0, err
	}
	return w.dev.ReadAt(p, off)
}

// Sync releases staged writes and flushes the device
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.errClosed("sync")
	}
	return w.sync()
}

// periodicSync is the flush Run schedules. It is a no-op once the writer is
// closed, so a loop that outlives Close stays quiet.
func (w *Writer) periodicSync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.sync()
}

func (w *Writer) errClosed(op string) error {
	return ioerr.Wrap(ioerr.KindIO, op, os.ErrClosed).WithPath(w.dev.Path())
}

func (w *Writer) sync() error {
	if w.dev.ReadOnly() {
		return nil
	}
	if err := w.release(); err != nil {
		return err
	}
	if err := w.dev.Flush(); err != nil {
		return err
	}
	w.manager.MarkSynced()
	return nil
}

// release writes the staged bytes to the device. On failure they stay
// staged so that a later Sync can retry.
func (w *Writer) release() error {
	if w.buf == nil || w.buf.IsEmpty() {
		return nil
	}
	off, n := w.buf.Offset(), w.buf.Len()
	if _, err := w.dev.WriteAt(w.buf.Bytes(), off); err != nil {
		return err
	}
	w.buf.Clear()
	w.logger.WithFields(logrus.Fields{
		"offset": off,
		"bytes":  n,
	}).Debug("Released coalesced writes")
	return nil
}

// PendingWrites returns how many writes were accepted since the last sync
func (w *Writer) PendingWrites() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.manager.PendingWrites()
}

// Run keeps the device durable until ctx is cancelled. With a periodic
// policy it syncs every interval; other policies sync from WriteAt or not
// at all, so Run only waits. It always returns ctx.Err().
func (w *Writer) Run(ctx context.Context) error {
	policy := w.manager.Policy()
	if policy.Mode != smsync.Periodic {
		<-ctx.Done()
		return ctx.Err()
	}
	return smsync.RunPeriodic(ctx, policy.Interval, w.periodicSync,
		smsync.WithLogger(w.logger),
		smsync.WithClock(w.clock))
}

// Close syncs and closes the device. Unlike Device.Close it reports a failed
// sync, because staged bytes that never reached the device are lost.
// Closing a closed Writer does nothing.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.sync()
	if err != nil {
		w.logger.WithError(err).Warn("Failed to sync on close")
	}
	if cerr := w.dev.Close(); err == nil {
		err = cerr
	}
	return err
}
