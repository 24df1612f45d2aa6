package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/smntfs/go-smntfs/clock"
	"github.com/smntfs/go-smntfs/util"
)

var (
	periodicSyncsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smntfs",
			Subsystem: "sync",
			Name:      "periodic_syncs_total",
			Help:      "Total number of flushes attempted by periodic sync loops.",
		})
	periodicSyncFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smntfs",
			Subsystem: "sync",
			Name:      "periodic_sync_failures_total",
			Help:      "Total number of flushes by periodic sync loops that failed.",
		})
)

func init() {
	prometheus.MustRegister(periodicSyncsTotal)
	prometheus.MustRegister(periodicSyncFailuresTotal)
}

type loopOptions struct {
	logger logrus.FieldLogger
	clock  clock.Clock
}

// LoopOption configures RunPeriodic
type LoopOption func(*loopOptions)

// WithLogger sets where failed flushes are reported
func WithLogger(l logrus.FieldLogger) LoopOption {
	return func(o *loopOptions) {
		o.logger = l
	}
}

// WithClock sets the clock the loop sleeps on
func WithClock(c clock.Clock) LoopOption {
	return func(o *loopOptions) {
		o.clock = c
	}
}

// RunPeriodic sleeps for interval, calls flush, and repeats. A failing flush
// is logged and the loop carries on; one bad sync must not stop later ones.
//
// The loop has no exit of its own. It returns ctx.Err() once the caller
// cancels ctx, which is the only way to stop it.
func RunPeriodic(ctx context.Context, interval time.Duration, flush func() error, opts ...LoopOption) error {
	if interval <= 0 {
		return fmt.Errorf("periodic sync needs a positive interval, got %s", interval)
	}
	o := loopOptions{
		logger: util.DiscardLogger(),
		clock:  clock.SystemClock,
	}
	for _, opt := range opts {
		opt(&o)
	}

	for {
		timer, tick := o.clock.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-tick:
		}

		periodicSyncsTotal.Inc()
		if err := flush(); err != nil {
			periodicSyncFailuresTotal.Inc()
			o.logger.WithError(err).WithField("interval", interval).Warn("Periodic sync failed")
		}
	}
}
