// Package sync decides when writes accepted by a device have to be committed
// to stable storage, and runs the background loop that commits them
// periodically.
//
// This package does not replace the standard library's sync package; it is
// named after the operation it paces. Importers that need both usually alias
// one of them.
package sync

import (
	"fmt"
	"strings"
	"time"
)

// DefaultInterval is the interval of DefaultPolicy
const DefaultInterval = 5 * time.Second

// Mode selects how a Policy paces syncs
type Mode int

const (
	// Immediate syncs after every write
	Immediate Mode = iota
	// Periodic syncs at most once per interval while writes are pending
	Periodic
	// Manual never asks for a sync; the caller flushes on its own
	Manual
)

func (m Mode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	case Periodic:
		return "periodic"
	case Manual:
		return "manual"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Policy is a sync pacing policy. Interval is only used by Periodic.
type Policy struct {
	Mode     Mode
	Interval time.Duration
}

func ImmediatePolicy() Policy {
	return Policy{Mode: Immediate}
}

func PeriodicPolicy(interval time.Duration) Policy {
	return Policy{Mode: Periodic, Interval: interval}
}

func ManualPolicy() Policy {
	return Policy{Mode: Manual}
}

// DefaultPolicy syncs periodically every DefaultInterval
func DefaultPolicy() Policy {
	return PeriodicPolicy(DefaultInterval)
}

// ParsePolicy builds a Policy from its textual mode. interval is required for
// "periodic" and ignored otherwise.
func ParsePolicy(mode string, interval time.Duration) (Policy, error) {
	switch strings.ToLower(mode) {
	case "immediate":
		return ImmediatePolicy(), nil
	case "manual":
		return ManualPolicy(), nil
	case "periodic", "":
		if interval <= 0 {
			return Policy{}, fmt.Errorf("periodic sync policy needs a positive interval, got %s", interval)
		}
		return PeriodicPolicy(interval), nil
	default:
		return Policy{}, fmt.Errorf("unknown sync policy %q", mode)
	}
}

func (p Policy) String() string {
	if p.Mode == Periodic {
		return fmt.Sprintf("periodic(%s)", p.Interval)
	}
	return p.Mode.String()
}
