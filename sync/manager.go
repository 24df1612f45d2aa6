package sync

import (
	"time"

	"github.com/smntfs/go-smntfs/clock"
)

// Manager tracks the durability obligations of one device handle: how many
// writes were accepted since the last sync, and when that sync happened.
//
// A Manager is a plain value with no locking of its own.
type Manager struct {
	policy        Policy
	clock         clock.Clock
	lastSync      time.Time
	synced        bool
	pendingWrites int
}

// NewManager creates a Manager for policy that measures time with the system clock
func NewManager(policy Policy) *Manager {
	return NewManagerWithClock(policy, clock.SystemClock)
}

func NewManagerWithClock(policy Policy, c clock.Clock) *Manager {
	return &Manager{
		policy: policy,
		clock:  c,
	}
}

func (m *Manager) Policy() Policy {
	return m.policy
}

// RecordWrite accounts for one logical write. Callers wanting coarser
// accounting call it once per batch.
func (m *Manager) RecordWrite() {
	m.pendingWrites++
}

// NeedsSync reports whether the policy requires a sync now. It does not
// change any state.
func (m *Manager) NeedsSync() bool {
	switch m.policy.Mode {
	case Immediate:
		return m.pendingWrites > 0
	case Periodic:
		if m.pendingWrites == 0 {
			return false
		}
		if !m.synced {
			return true
		}
		return m.clock.Now().Sub(m.lastSync) >= m.policy.Interval
	default:
		return false
	}
}

// MarkSynced records that a flush completed successfully. It is the only way
// pending writes are acknowledged as durable.
func (m *Manager) MarkSynced() {
	m.lastSync = m.clock.Now()
	m.synced = true
	m.pendingWrites = 0
}

// PendingWrites returns the number of writes recorded since the last sync or reset
func (m *Manager) PendingWrites() int {
	return m.pendingWrites
}

// LastSync returns the time of the last MarkSynced; ok is false before the first one
func (m *Manager) LastSync() (t time.Time, ok bool) {
	return m.lastSync, m.synced
}

// Reset drops the pending count without recording a sync. It must not be
// used to claim data became durable.
func (m *Manager) Reset() {
	m.pendingWrites = 0
}
