// Package status provides a thread-safe status tracker for the dtmf-gate
// daemon. It is the only state shared across goroutines: the run loop
// writes it, HTTP handlers read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dtmf-gate/internal/entry"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs       int64
	InterDigitMs int64
	EntryMs      int64
	HeartbeatMs  int64
	Broker       string
	HTTPAddr     string
	CodesFile    string
	PassThrough  bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Session       string
	State         entry.State
	BufferLen     int
	TableSize     int
	Counts        entry.Counts
	Reloads       int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given session id, start time, and
// config.
func NewTracker(session string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Session:   session,
			State:     entry.StateIdle,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets machine state, buffered digit count, table size, and decision
// counters. Called from the run loop on every tick.
func (t *Tracker) Update(state entry.State, bufferLen, tableSize int, counts entry.Counts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.BufferLen = bufferLen
	t.snap.TableSize = tableSize
	t.snap.Counts = counts
	t.mu.Unlock()
}

// AddReload counts a code table reload.
func (t *Tracker) AddReload() {
	t.mu.Lock()
	t.snap.Reloads++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
