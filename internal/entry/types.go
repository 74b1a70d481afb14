// Package entry contains the PIN entry state machine.
// This package has NO external dependencies (no MQTT, GPIO, OS, or
// time.Sleep). Time is always injectable via time.Time parameters; the
// caller owns the machine and must serialize digit, tick, and reset events.
package entry

import "time"

// BufferSize is the capacity of the digit buffer. It is deliberately larger
// than any valid code so runaway input is detected rather than silently
// truncated. One slot is reserved, so at most BufferSize-1 digits accumulate.
const BufferSize = 64

// State names the two phases of an entry attempt.
type State string

const (
	StateIdle         State = "IDLE"
	StateAccumulating State = "ACCUMULATING"
)

// Outcome is one access-control decision: a completed match, a rejected
// partial, or an abandoned entry reported at inter-digit timeout.
type Outcome struct {
	Timestamp time.Time
	Code      string
	Label     string // empty when Valid is false
	Valid     bool
}

// Counts tracks decisions and resets since startup.
type Counts struct {
	Valid           int
	Invalid         int
	InterDigit      int // inter-digit timeouts on a non-empty buffer
	EntryTimeout    int
	Overflows       int
	Discontinuities int
}
