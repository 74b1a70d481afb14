package entry

import (
	"log"
	"time"

	"github.com/sweeney/dtmf-gate/internal/pincode"
)

// Machine accumulates DTMF symbols into a candidate code and resolves each
// digit against the code table and the two timing deadlines.
//
// Not safe for concurrent use. The owning loop must serialize OnDigit,
// OnTimeoutCheck, and resets so a digit racing a timeout is linearized one
// way or the other.
type Machine struct {
	table *pincode.Table

	interDigitTimeout time.Duration
	entryTimeout      time.Duration

	buf []byte

	// lastActivity moves on every accepted digit and on reset.
	// entryStart moves only when the buffer goes empty -> non-empty,
	// and on reset.
	lastActivity time.Time
	entryStart   time.Time

	counts Counts
}

// NewMachine creates a machine with both deadlines anchored at startTime.
func NewMachine(table *pincode.Table, interDigit, entryTimeout time.Duration, startTime time.Time) *Machine {
	return &Machine{
		table:             table,
		interDigitTimeout: interDigit,
		entryTimeout:      entryTimeout,
		buf:               make([]byte, 0, BufferSize),
		lastActivity:      startTime,
		entryStart:        startTime,
	}
}

// SetTable swaps in a replacement code table. The old table is untouched;
// in-progress entries continue against the new table on the next digit.
func (m *Machine) SetTable(table *pincode.Table) {
	m.table = table
}

// OnDigit accepts one symbol and returns the resulting decision, or nil
// when the digit only triggered an overflow reset. Symbols outside the DTMF
// alphabet are appended like any other; the detector is trusted.
func (m *Machine) OnDigit(sym byte, now time.Time) *Outcome {
	m.lastActivity = now
	if len(m.buf) == 0 {
		m.entryStart = now
	}

	if len(m.buf) >= BufferSize-1 {
		log.Printf("entry: buffer full (%d digits), resetting", len(m.buf))
		m.counts.Overflows++
		m.Reset(now)
		return nil
	}

	m.buf = append(m.buf, sym)
	code := string(m.buf)

	if label, ok := m.table.Match(code); ok {
		m.counts.Valid++
		m.Reset(now)
		return &Outcome{Timestamp: now, Code: code, Label: label, Valid: true}
	}

	// Every non-matching digit is reported; the buffer keeps accumulating.
	m.counts.Invalid++
	return &Outcome{Timestamp: now, Code: code, Valid: false}
}

// OnTimeoutCheck evaluates both deadlines against now. The inter-digit
// timeout on a non-empty buffer reports the abandoned partial as invalid;
// the entry timeout resets silently and is checked even while idle (a stale
// start time causes a harmless re-anchor on an empty buffer).
func (m *Machine) OnTimeoutCheck(now time.Time) *Outcome {
	var out *Outcome

	if len(m.buf) > 0 && now.Sub(m.lastActivity) >= m.interDigitTimeout {
		code := string(m.buf)
		log.Printf("entry: inter-digit timeout, abandoning %d digits", len(m.buf))
		m.counts.InterDigit++
		m.counts.Invalid++
		out = &Outcome{Timestamp: now, Code: code, Valid: false}
		m.Reset(now)
	}

	if now.Sub(m.entryStart) >= m.entryTimeout {
		// Counted only when digits are abandoned; the idle-state fire is
		// a bare re-anchor.
		if len(m.buf) > 0 {
			log.Printf("entry: entry timeout, abandoning %d digits", len(m.buf))
			m.counts.EntryTimeout++
		}
		m.Reset(now)
	}

	return out
}

// OnDiscontinuity performs the unconditional reset demanded by a break in
// the audio stream. The caller is responsible for reinitializing the tone
// detector alongside.
func (m *Machine) OnDiscontinuity(now time.Time) {
	m.counts.Discontinuities++
	m.Reset(now)
}

// Reset clears the buffer and re-anchors both deadlines at now. Idempotent.
func (m *Machine) Reset(now time.Time) {
	m.buf = m.buf[:0]
	m.lastActivity = now
	m.entryStart = now
}

// State reports whether an entry is in progress.
func (m *Machine) State() State {
	if len(m.buf) == 0 {
		return StateIdle
	}
	return StateAccumulating
}

// BufferLen returns the number of accumulated digits. The digits themselves
// are not exposed outside decision outcomes.
func (m *Machine) BufferLen() int {
	return len(m.buf)
}

// TableLen returns the size of the active code table.
func (m *Machine) TableLen() int {
	return m.table.Len()
}

// CountsSnapshot returns a copy of the decision counters.
func (m *Machine) CountsSnapshot() Counts {
	return m.counts
}
