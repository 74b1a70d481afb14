package entry

import (
	"strings"
	"testing"
	"time"

	"github.com/sweeney/dtmf-gate/internal/pincode"
)

const (
	testInterDigit = 3 * time.Second
	testEntry      = 10 * time.Second
)

func newTestMachine(t *testing.T, tableSrc string, start time.Time) *Machine {
	t.Helper()
	table, err := pincode.Load(strings.NewReader(tableSrc))
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	return NewMachine(table, testInterDigit, testEntry, start)
}

func feed(t *testing.T, m *Machine, code string, start time.Time, step time.Duration) []Outcome {
	t.Helper()
	var outs []Outcome
	for i := 0; i < len(code); i++ {
		if out := m.OnDigit(code[i], start.Add(time.Duration(i)*step)); out != nil {
			outs = append(outs, *out)
		}
	}
	return outs
}

func TestFullMatch(t *testing.T) {
	// Scenario: table has 1234=open_door; feeding 1,2,3,4 yields exactly
	// one valid outcome and leaves the buffer empty.
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1234=open_door\n", start)

	outs := feed(t, m, "1234", start, 100*time.Millisecond)
	if len(outs) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(outs))
	}

	// First three digits are reported invalid as the buffer accumulates.
	wantPartial := []string{"1", "12", "123"}
	for i, want := range wantPartial {
		if outs[i].Valid {
			t.Errorf("outcome %d: expected invalid, got valid", i)
		}
		if outs[i].Code != want {
			t.Errorf("outcome %d: code got %q, want %q", i, outs[i].Code, want)
		}
		if outs[i].Label != "" {
			t.Errorf("outcome %d: label got %q, want empty", i, outs[i].Label)
		}
	}

	last := outs[3]
	if !last.Valid {
		t.Error("final outcome: expected valid")
	}
	if last.Code != "1234" {
		t.Errorf("final outcome: code got %q, want 1234", last.Code)
	}
	if last.Label != "open_door" {
		t.Errorf("final outcome: label got %q, want open_door", last.Label)
	}

	if m.State() != StateIdle {
		t.Errorf("state after match: got %s, want IDLE", m.State())
	}
	if m.BufferLen() != 0 {
		t.Errorf("buffer after match: got %d digits, want 0", m.BufferLen())
	}
}

func TestEveryNonMatchingDigitReported(t *testing.T) {
	// Scenario: table 9999=x; feeding 1,1,1,1 yields four invalid
	// outcomes for the growing buffer.
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "9999=x\n", start)

	outs := feed(t, m, "1111", start, 100*time.Millisecond)
	if len(outs) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(outs))
	}
	want := []string{"1", "11", "111", "1111"}
	for i, w := range want {
		if outs[i].Valid {
			t.Errorf("outcome %d: expected invalid", i)
		}
		if outs[i].Code != w {
			t.Errorf("outcome %d: code got %q, want %q", i, outs[i].Code, w)
		}
	}
	if m.State() != StateAccumulating {
		t.Errorf("state: got %s, want ACCUMULATING", m.State())
	}
}

func TestNoValidOutcomeForStrictPrefix(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1234=open_door\n", start)

	outs := feed(t, m, "123", start, 100*time.Millisecond)
	for i, out := range outs {
		if out.Valid {
			t.Errorf("outcome %d (%q): strict prefix must not match", i, out.Code)
		}
	}
}

func TestFirstMatchWinsOnDuplicateCodes(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "55=first\n55=second\n", start)

	outs := feed(t, m, "55", start, 100*time.Millisecond)
	last := outs[len(outs)-1]
	if !last.Valid {
		t.Fatal("expected valid outcome")
	}
	if last.Label != "first" {
		t.Errorf("label: got %q, want %q (earlier entry wins)", last.Label, "first")
	}
}

func TestInterDigitTimeout(t *testing.T) {
	// Scenario: feed 1,2, wait past the inter-digit timeout, then 3,4.
	// The timeout reports the abandoned partial; the later digits start
	// over with no credit for the prior prefix.
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1234=open_door\n", start)

	m.OnDigit('1', start)
	m.OnDigit('2', start.Add(100*time.Millisecond))

	checkAt := start.Add(100*time.Millisecond + 3500*time.Millisecond)
	out := m.OnTimeoutCheck(checkAt)
	if out == nil {
		t.Fatal("expected timeout outcome")
	}
	if out.Valid {
		t.Error("timeout outcome must be invalid")
	}
	if out.Code != "12" {
		t.Errorf("timeout outcome code: got %q, want 12", out.Code)
	}
	if m.BufferLen() != 0 {
		t.Errorf("buffer after timeout: got %d digits, want 0", m.BufferLen())
	}

	o3 := m.OnDigit('3', checkAt.Add(100*time.Millisecond))
	o4 := m.OnDigit('4', checkAt.Add(200*time.Millisecond))
	if o3 == nil || o3.Code != "3" || o3.Valid {
		t.Errorf("digit after timeout: got %+v, want invalid code 3", o3)
	}
	if o4 == nil || o4.Code != "34" || o4.Valid {
		t.Errorf("digit after timeout: got %+v, want invalid code 34", o4)
	}
}

func TestTimeoutMonotonicity(t *testing.T) {
	// One timeout report per abandoned entry: the next check with no new
	// activity publishes nothing.
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1234=open_door\n", start)

	m.OnDigit('1', start)

	first := m.OnTimeoutCheck(start.Add(testInterDigit))
	if first == nil {
		t.Fatal("expected timeout outcome on first check")
	}
	second := m.OnTimeoutCheck(start.Add(testInterDigit + 100*time.Millisecond))
	if second != nil {
		t.Errorf("expected no outcome on second check, got %+v", second)
	}
}

func TestTimeoutCheckBeforeDeadline(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1234=open_door\n", start)

	m.OnDigit('1', start)
	if out := m.OnTimeoutCheck(start.Add(testInterDigit - time.Millisecond)); out != nil {
		t.Errorf("expected no outcome before deadline, got %+v", out)
	}
	if m.BufferLen() != 1 {
		t.Errorf("buffer: got %d digits, want 1", m.BufferLen())
	}
}

func TestEntryTimeoutResetsSilently(t *testing.T) {
	// Slow entry that never trips the inter-digit timeout still hits the
	// entry timeout, which resets without an outcome.
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "9999=x\n", start)

	// One digit every 2.5s keeps inter-digit alive; total reaches 10s
	// with the buffer still non-empty.
	for i, d := range []byte("1234") {
		m.OnDigit(d, start.Add(time.Duration(i)*2500*time.Millisecond))
	}

	out := m.OnTimeoutCheck(start.Add(testEntry))
	if out != nil {
		t.Errorf("entry timeout must not publish an outcome, got %+v", out)
	}
	if m.BufferLen() != 0 {
		t.Errorf("buffer after entry timeout: got %d digits, want 0", m.BufferLen())
	}
	if m.CountsSnapshot().EntryTimeout != 1 {
		t.Errorf("entry timeout count: got %d, want 1", m.CountsSnapshot().EntryTimeout)
	}
}

func TestEntryTimeoutFiresWhileIdle(t *testing.T) {
	// The entry deadline is evaluated even with an empty buffer; the fire
	// is a harmless re-anchor.
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1234=open_door\n", start)

	if out := m.OnTimeoutCheck(start.Add(testEntry)); out != nil {
		t.Errorf("expected no outcome, got %+v", out)
	}
	if m.State() != StateIdle {
		t.Errorf("state: got %s, want IDLE", m.State())
	}
	if m.CountsSnapshot().EntryTimeout != 0 {
		t.Error("idle entry-timeout fire must not count as an abandonment")
	}
}

func TestInterDigitTimeoutWinsOverEntryTimeout(t *testing.T) {
	// When both deadlines have passed on one check, the inter-digit
	// report fires and its reset satisfies the entry check.
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1234=open_door\n", start)

	m.OnDigit('1', start)
	out := m.OnTimeoutCheck(start.Add(testEntry + time.Second))
	if out == nil || out.Code != "1" || out.Valid {
		t.Fatalf("expected invalid outcome for partial 1, got %+v", out)
	}
	counts := m.CountsSnapshot()
	if counts.InterDigit != 1 {
		t.Errorf("inter-digit count: got %d, want 1", counts.InterDigit)
	}
	if counts.EntryTimeout != 0 {
		t.Errorf("entry timeout count: got %d, want 0", counts.EntryTimeout)
	}
}

func TestOverflowResetsWithoutOutcome(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "9999=x\n", start)

	// Fill to capacity-1, all invalid reports.
	for i := 0; i < BufferSize-1; i++ {
		out := m.OnDigit('1', start.Add(time.Duration(i)*10*time.Millisecond))
		if out == nil || out.Valid {
			t.Fatalf("digit %d: expected invalid outcome", i)
		}
	}
	if m.BufferLen() != BufferSize-1 {
		t.Fatalf("buffer: got %d digits, want %d", m.BufferLen(), BufferSize-1)
	}

	// The next digit overflows: full reset, no outcome.
	out := m.OnDigit('1', start.Add(time.Second))
	if out != nil {
		t.Errorf("overflow must not publish an outcome, got %+v", out)
	}
	if m.BufferLen() != 0 {
		t.Errorf("buffer after overflow: got %d digits, want 0", m.BufferLen())
	}
	if m.CountsSnapshot().Overflows != 1 {
		t.Errorf("overflow count: got %d, want 1", m.CountsSnapshot().Overflows)
	}

	// Entry resumes normally afterwards.
	if out := m.OnDigit('2', start.Add(2*time.Second)); out == nil || out.Code != "2" {
		t.Errorf("digit after overflow: got %+v, want code 2", out)
	}
}

func TestOverflowSafetyLongStream(t *testing.T) {
	// Feeding well past capacity with no match never panics and alternates
	// through resets.
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "9999=x\n", start)

	for i := 0; i < BufferSize*3; i++ {
		m.OnDigit('5', start.Add(time.Duration(i)*10*time.Millisecond))
	}
	if m.CountsSnapshot().Valid != 0 {
		t.Error("no match should ever be published")
	}
	if m.CountsSnapshot().Overflows == 0 {
		t.Error("expected at least one overflow reset")
	}
}

func TestResetIdempotent(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1234=open_door\n", start)

	m.OnDigit('1', start)
	at := start.Add(time.Second)
	for i := 0; i < 5; i++ {
		m.Reset(at)
		if m.BufferLen() != 0 {
			t.Fatalf("reset %d: buffer not empty", i)
		}
		if m.State() != StateIdle {
			t.Fatalf("reset %d: state got %s, want IDLE", i, m.State())
		}
	}
	// Both deadlines re-anchored at the reset time: nothing fires until
	// a full period after it.
	if out := m.OnTimeoutCheck(at.Add(testEntry - time.Millisecond)); out != nil {
		t.Errorf("expected no outcome, got %+v", out)
	}
}

func TestDiscontinuityResets(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1234=open_door\n", start)

	m.OnDigit('1', start)
	m.OnDigit('2', start.Add(100*time.Millisecond))
	m.OnDiscontinuity(start.Add(200 * time.Millisecond))

	if m.BufferLen() != 0 {
		t.Errorf("buffer after discontinuity: got %d digits, want 0", m.BufferLen())
	}
	if m.CountsSnapshot().Discontinuities != 1 {
		t.Errorf("discontinuity count: got %d, want 1", m.CountsSnapshot().Discontinuities)
	}
	// No credit for digits before the break.
	out := m.OnDigit('3', start.Add(300*time.Millisecond))
	if out == nil || out.Code != "3" {
		t.Errorf("digit after discontinuity: got %+v, want code 3", out)
	}
}

func TestDigitExtendsDeadline(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1234=open_door\n", start)

	m.OnDigit('1', start)
	// A digit just before the deadline pushes it out.
	m.OnDigit('2', start.Add(testInterDigit-100*time.Millisecond))
	if out := m.OnTimeoutCheck(start.Add(testInterDigit)); out != nil {
		t.Errorf("deadline should have moved, got %+v", out)
	}
	if m.BufferLen() != 2 {
		t.Errorf("buffer: got %d digits, want 2", m.BufferLen())
	}
}

func TestSetTableSwapsAtomically(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1234=open_door\n", start)

	m.OnDigit('1', start)
	m.OnDigit('2', start.Add(100*time.Millisecond))

	next, err := pincode.Load(strings.NewReader("123=net_check\n"))
	if err != nil {
		t.Fatal(err)
	}
	m.SetTable(next)

	// In-progress buffer resolves against the new table.
	out := m.OnDigit('3', start.Add(200*time.Millisecond))
	if out == nil || !out.Valid || out.Label != "net_check" {
		t.Errorf("after swap: got %+v, want valid net_check", out)
	}
	if m.TableLen() != 1 {
		t.Errorf("table size: got %d, want 1", m.TableLen())
	}
}

func TestNonAlphabetSymbolAppended(t *testing.T) {
	// Out-of-alphabet characters from the detector are appended like any
	// other symbol, no special validation.
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(t, "1z=weird\n", start)

	m.OnDigit('1', start)
	out := m.OnDigit('z', start.Add(100*time.Millisecond))
	if out == nil || !out.Valid || out.Label != "weird" {
		t.Errorf("got %+v, want valid weird", out)
	}
}

func TestMatchAgainstEmptyTable(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMachine(nil, testInterDigit, testEntry, start)

	out := m.OnDigit('1', start)
	if out == nil || out.Valid {
		t.Errorf("got %+v, want invalid outcome", out)
	}
}
