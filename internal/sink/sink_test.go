package sink

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/dtmf-gate/internal/entry"
)

func TestFormatPayloadValid(t *testing.T) {
	out := entry.Outcome{
		Timestamp: time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		Code:      "1234",
		Label:     "open_door",
		Valid:     true,
	}

	data, err := FormatPayload(out)
	if err != nil {
		t.Fatalf("FormatPayload returned error: %v", err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Pin != "1234" {
		t.Errorf("pin: got %q, want 1234", p.Pin)
	}
	if p.Function != "open_door" {
		t.Errorf("function: got %q, want open_door", p.Function)
	}
	if !p.Valid {
		t.Error("valid: got false, want true")
	}
	if p.Timestamp != "2026-03-15T10:30:00Z" {
		t.Errorf("timestamp: got %q", p.Timestamp)
	}
}

func TestFormatPayloadInvalid(t *testing.T) {
	out := entry.Outcome{
		Timestamp: time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		Code:      "12",
		Valid:     false,
	}

	data, err := FormatPayload(out)
	if err != nil {
		t.Fatalf("FormatPayload returned error: %v", err)
	}

	// The function field must be present and empty for a rejection.
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	fn, ok := raw["function"]
	if !ok {
		t.Fatal("function field missing")
	}
	if fn != "" {
		t.Errorf("function: got %v, want empty string", fn)
	}
	if raw["valid"] != false {
		t.Errorf("valid: got %v, want false", raw["valid"])
	}
	if raw["pin"] != "12" {
		t.Errorf("pin: got %v, want 12", raw["pin"])
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
		Session:   "abc-123",
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("FormatSystemPayload returned error: %v", err)
	}

	var p SystemPayload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.System.Event != "SHUTDOWN" {
		t.Errorf("event: got %q, want SHUTDOWN", p.System.Event)
	}
	if p.System.Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", p.System.Reason)
	}
	if p.System.Session != "abc-123" {
		t.Errorf("session: got %q, want abc-123", p.System.Session)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	event := SystemEvent{Event: "STARTUP", RawPayload: raw}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("FormatSystemPayload returned error: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("raw payload not returned directly: got %s", data)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()
	out := entry.Outcome{Code: "1234", Label: "open_door", Valid: true}

	if err := f.Publish(out); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(f.Outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(f.Outcomes))
	}
	if f.Outcomes[0].Code != "1234" {
		t.Errorf("code: got %q", f.Outcomes[0].Code)
	}
	if len(f.Payloads) != 1 {
		t.Errorf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")

	if err := f.Publish(entry.Outcome{Code: "1"}); err == nil {
		t.Fatal("expected error")
	}
	if len(f.Outcomes) != 0 {
		t.Errorf("failed publish must not record, got %d outcomes", len(f.Outcomes))
	}
}
