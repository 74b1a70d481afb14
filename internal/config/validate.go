package config

import "fmt"

// Timeout bounds in milliseconds, shared by both entry deadlines.
const (
	MinTimeoutMs = 1000
	MaxTimeoutMs = 60000
)

// Validate checks field ranges. It returns the first problem found.
func (c Config) Validate() error {
	if c.CodesFile == "" {
		return fmt.Errorf("codes_file must be set")
	}
	if err := timeoutInRange("inter_digit_timeout_ms", c.InterDigitTimeoutMs); err != nil {
		return err
	}
	if err := timeoutInRange("entry_timeout_ms", c.EntryTimeoutMs); err != nil {
		return err
	}
	if c.TickMs <= 0 {
		return fmt.Errorf("tick_ms must be positive, got %d", c.TickMs)
	}
	if c.HeartbeatMs < 0 {
		return fmt.Errorf("heartbeat_ms must be >= 0, got %d", c.HeartbeatMs)
	}
	if c.Audio.ChunkSamples <= 0 {
		return fmt.Errorf("audio.chunk_samples must be positive, got %d", c.Audio.ChunkSamples)
	}
	if len(c.Relays.Pins) > 0 && c.Relays.PulseMs <= 0 {
		return fmt.Errorf("relays.pulse_ms must be positive, got %d", c.Relays.PulseMs)
	}
	for label, pin := range c.Relays.Pins {
		if label == "" {
			return fmt.Errorf("relays.pins: empty label")
		}
		if pin < 0 {
			return fmt.Errorf("relays.pins[%s]: negative pin %d", label, pin)
		}
	}
	return nil
}

func timeoutInRange(name string, ms int) error {
	if ms < MinTimeoutMs || ms > MaxTimeoutMs {
		return fmt.Errorf("%s must be in [%d, %d], got %d", name, MinTimeoutMs, MaxTimeoutMs, ms)
	}
	return nil
}
