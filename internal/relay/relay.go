// Package relay drives GPIO relay outputs for matched codes, with hardware
// abstraction. The real implementation uses the Linux GPIO character
// device. The fake implementation allows testing without hardware.
//
// A code table label that appears in the relay map actuates the mapped line
// for the configured pulse duration; labels without a mapping are
// publish-only.
package relay

// Actuator pulses relay outputs by label.
type Actuator interface {
	// Pulse actuates the relay mapped to label, if any. Unmapped labels
	// are a no-op. Returns error if the hardware write fails (should not
	// crash the process).
	Pulse(label string) error

	// Close releases GPIO resources, leaving all lines inactive.
	Close() error
}

// Nop is an Actuator with no hardware attached.
type Nop struct{}

// Pulse does nothing.
func (Nop) Pulse(string) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
