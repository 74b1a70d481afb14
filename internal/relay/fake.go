package relay

// FakeActuator records pulses for test assertions.
type FakeActuator struct {
	// Labels contains the configured relay labels. Pulses for other
	// labels are recorded in Ignored.
	Labels map[string]bool

	// Pulses contains the labels pulsed, in order.
	Pulses []string

	// Ignored contains pulsed labels with no relay mapping.
	Ignored []string

	// PulseError, if set, will be returned by Pulse for mapped labels.
	PulseError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeActuator creates a FakeActuator that accepts the given labels.
func NewFakeActuator(labels ...string) *FakeActuator {
	m := make(map[string]bool, len(labels))
	for _, l := range labels {
		m[l] = true
	}
	return &FakeActuator{Labels: m}
}

// Pulse records the pulse.
func (f *FakeActuator) Pulse(label string) error {
	if !f.Labels[label] {
		f.Ignored = append(f.Ignored, label)
		return nil
	}
	if f.PulseError != nil {
		return f.PulseError
	}
	f.Pulses = append(f.Pulses, label)
	return nil
}

// Close marks the actuator as closed.
func (f *FakeActuator) Close() error {
	f.Closed = true
	return nil
}
