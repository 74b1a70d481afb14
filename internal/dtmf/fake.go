package dtmf

// FakeDetector is a test double that returns scripted symbols.
type FakeDetector struct {
	// Outputs contains per-Feed symbol batches. Each call to Feed
	// consumes the next batch; once exhausted, Feed returns nothing.
	Outputs [][]byte

	index int

	// FeedError, if set, will be returned by Feed.
	FeedError error

	// ReinitError, if set, will be returned by Reinitialize.
	ReinitError error

	// Reinits counts Reinitialize calls.
	Reinits int

	// Closed tracks if Close was called.
	Closed bool

	// Fed records the total number of samples fed.
	Fed int
}

// NewFakeDetector creates a FakeDetector with the given per-Feed outputs.
func NewFakeDetector(outputs ...[]byte) *FakeDetector {
	return &FakeDetector{Outputs: outputs}
}

// Feed returns the next scripted symbol batch.
func (f *FakeDetector) Feed(samples []int16) ([]byte, error) {
	if f.FeedError != nil {
		return nil, f.FeedError
	}
	f.Fed += len(samples)
	if f.index >= len(f.Outputs) {
		return nil, nil
	}
	out := f.Outputs[f.index]
	f.index++
	return out, nil
}

// Reinitialize counts the call and returns ReinitError if set.
func (f *FakeDetector) Reinitialize() error {
	if f.ReinitError != nil {
		return f.ReinitError
	}
	f.Reinits++
	return nil
}

// Close marks the detector as closed.
func (f *FakeDetector) Close() error {
	f.Closed = true
	return nil
}
