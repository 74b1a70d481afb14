// Package dtmf defines the tone-detector collaborator interface. The signal
// processing itself lives outside this daemon; the production implementation
// is glue around an external decoder process, and the fake scripts symbols
// for tests.
package dtmf

// Alphabet is the 16-symbol DTMF character set.
const Alphabet = "0123456789*#ABCD"

// IsSymbol reports whether c is one of the 16 DTMF symbols.
func IsSymbol(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'A' && c <= 'D':
		return true
	case c == '*' || c == '#':
		return true
	}
	return false
}

// Detector turns raw audio samples into recognized DTMF symbols.
type Detector interface {
	// Feed consumes S16 mono samples and returns any symbols recognized
	// so far. Symbols may be recognized across Feed boundaries.
	Feed(samples []int16) ([]byte, error)

	// Reinitialize discards the detector's internal signal history. Must
	// be called after a stream discontinuity; failure is fatal to the
	// session, which cannot proceed without a symbol source.
	Reinitialize() error

	// Close releases detector resources.
	Close() error
}
