//go:build !linux

package relay

import (
	"errors"
	"time"
)

// RealActuator is not available on non-Linux platforms.
type RealActuator struct{}

// NewRealActuator returns an error on non-Linux platforms.
func NewRealActuator(pins map[string]int, pulse time.Duration) (*RealActuator, error) {
	return nil, errors.New("relay: not supported on this platform (requires Linux)")
}

// Pulse is not implemented on non-Linux platforms.
func (a *RealActuator) Pulse(label string) error {
	return errors.New("relay: not supported")
}

// Close is not implemented on non-Linux platforms.
func (a *RealActuator) Close() error {
	return nil
}
