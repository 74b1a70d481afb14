//go:build linux

package relay

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealActuator drives relays through the Linux GPIO character device.
type RealActuator struct {
	chip  *gpiocdev.Chip
	lines map[string]*gpiocdev.Line // label -> requested output line
	pulse time.Duration
}

// NewRealActuator requests the configured pins (BCM numbering) as outputs,
// initially inactive. pins maps code table labels to pin numbers.
func NewRealActuator(pins map[string]int, pulse time.Duration) (*RealActuator, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	a := &RealActuator{
		chip:  chip,
		lines: make(map[string]*gpiocdev.Line, len(pins)),
		pulse: pulse,
	}

	for label, pin := range pins {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("request relay pin %d for %q: %w", pin, label, err)
		}
		a.lines[label] = line
	}

	return a, nil
}

// Pulse drives the mapped line active, scheduling the release after the
// pulse duration. Unmapped labels are ignored.
func (a *RealActuator) Pulse(label string) error {
	line, ok := a.lines[label]
	if !ok {
		return nil
	}

	if err := line.SetValue(1); err != nil {
		return fmt.Errorf("set relay %q: %w", label, err)
	}
	log.Printf("relay: pulsing %q for %v", label, a.pulse)

	time.AfterFunc(a.pulse, func() {
		if err := line.SetValue(0); err != nil {
			log.Printf("relay: release %q: %v", label, err)
		}
	})
	return nil
}

// Close releases all lines after driving them inactive.
func (a *RealActuator) Close() error {
	var errs []error

	for label, line := range a.lines {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release %q: %w", label, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", label, err))
		}
	}
	if a.chip != nil {
		if err := a.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
