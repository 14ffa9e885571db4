package ym2149

import (
	"github.com/pkg/errors"
	"github.com/sema/ymbus/pkg/hal"
)

// Wiring maps the chip's bus signals to microcontroller pins. It is fixed
// at build time, see wiring.gen.go.
type Wiring struct {
	// Data holds DA0 (index 0) to DA7
	Data [8]hal.PinID

	// Clock is the pin the timer drives the chip's CLOCK input with. It
	// must be the timer's compare output pin.
	Clock hal.PinID

	// BC1 carries bit 0 of the control-line mode
	BC1 hal.PinID

	// BDIR carries bit 1 of the control-line mode
	BDIR hal.PinID
}

// Pins returns every pin in the wiring, data pins first
func (w Wiring) Pins() []hal.PinID {
	pins := make([]hal.PinID, 0, len(w.Data)+3)
	pins = append(pins, w.Data[:]...)
	return append(pins, w.Clock, w.BC1, w.BDIR)
}

// Validate checks that no two signals share a pin
func (w Wiring) Validate() error {
	seen := make(map[hal.PinID]bool)
	for _, pin := range w.Pins() {
		if seen[pin] {
			return errors.Errorf("pin %d is assigned to more than one signal", pin)
		}
		seen[pin] = true
	}
	return nil
}
