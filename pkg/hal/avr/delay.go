package avr

import "time"

// The busy wait is sized for a 16MHz ATmega328P. One iteration of the
// loop is a nop, a 16 bit decrement and a taken branch: at least 5 cycles,
// 312.5ns. Counting loops in 256ns units keeps the conversion to a shift
// and keeps the wait at or above the request.
const (
	loopShift = 8
	maxLoops  = 0xFFFF

	// maxSpin is the longest wait a single loop covers
	maxSpin = time.Duration(maxLoops<<loopShift) * time.Nanosecond
)

// loops returns the iterations that cover d, which must not exceed
// maxSpin. It avoids 64 bit multiply and divide, which the AVR runtime
// implements in software and which would take longer than a write pulse.
func loops(d time.Duration) uint16 {
	if d <= 0 {
		return 0
	}
	ns := uint32(d)
	return uint16((ns + 1<<loopShift - 1) >> loopShift)
}
