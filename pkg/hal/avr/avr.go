//go:build tinygo && avr

// Package avr implements the hal interfaces on an ATmega328P Arduino with
// TinyGo. Pin numbers follow the Arduino numbering: 0..13 are the digital
// header and 14..19 are A0..A5.
package avr

import (
	"device/avr"
	"machine"
	"time"

	"github.com/sema/ymbus/pkg/hal"
)

var pins = [...]machine.Pin{
	machine.D0, machine.D1, machine.D2, machine.D3, machine.D4,
	machine.D5, machine.D6, machine.D7, machine.D8, machine.D9,
	machine.D10, machine.D11, machine.D12, machine.D13,
	machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3,
	machine.ADC4, machine.ADC5,
}

func pin(id hal.PinID) machine.Pin {
	if int(id) >= len(pins) {
		panic("avr: pin out of range")
	}
	return pins[id]
}

// Board drives the chip from the microcontroller's own peripherals
type Board struct{}

// Configure sets the direction of a pin
func (Board) Configure(id hal.PinID, mode hal.PinMode) {
	m := machine.PinInput
	if mode == hal.PinOutput {
		m = machine.PinOutput
	}
	pin(id).Configure(machine.PinConfig{Mode: m})
}

// Set drives an output pin
func (Board) Set(id hal.PinID, high bool) {
	pin(id).Set(high)
}

// Delay busy waits for at least d. Interrupts keep running, so the wait
// can only get longer.
func (Board) Delay(d time.Duration) {
	for d > maxSpin {
		spin(maxLoops)
		d -= maxSpin
	}
	spin(loops(d))
}

func spin(n uint16) {
	for ; n > 0; n-- {
		avr.Asm("nop")
	}
}

// Timer2 drives OC2A, Arduino pin 11
type Timer2 struct{}

var timer2Prescalers = map[uint16]uint8{
	1:    avr.TCCR2B_CS20,
	8:    avr.TCCR2B_CS21,
	32:   avr.TCCR2B_CS21 | avr.TCCR2B_CS20,
	64:   avr.TCCR2B_CS22,
	128:  avr.TCCR2B_CS22 | avr.TCCR2B_CS20,
	256:  avr.TCCR2B_CS22 | avr.TCCR2B_CS21,
	1024: avr.TCCR2B_CS22 | avr.TCCR2B_CS21 | avr.TCCR2B_CS20,
}

// Configure loads the timer. Dividers Timer2 does not have panic.
func (Timer2) Configure(cfg hal.TimerConfig) {
	cs, ok := timer2Prescalers[cfg.Divider]
	if !ok {
		panic("avr: timer2 has no such prescaler")
	}

	var a uint8
	if cfg.Waveform == hal.WaveformCTC {
		a |= avr.TCCR2A_WGM21
	}
	if cfg.Output == hal.OutputToggle {
		a |= avr.TCCR2A_COM2A0
	}

	avr.TCCR2B.Set(0)
	avr.TCNT2.Set(0)
	avr.OCR2A.Set(uint8(cfg.Compare))
	avr.TCCR2A.Set(a)
	avr.TCCR2B.Set(cs)
}

var (
	_ hal.GPIO    = Board{}
	_ hal.Delayer = Board{}
	_ hal.Timer   = Timer2{}
)
