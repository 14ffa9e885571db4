// Package ym2149 drives a YM2149 (or AY-3-8910) sound generator from
// general purpose pins: a hardware timer supplies the chip's clock and the
// register write handshake is bit-banged on an 8 bit bus plus BC1/BDIR.
//
// Typical use on a board:
//
//	d := ym2149.New(gpio, timer, delay)
//	d.ConfigureClock()
//	d.WriteRegister(0x07, 0x3E) // mixer: tone A only
//	d.WriteRegister(0x08, 0x0F) // channel A full volume
package ym2149

import (
	"log"

	"github.com/sema/ymbus/pkg/hal"
)

// Registers is the number of registers a YM2149 exposes
const Registers = 16

// Driver bundles the clock generator and bus transactor for one chip.
type Driver struct {
	Clock *ClockPeripheral
	Bus   *ParallelBus
}

// New returns a driver using DefaultWiring, DefaultTiming and DefaultClock
func New(gpio hal.GPIO, timer hal.Timer, delay hal.Delayer) *Driver {
	return NewWithConfig(gpio, timer, delay, DefaultWiring, DefaultTiming, DefaultClock)
}

// NewWithConfig returns a driver with explicit build time configuration.
// Invalid wiring or timing is a build mistake and panics.
func NewWithConfig(gpio hal.GPIO, timer hal.Timer, delay hal.Delayer, wiring Wiring, timing Timing, clock ClockSetting) *Driver {
	if err := wiring.Validate(); err != nil {
		log.Panicf("invalid wiring: %s", err)
	}
	if err := timing.Validate(); err != nil {
		log.Panicf("invalid bus timing: %s", err)
	}

	return &Driver{
		Clock: NewClockPeripheral(gpio, timer, wiring.Clock, clock),
		Bus:   NewParallelBus(gpio, delay, wiring, timing),
	}
}

// ConfigureClock starts the chip clock and parks the control lines
// inactive. Call it once before any WriteRegister.
func (d *Driver) ConfigureClock() {
	d.Clock.Configure()
	d.Bus.Configure()
}

// WriteRegister stores value in the chip register at address
func (d *Driver) WriteRegister(address, value byte) {
	d.Bus.WriteRegister(address, value)
}
