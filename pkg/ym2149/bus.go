package ym2149

import (
	"log"

	"github.com/sema/ymbus/pkg/hal"
)

// Mode is the 2 bit code carried by the control lines. Bit 0 is BC1 and
// bit 1 is BDIR.
type Mode uint8

const (
	// ModeInactive is the resting state between and after phases
	ModeInactive Mode = 0b00

	// ModeAddress latches the bus into the chip's address register when
	// the lines return to ModeInactive. A stock YM2149 with BC2 high
	// decodes BC1 alone as a register read and latches addresses on
	// BDIR+BC1, so DefaultWiring only drives a bare chip through an
	// interface that translates this code.
	ModeAddress Mode = 0b01

	// ModeWrite writes the bus into the addressed register
	ModeWrite Mode = 0b10

	// modeReserved is never driven
	modeReserved Mode = 0b11
)

func (m Mode) String() string {
	switch m {
	case ModeInactive:
		return "INACTIVE"
	case ModeAddress:
		return "ADDRESS"
	case ModeWrite:
		return "WRITE"
	}
	return "RESERVED"
}

// Phase is the position of a ParallelBus within a register write
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseAddressSetup
	PhaseAddressLatched
	PhaseDataSetup
	PhaseDataLatched
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseAddressSetup:
		return "ADDRESS_SETUP"
	case PhaseAddressLatched:
		return "ADDRESS_LATCHED"
	case PhaseDataSetup:
		return "DATA_SETUP"
	case PhaseDataLatched:
		return "DATA_LATCHED"
	}
	return "UNKNOWN"
}

// PhaseCallback is called on every phase transition
type PhaseCallback func(p Phase)

// ParallelBus drives DA0-DA7, BC1 and BDIR through the YM2149 write
// handshake. It owns the direction of the data pins.
//
// A ParallelBus is not safe for concurrent use; writes must be serialised
// by the caller.
type ParallelBus struct {
	gpio   hal.GPIO
	delay  hal.Delayer
	wiring Wiring
	timing Timing

	mode    Mode
	phase   Phase
	driving bool

	// Callback is called (if set) on every phase transition
	Callback PhaseCallback
}

// NewParallelBus returns a bus using the given pins and delays. Nothing
// is touched until Configure is called.
func NewParallelBus(gpio hal.GPIO, delay hal.Delayer, wiring Wiring, timing Timing) *ParallelBus {
	return &ParallelBus{
		gpio:   gpio,
		delay:  delay,
		wiring: wiring,
		timing: timing,
	}
}

// Configure makes the control lines outputs and parks them inactive
func (b *ParallelBus) Configure() {
	b.gpio.Configure(b.wiring.BC1, hal.PinOutput)
	b.gpio.Configure(b.wiring.BDIR, hal.PinOutput)
	b.gpio.Set(b.wiring.BC1, false)
	b.gpio.Set(b.wiring.BDIR, false)
	b.mode = ModeInactive
}

// WriteRegister stores value in the chip register at address. Every bit
// of both bytes is put on the bus even though the chip only decodes the
// low four address bits.
//
// The bus is left driven by the microcontroller with the control lines
// inactive.
func (b *ParallelBus) WriteRegister(address, value byte) {
	b.sendAddress(address)
	b.sendData(value)
	b.setPhase(PhaseIdle)
}

func (b *ParallelBus) sendAddress(address byte) {
	b.setBusOut()
	b.setMode(ModeAddress)
	b.drive(address)
	b.setPhase(PhaseAddressSetup)
	b.delay.Delay(b.timing.AddressSetup)

	b.setMode(ModeInactive) // latch strobe
	b.setPhase(PhaseAddressLatched)
	b.delay.Delay(b.timing.AddressHold)
}

func (b *ParallelBus) sendData(value byte) {
	b.setBusOut()
	b.drive(value)
	b.setMode(ModeWrite)
	b.setPhase(PhaseDataSetup)
	b.delay.Delay(b.timing.WritePulse)

	b.setMode(ModeInactive)
	b.setPhase(PhaseDataLatched)
	b.delay.Delay(b.timing.DataHold)
}

// setBusOut hands the data pins to the microcontroller
func (b *ParallelBus) setBusOut() {
	for _, pin := range b.wiring.Data {
		b.gpio.Configure(pin, hal.PinOutput)
	}
	b.driving = true
}

func (b *ParallelBus) drive(v byte) {
	for bit, pin := range b.wiring.Data {
		b.gpio.Set(pin, ReadBitN(v, uint8(bit)))
	}
}

// setMode changes the control lines. Lines going low are written before
// lines going high so the reserved code never appears on the bus.
func (b *ParallelBus) setMode(m Mode) {
	if m == modeReserved {
		log.Panicf("control-line mode %#02b is reserved", uint8(m))
	}

	bc1, bdir := ReadBitN(byte(m), 0), ReadBitN(byte(m), 1)
	if !bc1 {
		b.gpio.Set(b.wiring.BC1, false)
	}
	if !bdir {
		b.gpio.Set(b.wiring.BDIR, false)
	}
	if bc1 {
		b.gpio.Set(b.wiring.BC1, true)
	}
	if bdir {
		b.gpio.Set(b.wiring.BDIR, true)
	}
	b.mode = m
}

func (b *ParallelBus) setPhase(p Phase) {
	b.phase = p
	if b.Callback != nil {
		b.Callback(p)
	}
}

// Mode is the code currently on the control lines
func (b *ParallelBus) Mode() Mode {
	return b.mode
}

// Phase is the current position in the handshake
func (b *ParallelBus) Phase() Phase {
	return b.phase
}

// Driving is true when the data pins are outputs
func (b *ParallelBus) Driving() bool {
	return b.driving
}

func (b *ParallelBus) String() string {
	return "BUS"
}
