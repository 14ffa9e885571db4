// Package analyzer decodes a simulated pin trace the way a YM2149 sees
// it: addresses latch when BC1/BDIR fall back to inactive, values latch
// at the end of the write pulse. Every handshake is measured against the
// datasheet timing.
package analyzer

import (
	"fmt"
	"time"

	"github.com/sema/ymbus/pkg/hal"
	"github.com/sema/ymbus/pkg/hal/sim"
	"github.com/sema/ymbus/pkg/ym2149"
)

// Transaction is one decoded register write
type Transaction struct {
	// Start is when address mode was entered
	Start time.Duration

	Address byte
	Value   byte

	AddressSetup time.Duration
	AddressHold  time.Duration
	WritePulse   time.Duration
	DataHold     time.Duration

	// complete is true once the value was latched
	complete bool
}

// Violation is a breach of the bus contract found in the trace
type Violation struct {
	At      time.Duration
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%v: %s", v.At, v.Message)
}

// Report is the result of decoding a trace
type Report struct {
	Transactions []Transaction

	// Modes is every distinct control-line code seen, starting inactive
	Modes []ym2149.Mode

	Violations []Violation
}

type holdKind int

const (
	holdNone holdKind = iota
	holdAddress
	holdData
)

type decoder struct {
	wiring ym2149.Wiring
	report Report

	bc1, bdir bool
	mode      ym2149.Mode
	modeSince time.Duration

	data      byte
	dataSince time.Duration

	// dataKnown has a bit set for every data line driven in the trace
	dataKnown byte

	pinModes   map[hal.PinID]hal.PinMode
	dataPinBit map[hal.PinID]uint8

	// hold tracks the delay after a latch edge that ends on the next bus
	// change
	hold      holdKind
	holdSince time.Duration

	current int
}

// Decode replays the board's recorded events. The trace is expected to
// start with the control lines inactive, as they are between writes.
func Decode(board *sim.Board, wiring ym2149.Wiring) Report {
	d := &decoder{
		wiring:     wiring,
		mode:       ym2149.ModeInactive,
		pinModes:   make(map[hal.PinID]hal.PinMode),
		dataPinBit: make(map[hal.PinID]uint8),
		current:    -1,
		report:     Report{Modes: []ym2149.Mode{ym2149.ModeInactive}},
	}
	for bit, pin := range wiring.Data {
		d.dataPinBit[pin] = uint8(bit)
	}

	for _, e := range board.Events {
		switch e.Kind {
		case sim.EventPinMode:
			d.pinModes[e.Pin] = e.Mode
		case sim.EventPinLevel:
			d.level(e)
		}
	}
	d.endHold(board.Now())

	for _, tx := range d.report.Transactions {
		if !tx.complete {
			d.violate(tx.Start, "register write at 0x%02x never completed", tx.Address)
			continue
		}
		d.checkTiming(tx)
	}
	return d.report
}

func (d *decoder) level(e sim.Event) {
	if bit, ok := d.dataPinBit[e.Pin]; ok {
		if mode, known := d.pinModes[e.Pin]; known && mode != hal.PinOutput {
			d.violate(e.At, "data pin %d driven while it is an input", e.Pin)
		}
		if ym2149.ReadBitN(d.dataKnown, bit) && ym2149.ReadBitN(d.data, bit) == e.High {
			return
		}
		d.endHold(e.At)
		if d.mode == ym2149.ModeWrite {
			d.violate(e.At, "data changed during the write pulse")
		}
		d.data = ym2149.WriteBitN(d.data, bit, e.High)
		d.dataKnown = ym2149.WriteBitN(d.dataKnown, bit, true)
		d.dataSince = e.At
		return
	}

	switch e.Pin {
	case d.wiring.BC1:
		d.bc1 = e.High
	case d.wiring.BDIR:
		d.bdir = e.High
	default:
		return
	}

	mode := ym2149.Mode(ym2149.WriteBitN(ym2149.WriteBitN(0, 0, d.bc1), 1, d.bdir))
	if mode == d.mode {
		return
	}
	d.endHold(e.At)
	d.transition(d.mode, mode, e.At)
	d.mode = mode
	d.modeSince = e.At
	d.report.Modes = append(d.report.Modes, mode)
}

func (d *decoder) transition(from, to ym2149.Mode, at time.Duration) {
	if from != ym2149.ModeInactive && to != ym2149.ModeInactive {
		d.violate(at, "control lines went from %s to %s without passing inactive", from, to)
	}

	switch {
	case to == ym2149.ModeAddress:
		d.report.Transactions = append(d.report.Transactions, Transaction{Start: at})
		d.current = len(d.report.Transactions) - 1

	case from == ym2149.ModeAddress && to == ym2149.ModeInactive:
		tx := &d.report.Transactions[d.current]
		tx.Address = d.data
		tx.AddressSetup = at - latest(d.modeSince, d.dataSince)
		d.hold, d.holdSince = holdAddress, at

	case to == ym2149.ModeWrite:
		if d.current < 0 || d.report.Transactions[d.current].complete {
			d.violate(at, "write pulse without a latched address")
			d.current = -1
		}

	case from == ym2149.ModeWrite && to == ym2149.ModeInactive:
		if d.current < 0 {
			return
		}
		tx := &d.report.Transactions[d.current]
		tx.Value = d.data
		tx.WritePulse = at - d.modeSince
		tx.complete = true
		d.hold, d.holdSince = holdData, at

	case to != ym2149.ModeInactive:
		d.violate(at, "control lines drive reserved mode %#02b", uint8(to))
	}
}

// endHold closes a pending hold measurement at the first bus change
func (d *decoder) endHold(at time.Duration) {
	if d.hold == holdNone || d.current < 0 {
		d.hold = holdNone
		return
	}

	tx := &d.report.Transactions[d.current]
	switch d.hold {
	case holdAddress:
		tx.AddressHold = at - d.holdSince
	case holdData:
		tx.DataHold = at - d.holdSince
	}
	d.hold = holdNone
}

func (d *decoder) checkTiming(tx Transaction) {
	min := ym2149.DatasheetTiming
	if tx.AddressSetup < min.AddressSetup {
		d.violate(tx.Start, "address setup %v is below %v", tx.AddressSetup, min.AddressSetup)
	}
	if tx.AddressHold < min.AddressHold {
		d.violate(tx.Start, "address hold %v is below %v", tx.AddressHold, min.AddressHold)
	}
	if tx.WritePulse < min.WritePulse {
		d.violate(tx.Start, "write pulse %v is below %v", tx.WritePulse, min.WritePulse)
	}
	if tx.WritePulse > ym2149.MaxWritePulse {
		d.violate(tx.Start, "write pulse %v exceeds %v", tx.WritePulse, ym2149.MaxWritePulse)
	}
	if tx.DataHold < min.DataHold {
		d.violate(tx.Start, "data hold %v is below %v", tx.DataHold, min.DataHold)
	}
}

func (d *decoder) violate(at time.Duration, msg string, args ...interface{}) {
	d.report.Violations = append(d.report.Violations, Violation{
		At:      at,
		Message: fmt.Sprintf(msg, args...),
	})
}

func latest(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
