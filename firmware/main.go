//go:build tinygo && avr

// main is the Arduino firmware: it starts the chip clock and applies
// register frames arriving on the USB serial port.
//
// The address phase raises BC1 alone. With BC2 tied high, as in
// DefaultWiring, a stock YM2149 decodes that as a read and never latches
// the address, so the default wiring does not drive a bare chip
// correctly. Boards that connect the chip directly need the address code
// mapped to BDIR+BC1.
//
//	tinygo flash -target=arduino ./firmware
//
package main

import (
	"machine"

	"github.com/sema/ymbus/pkg/frame"
	"github.com/sema/ymbus/pkg/hal/avr"
	"github.com/sema/ymbus/pkg/ym2149"
)

// baud must match serial.DefaultBaud on the host
const baud = 9600

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: baud})

	board := avr.Board{}
	d := ym2149.New(board, avr.Timer2{}, board)
	d.ConfigureClock()

	regs := frame.Registers{Chip: d}
	regs.WriteFrame(make([]byte, frame.Size))

	for {
		// the UART never reports EOF, so Receive only returns on a
		// read error; start over at the next frame boundary
		frame.Receive(machine.Serial, d)
	}
}
