package analyzer

import (
	"bytes"
	"testing"
	"time"

	"github.com/sema/ymbus/pkg/hal"
	"github.com/sema/ymbus/pkg/hal/sim"
	"github.com/sema/ymbus/pkg/ym2149"
	"github.com/stretchr/testify/require"
)

func newTestDriver() (*ym2149.Driver, *sim.Board) {
	board := sim.NewBoard(ym2149.SystemClockHz, ym2149.DefaultWiring.Clock)
	d := ym2149.New(board, board.Timer(), board)
	d.ConfigureClock()
	return d, board
}

func TestDecodeSingleWrite(t *testing.T) {
	d, board := newTestDriver()
	board.Discard()

	d.WriteRegister(0x07, 0x3E)
	report := Decode(board, ym2149.DefaultWiring)

	require.True(t, report.OK(), "%v", report.Violations)
	require.Equal(t, []ym2149.Mode{
		ym2149.ModeInactive,
		ym2149.ModeAddress,
		ym2149.ModeInactive,
		ym2149.ModeWrite,
		ym2149.ModeInactive,
	}, report.Modes)

	require.Len(t, report.Transactions, 1)
	tx := report.Transactions[0]
	require.Equal(t, byte(0x07), tx.Address)
	require.Equal(t, byte(0x3E), tx.Value)
	require.Equal(t, time.Microsecond, tx.AddressSetup)
	require.Equal(t, time.Microsecond, tx.AddressHold)
	require.Equal(t, time.Microsecond, tx.WritePulse)
	require.Equal(t, time.Microsecond, tx.DataHold)
}

func TestDecodeEveryByteOnBothPhases(t *testing.T) {
	d, board := newTestDriver()
	board.Discard()

	for v := 0; v < 256; v++ {
		d.WriteRegister(byte(v), byte(v^0xFF))
	}
	report := Decode(board, ym2149.DefaultWiring)

	require.True(t, report.OK(), "%v", report.Violations)
	require.Len(t, report.Transactions, 256)
	for v, tx := range report.Transactions {
		require.Equal(t, byte(v), tx.Address)
		require.Equal(t, byte(v^0xFF), tx.Value)
		require.GreaterOrEqual(t, int64(tx.AddressSetup), int64(ym2149.DatasheetTiming.AddressSetup))
		require.GreaterOrEqual(t, int64(tx.AddressHold), int64(ym2149.DatasheetTiming.AddressHold))
		require.GreaterOrEqual(t, int64(tx.WritePulse), int64(ym2149.DatasheetTiming.WritePulse))
		require.LessOrEqual(t, int64(tx.WritePulse), int64(ym2149.MaxWritePulse))
		require.GreaterOrEqual(t, int64(tx.DataHold), int64(ym2149.DatasheetTiming.DataHold))
	}
}

func TestDecodeBackToBackWritesStayIdleBetweenCalls(t *testing.T) {
	d, board := newTestDriver()
	board.Discard()

	d.WriteRegister(0x00, 0x00)
	d.WriteRegister(0x0E, 0x3F)
	report := Decode(board, ym2149.DefaultWiring)

	require.True(t, report.OK(), "%v", report.Violations)
	require.Len(t, report.Transactions, 2)
	require.Equal(t, ym2149.ModeInactive, report.Modes[4])
	require.Len(t, report.Modes, 9)
	require.Equal(t, byte(0x0E), report.Transactions[1].Address)
	require.Equal(t, byte(0x3F), report.Transactions[1].Value)
}

func TestDecodeFlagsTimingViolations(t *testing.T) {
	board := sim.NewBoard(ym2149.SystemClockHz, ym2149.DefaultWiring.Clock)
	bus := ym2149.NewParallelBus(board, board, ym2149.DefaultWiring, ym2149.Timing{
		AddressSetup: 100 * time.Nanosecond,
		AddressHold:  80 * time.Nanosecond,
		WritePulse:   20 * time.Microsecond,
		DataHold:     0,
	})
	bus.Configure()
	bus.WriteRegister(0x01, 0x02)

	report := Decode(board, ym2149.DefaultWiring)
	require.False(t, report.OK())

	var messages []string
	for _, v := range report.Violations {
		messages = append(messages, v.Message)
	}
	require.Contains(t, messages, "address setup 100ns is below 300ns")
	require.Contains(t, messages, "write pulse 20µs exceeds 10µs")
	require.Contains(t, messages, "data hold 0s is below 80ns")
	require.Len(t, messages, 3)
}

func TestDecodeFlagsSkippedInactiveAndReservedModes(t *testing.T) {
	w := ym2149.DefaultWiring
	board := sim.NewBoard(ym2149.SystemClockHz, w.Clock)
	board.Set(w.BC1, true)
	board.Delay(time.Microsecond)
	board.Set(w.BDIR, true)
	board.Set(w.BC1, false)
	board.Delay(time.Microsecond)
	board.Set(w.BDIR, false)

	report := Decode(board, w)
	require.False(t, report.OK())
	require.Equal(t, "control lines went from ADDRESS to RESERVED without passing inactive", report.Violations[0].Message)
	require.Equal(t, "control lines drive reserved mode 0b11", report.Violations[1].Message)
}

func TestDecodeFlagsDataDrivenWhileInput(t *testing.T) {
	w := ym2149.DefaultWiring
	board := sim.NewBoard(ym2149.SystemClockHz, w.Clock)
	board.Configure(w.Data[0], hal.PinInput)
	board.Set(w.Data[0], true)

	report := Decode(board, w)
	require.Len(t, report.Violations, 1)
	require.Equal(t, "data pin 2 driven while it is an input", report.Violations[0].Message)
}

func TestDecodeFlagsIncompleteWrite(t *testing.T) {
	w := ym2149.DefaultWiring
	board := sim.NewBoard(ym2149.SystemClockHz, w.Clock)
	for bit, pin := range w.Data {
		board.Configure(pin, hal.PinOutput)
		board.Set(pin, ym2149.ReadBitN(0x0A, uint8(bit)))
	}
	board.Set(w.BC1, true)
	board.Delay(time.Microsecond)
	board.Set(w.BC1, false)
	board.Delay(time.Microsecond)

	report := Decode(board, w)
	require.Len(t, report.Violations, 1)
	require.Equal(t, "register write at 0x0a never completed", report.Violations[0].Message)
}

func TestReportWrite(t *testing.T) {
	d, board := newTestDriver()
	board.Discard()
	d.WriteRegister(0x08, 0x0F)

	var out bytes.Buffer
	require.NoError(t, Decode(board, ym2149.DefaultWiring).Write(&out))
	require.Contains(t, out.String(), "reg 0x08 <- 0x0f")
	require.NotContains(t, out.String(), "0x0008")
	require.Contains(t, out.String(), "INACTIVE > ADDRESS > INACTIVE > WRITE > INACTIVE")
	require.Contains(t, out.String(), "OK")
}
