package capture

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/sema/ymbus/pkg/hal/sim"
	"github.com/sema/ymbus/pkg/ym2149"
	"github.com/stretchr/testify/require"
)

func captureWrite(address, value byte) *sim.Board {
	board := sim.NewBoard(ym2149.SystemClockHz, ym2149.DefaultWiring.Clock)
	d := ym2149.New(board, board.Timer(), board)
	d.ConfigureClock()
	d.WriteRegister(address, value)
	return board
}

func TestChannels(t *testing.T) {
	channels := Channels(ym2149.DefaultWiring)
	require.Len(t, channels, 11)
	require.Equal(t, Channel{Name: "CLK", Pin: 11}, channels[0])
	require.Equal(t, Channel{Name: "DA7", Pin: 9}, channels[10])
}

func TestRenderControlLines(t *testing.T) {
	board := captureWrite(0x07, 0x3E)
	rows, err := Render(board, Channels(ym2149.DefaultWiring))
	require.NoError(t, err)

	// one write is four 1µs phases at 16 samples per µs
	require.Len(t, rows, 64)
	for k, row := range rows {
		require.Equal(t, k < 16, row[1], "BC1 at sample %d", k)
		require.Equal(t, k >= 32 && k < 48, row[2], "BDIR at sample %d", k)
	}

	// address bits during the address phase, value bits during the write
	for bit := 0; bit < 8; bit++ {
		require.Equal(t, ym2149.ReadBitN(0x07, uint8(bit)), rows[8][3+bit])
		require.Equal(t, ym2149.ReadBitN(0x3E, uint8(bit)), rows[40][3+bit])
	}
}

func TestRenderClock(t *testing.T) {
	board := captureWrite(0x00, 0x00)
	rows, err := Render(board, Channels(ym2149.DefaultWiring))
	require.NoError(t, err)

	changes := 0
	for k := 1; k < len(rows); k++ {
		if rows[k][0] != rows[k-1][0] {
			changes++
		}
	}
	require.Equal(t, 16, changes)
}

func TestWriteWAV(t *testing.T) {
	board := captureWrite(0x08, 0x0F)

	f, err := ioutil.TempFile("", "capture-*.wav")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	defer f.Close()

	require.NoError(t, WriteWAV(f, board, Channels(ym2149.DefaultWiring)))

	_, err = f.Seek(0, 0)
	require.NoError(t, err)

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())

	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	require.Equal(t, 11, buf.Format.NumChannels)
	require.Equal(t, int(ym2149.SystemClockHz), buf.Format.SampleRate)
	require.Len(t, buf.Data, 64*11)
}

func TestWriteWAVRequiresChannels(t *testing.T) {
	f, err := ioutil.TempFile("", "capture-*.wav")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	defer f.Close()

	require.Error(t, WriteWAV(f, sim.NewBoard(ym2149.SystemClockHz, 11), nil))
}

func TestRenderRejectsLongTraces(t *testing.T) {
	board := captureWrite(0x07, 0x3E)
	board.Delay(100 * time.Millisecond)

	_, err := Render(board, Channels(ym2149.DefaultWiring))
	require.Error(t, err)

	f, err := ioutil.TempFile("", "capture-*.wav")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	defer f.Close()
	require.Error(t, WriteWAV(f, board, Channels(ym2149.DefaultWiring)))

	info, err := f.Stat()
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestRenderAcceptsTracesUpToTheLimit(t *testing.T) {
	board := sim.NewBoard(ym2149.SystemClockHz, ym2149.DefaultWiring.Clock)
	board.Delay(time.Duration(MaxSamples) * time.Second / time.Duration(ym2149.SystemClockHz))

	rows, err := Render(board, []Channel{{Name: "BC1", Pin: ym2149.DefaultWiring.BC1}})
	require.NoError(t, err)
	require.Len(t, rows, MaxSamples)
}
