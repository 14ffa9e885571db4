// Package capture exports a simulated pin trace as a multi channel WAV
// file, one channel per pin and one sample per system clock tick. Logic
// analyzer front ends such as PulseView, and any audio editor, can open
// the result.
package capture

import (
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"github.com/sema/ymbus/pkg/hal"
	"github.com/sema/ymbus/pkg/hal/sim"
	"github.com/sema/ymbus/pkg/ym2149"
)

const (
	bitDepth  = 16
	pcmFormat = 1

	levelHigh = 1 << 14
	levelLow  = -levelHigh

	// MaxSamples bounds the size of a capture: 65ms at 16MHz. Each sample
	// costs about 130 bytes between the rendered row and the encoder's
	// buffer for 11 channels, so a full capture stays near 140MB.
	MaxSamples = 1 << 20
)

// Channel is a named pin to capture
type Channel struct {
	Name string
	Pin  hal.PinID
}

// Channels lists the bus signals of a wiring: CLK, BC1, BDIR, then DA0
// to DA7
func Channels(w ym2149.Wiring) []Channel {
	channels := []Channel{
		{Name: "CLK", Pin: w.Clock},
		{Name: "BC1", Pin: w.BC1},
		{Name: "BDIR", Pin: w.BDIR},
	}
	for bit, pin := range w.Data {
		channels = append(channels, Channel{Name: "DA" + string(rune('0'+bit)), Pin: pin})
	}
	return channels
}

// Render samples the board's trace once per system clock tick. The timer
// output replaces the recorded level of the timer pin while the pin is an
// output.
func Render(board *sim.Board, channels []Channel) ([][]bool, error) {
	samples := ticks(board.Now(), board.SystemClockHz)
	if samples > MaxSamples {
		return nil, errors.Errorf("trace of %v needs %d samples, more than %d", board.Now(), samples, MaxSamples)
	}

	levels := make(map[hal.PinID]bool)
	modes := make(map[hal.PinID]hal.PinMode)
	var timer sim.Timer
	timerRunning := false

	out := make([][]bool, samples)
	next := 0
	for k := 0; k < samples; k++ {
		for next < len(board.Events) && ticks(board.Events[next].At, board.SystemClockHz) <= k {
			e := board.Events[next]
			switch e.Kind {
			case sim.EventPinMode:
				modes[e.Pin] = e.Mode
			case sim.EventPinLevel:
				levels[e.Pin] = e.High
			case sim.EventTimer:
				timer.Configure(e.Timer)
				timerRunning = true
			}
			next++
		}
		if timerRunning {
			timer.Cycle()
		}

		row := make([]bool, len(channels))
		for i, c := range channels {
			if c.Pin == board.TimerPin && timerRunning && modes[c.Pin] == hal.PinOutput {
				row[i] = timer.Output()
			} else {
				row[i] = levels[c.Pin]
			}
		}
		out[k] = row
	}
	return out, nil
}

// WriteWAV renders the trace and encodes it at the board's system clock
// rate
func WriteWAV(w io.WriteSeeker, board *sim.Board, channels []Channel) error {
	if len(channels) == 0 {
		return errors.New("no channels to capture")
	}

	rows, err := Render(board, channels)
	if err != nil {
		return err
	}

	data := make([]int, 0, len(rows)*len(channels))
	for _, row := range rows {
		for _, high := range row {
			if high {
				data = append(data, levelHigh)
			} else {
				data = append(data, levelLow)
			}
		}
	}

	rate := int(board.SystemClockHz)
	enc := wav.NewEncoder(w, rate, bitDepth, len(channels), pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: len(channels), SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "encoding capture")
	}
	return errors.Wrap(enc.Close(), "finishing capture")
}

func ticks(d time.Duration, hz uint32) int {
	return int(int64(d) * int64(hz) / int64(time.Second))
}
