// Package hal is the hardware abstraction the YM2149 driver is written
// against. A target provides GPIO, a waveform timer and a calibrated
// busy-wait; the simulated board in hal/sim records all three for tests.
package hal

import "time"

// PinID identifies a physical I/O pin. On Arduino style boards it is the
// digital pin number printed on the header (A0 = 14, A1 = 15, ...).
type PinID uint8

// PinMode is the direction of a pin
type PinMode uint8

const (
	// PinInput leaves the pin high impedance (listening)
	PinInput PinMode = iota

	// PinOutput makes the microcontroller drive the pin
	PinOutput
)

func (m PinMode) String() string {
	switch m {
	case PinInput:
		return "input"
	case PinOutput:
		return "output"
	}
	return "unknown"
}

// GPIO configures and drives individual pins.
type GPIO interface {
	// Configure sets the direction of the pin
	Configure(pin PinID, mode PinMode)

	// Set drives the pin high (true) or low (false)
	Set(pin PinID, high bool)
}

// WaveformMode selects how the timer counter runs
type WaveformMode uint8

const (
	// WaveformNormal counts up to the top of the counter and wraps
	WaveformNormal WaveformMode = iota

	// WaveformCTC clears the counter when it reaches the compare value
	WaveformCTC
)

// CompareOutput selects what the timer does with its output pin on a
// compare match
type CompareOutput uint8

const (
	// OutputDisconnected leaves the output pin to GPIO
	OutputDisconnected CompareOutput = iota

	// OutputToggle inverts the output pin on every compare match
	OutputToggle
)

// TimerConfig is a complete timer setup. The output frequency of a CTC
// timer toggling on match is F / (2 * Divider * (Compare + 1)).
type TimerConfig struct {
	Waveform WaveformMode
	Output   CompareOutput

	// Divider is the prescaler applied to the system clock
	Divider uint16

	// Compare is the threshold the counter resets at
	Compare uint16
}

// Timer is a hardware counter with a compare output.
type Timer interface {
	// Configure stops the timer and clears its counter, then loads the
	// compare threshold and waveform mode. The prescaler is written last
	// and starts counting, so the output restarts from a known state and
	// runs autonomously afterwards.
	Configure(cfg TimerConfig)
}

// Delayer blocks for at least the requested duration.
type Delayer interface {
	Delay(d time.Duration)
}
