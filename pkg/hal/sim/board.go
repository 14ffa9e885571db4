// Package sim is a host side stand-in for a microcontroller board. It
// implements the hal interfaces, keeps pin state, and records every
// operation against a virtual clock that only advances on Delay. Nothing
// blocks, so a full register write executes in microseconds of virtual
// time and zero wall time.
package sim

import (
	"fmt"
	"time"

	"github.com/sema/ymbus/pkg/hal"
)

// EventKind is the type of operation recorded by the board
type EventKind uint8

const (
	EventPinMode EventKind = iota
	EventPinLevel
	EventDelay
	EventTimer
)

func (k EventKind) String() string {
	switch k {
	case EventPinMode:
		return "MODE"
	case EventPinLevel:
		return "LEVEL"
	case EventDelay:
		return "DELAY"
	case EventTimer:
		return "TIMER"
	}
	return "UNKNOWN"
}

// Event is one recorded HAL operation
type Event struct {
	// At is the virtual time the operation was issued
	At   time.Duration
	Kind EventKind

	Pin  hal.PinID
	Mode hal.PinMode
	High bool

	// Delay is the requested duration of an EventDelay
	Delay time.Duration

	Timer hal.TimerConfig
}

func (e Event) String() string {
	switch e.Kind {
	case EventPinMode:
		return fmt.Sprintf("%8v %-5s pin %2d %s", e.At, e.Kind, e.Pin, e.Mode)
	case EventPinLevel:
		level := 0
		if e.High {
			level = 1
		}
		return fmt.Sprintf("%8v %-5s pin %2d = %d", e.At, e.Kind, e.Pin, level)
	case EventDelay:
		return fmt.Sprintf("%8v %-5s %v", e.At, e.Kind, e.Delay)
	case EventTimer:
		return fmt.Sprintf("%8v %-5s div=%d compare=%d", e.At, e.Kind, e.Timer.Divider, e.Timer.Compare)
	}
	return fmt.Sprintf("%8v %s", e.At, e.Kind)
}

// Board records GPIO, timer and delay operations. It satisfies hal.GPIO,
// hal.Timer and hal.Delayer.
type Board struct {
	// SystemClockHz is the frequency driving the timer
	SystemClockHz uint32

	// TimerPin is the pin the timer's compare output is routed to
	TimerPin hal.PinID

	// Events contains every operation since creation or the last Discard
	Events []Event

	timer  Timer
	now    time.Duration
	modes  map[hal.PinID]hal.PinMode
	levels map[hal.PinID]bool
}

// NewBoard returns a board with every pin an input driven low
func NewBoard(systemClockHz uint32, timerPin hal.PinID) *Board {
	return &Board{
		SystemClockHz: systemClockHz,
		TimerPin:      timerPin,
		modes:         make(map[hal.PinID]hal.PinMode),
		levels:        make(map[hal.PinID]bool),
	}
}

// Configure is exposed through hal.GPIO
func (b *Board) Configure(pin hal.PinID, mode hal.PinMode) {
	b.modes[pin] = mode
	b.record(Event{Kind: EventPinMode, Pin: pin, Mode: mode})
}

// Set is exposed through hal.GPIO
func (b *Board) Set(pin hal.PinID, high bool) {
	b.levels[pin] = high
	b.record(Event{Kind: EventPinLevel, Pin: pin, High: high})
}

// Delay is exposed through hal.Delayer. It advances virtual time only.
func (b *Board) Delay(d time.Duration) {
	b.record(Event{Kind: EventDelay, Delay: d})
	b.now += d
}

// ConfigureTimer is exposed through hal.Timer, see Timer
func (b *Board) ConfigureTimer(cfg hal.TimerConfig) {
	b.timer.Configure(cfg)
	b.record(Event{Kind: EventTimer, Timer: cfg})
}

// Timer returns the hal.Timer view of the board
func (b *Board) Timer() hal.Timer {
	return timerFunc(b.ConfigureTimer)
}

// Now is the current virtual time
func (b *Board) Now() time.Duration {
	return b.now
}

// Mode returns the direction of a pin
func (b *Board) Mode(pin hal.PinID) hal.PinMode {
	return b.modes[pin]
}

// Level returns the last level written to a pin
func (b *Board) Level(pin hal.PinID) bool {
	return b.levels[pin]
}

// Delays returns the durations of every recorded delay, in order
func (b *Board) Delays() []time.Duration {
	var delays []time.Duration
	for _, e := range b.Events {
		if e.Kind == EventDelay {
			delays = append(delays, e.Delay)
		}
	}
	return delays
}

// ClockEdges runs the timer for the given number of system ticks and
// returns the transitions that reach TimerPin. The compare output only
// reaches the pin when the pin is an output.
func (b *Board) ClockEdges(ticks int) []Edge {
	if b.modes[b.TimerPin] != hal.PinOutput {
		return nil
	}
	return b.timer.Edges(ticks)
}

// TimerConfig returns the loaded timer configuration
func (b *Board) TimerConfig() (hal.TimerConfig, bool) {
	return b.timer.Config()
}

// Discard drops recorded events but keeps pin state and virtual time
func (b *Board) Discard() {
	b.Events = b.Events[:0]
}

func (b *Board) record(e Event) {
	e.At = b.now
	b.Events = append(b.Events, e)
}

type timerFunc func(cfg hal.TimerConfig)

func (f timerFunc) Configure(cfg hal.TimerConfig) {
	f(cfg)
}
