package sim

import (
	"log"

	"github.com/sema/ymbus/pkg/hal"
)

// Edge is a transition of the timer output, timestamped in system clock
// ticks since the timer was configured.
type Edge struct {
	Tick uint64
	High bool
}

// Timer emulates an 8 bit counter/timer with prescaler and compare output,
// one system clock tick per Cycle.
type Timer struct {
	config     hal.TimerConfig
	configured bool

	// prescaled counts system ticks towards the next counter increment
	prescaled uint16

	// counter is the timer counter register
	counter uint16

	// output is the level of the compare output
	output bool

	ticks uint64
}

// Configure stops the timer and loads a new configuration. Counting
// restarts from a cleared counter and output on the next Cycle.
func (t *Timer) Configure(cfg hal.TimerConfig) {
	if cfg.Divider == 0 {
		log.Panicf("timer divider must be at least 1, got %d", cfg.Divider)
	}
	*t = Timer{
		config:     cfg,
		configured: true,
	}
}

// Config returns the loaded configuration and whether one was loaded
func (t *Timer) Config() (hal.TimerConfig, bool) {
	return t.config, t.configured
}

// Output is the current level of the compare output
func (t *Timer) Output() bool {
	return t.output
}

// Cycle advances the timer by one system clock tick. It returns true if
// the compare output toggled.
func (t *Timer) Cycle() bool {
	if !t.configured {
		return false
	}
	t.ticks++

	t.prescaled++
	if t.prescaled < t.config.Divider {
		return false
	}
	t.prescaled = 0

	top := uint16(0xFF)
	if t.config.Waveform == hal.WaveformCTC {
		top = t.config.Compare
	}

	matched := t.counter == t.config.Compare
	if t.counter >= top {
		t.counter = 0
	} else {
		t.counter++
	}

	if matched && t.config.Output == hal.OutputToggle {
		t.output = !t.output
		return true
	}
	return false
}

// Edges runs the timer for the given number of system ticks and returns
// every output transition observed.
func (t *Timer) Edges(ticks int) []Edge {
	var edges []Edge
	for i := 0; i < ticks; i++ {
		if t.Cycle() {
			edges = append(edges, Edge{Tick: t.ticks, High: t.output})
		}
	}
	return edges
}
