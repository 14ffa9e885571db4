package analyzer

import "github.com/sema/ymbus/pkg/hal/sim"

// ClockMeasurement is the average frequency and duty cycle of a clock
// captured as timer edges
type ClockMeasurement struct {
	Hz   float64
	Duty float64

	// Cycles is the number of complete periods measured
	Cycles int
}

// MeasureClock averages over every complete period in edges, starting at
// the first rising edge. Ticks are converted with systemHz.
func MeasureClock(edges []sim.Edge, systemHz uint32) ClockMeasurement {
	first := -1
	for i, e := range edges {
		if e.High {
			first = i
			break
		}
	}
	if first < 0 {
		return ClockMeasurement{}
	}

	var high, total uint64
	cycles := 0
	for i := first; i+2 < len(edges); i += 2 {
		rise, fall, next := edges[i], edges[i+1], edges[i+2]
		high += fall.Tick - rise.Tick
		total += next.Tick - rise.Tick
		cycles++
	}
	if cycles == 0 {
		return ClockMeasurement{}
	}

	period := float64(total) / float64(cycles)
	return ClockMeasurement{
		Hz:     float64(systemHz) / period,
		Duty:   float64(high) / float64(total),
		Cycles: cycles,
	}
}
