package avr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoops(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want uint16
	}{
		{d: 0, want: 0},
		{d: -time.Microsecond, want: 0},
		{d: time.Nanosecond, want: 1},
		{d: 80 * time.Nanosecond, want: 1},
		{d: 300 * time.Nanosecond, want: 2},
		{d: time.Microsecond, want: 4},
		{d: 10 * time.Microsecond, want: 40},
		{d: maxSpin, want: maxLoops},
	}
	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			require.Equal(t, tt.want, loops(tt.d))
		})
	}
}

func TestLoopsCoverRequest(t *testing.T) {
	// the slowest loop the compiler can emit still takes 5 cycles at 16MHz
	const loopNanos = 5 * 1000 / 16
	for d := time.Nanosecond; d <= 100*time.Microsecond; d += 7 * time.Nanosecond {
		got := time.Duration(loops(d)) * loopNanos * time.Nanosecond
		require.GreaterOrEqual(t, got, d, "wait for %v", d)
	}
}

func TestWritePulseBound(t *testing.T) {
	// a 1us pulse at up to 7 cycles per iteration stays well inside the
	// 10us the chip tolerates
	n := loops(time.Microsecond)
	worst := time.Duration(n) * 7 * time.Second / 16000000
	require.Less(t, worst, 2*time.Microsecond)
}
