package ym2149

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultTimingIsValid(t *testing.T) {
	require.NoError(t, DefaultTiming.Validate())
	require.NoError(t, DatasheetTiming.Validate())
}

func TestTimingValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *Timing)
	}{
		{
			name:   "address setup below minimum",
			modify: func(t *Timing) { t.AddressSetup = 299 * time.Nanosecond },
		},
		{
			name:   "address hold below minimum",
			modify: func(t *Timing) { t.AddressHold = 79 * time.Nanosecond },
		},
		{
			name:   "write pulse below minimum",
			modify: func(t *Timing) { t.WritePulse = 100 * time.Nanosecond },
		},
		{
			name:   "write pulse above maximum",
			modify: func(t *Timing) { t.WritePulse = MaxWritePulse + time.Nanosecond },
		},
		{
			name:   "data hold below minimum",
			modify: func(t *Timing) { t.DataHold = 0 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timing := DefaultTiming
			tt.modify(&timing)
			require.Error(t, timing.Validate())
		})
	}
}
