package ym2149

import (
	"time"

	"github.com/pkg/errors"
)

// Timing holds the delays the bus handshake waits between pin changes.
type Timing struct {
	// AddressSetup is how long the address is held on the bus, in address
	// mode, before the latch strobe (tAS)
	AddressSetup time.Duration

	// AddressHold is the wait after the latch strobe before the bus
	// changes again (tAH)
	AddressHold time.Duration

	// WritePulse is how long write mode is asserted with the value on the
	// bus (tDW). It has a maximum as well as a minimum.
	WritePulse time.Duration

	// DataHold is the wait after write mode ends before the bus changes
	// again (tDH)
	DataHold time.Duration
}

// DatasheetTiming are the minimum delays of the YM2149 bus
var DatasheetTiming = Timing{
	AddressSetup: 300 * time.Nanosecond,
	AddressHold:  80 * time.Nanosecond,
	WritePulse:   300 * time.Nanosecond,
	DataHold:     80 * time.Nanosecond,
}

// MaxWritePulse is the longest write mode may be asserted before the chip
// risks treating it as a new latch
const MaxWritePulse = 10 * time.Microsecond

// DefaultMargin is the delay used for every phase. It is well above the
// datasheet minimums and well below MaxWritePulse.
const DefaultMargin = time.Microsecond

// DefaultTiming uses DefaultMargin for every phase
var DefaultTiming = Timing{
	AddressSetup: DefaultMargin,
	AddressHold:  DefaultMargin,
	WritePulse:   DefaultMargin,
	DataHold:     DefaultMargin,
}

// Validate checks the delays against DatasheetTiming and MaxWritePulse
func (t Timing) Validate() error {
	checks := []struct {
		name     string
		got, min time.Duration
	}{
		{"address setup", t.AddressSetup, DatasheetTiming.AddressSetup},
		{"address hold", t.AddressHold, DatasheetTiming.AddressHold},
		{"write pulse", t.WritePulse, DatasheetTiming.WritePulse},
		{"data hold", t.DataHold, DatasheetTiming.DataHold},
	}
	for _, c := range checks {
		if c.got < c.min {
			return errors.Errorf("%s of %v is below the minimum of %v", c.name, c.got, c.min)
		}
	}

	if t.WritePulse > MaxWritePulse {
		return errors.Errorf("write pulse of %v exceeds the maximum of %v", t.WritePulse, MaxWritePulse)
	}
	return nil
}
