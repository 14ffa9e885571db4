package ym2149

import (
	"log"
	"math"

	"github.com/pkg/errors"
	"github.com/sema/ymbus/pkg/hal"
)

const (
	// SystemClockHz is the CPU clock of the ATmega328P boards the driver
	// targets
	SystemClockHz uint32 = 16000000

	// TargetClockHz is the YM2149 master clock. 2MHz is the frequency the
	// chip's note tables are usually computed for.
	TargetClockHz uint32 = 2000000

	// ClockTolerance is the largest relative frequency error accepted
	ClockTolerance = 0.05

	// TimerMaxCompare is the top of the 8 bit timer
	TimerMaxCompare = 0xFF
)

// TimerDividers are the prescaler values of ATmega328P Timer2
var TimerDividers = []uint16{1, 8, 32, 64, 128, 256, 1024}

// ClockSetting is a prescaler/compare pair and the frequency it produces
type ClockSetting struct {
	Divider uint16
	Compare uint16

	// ActualHz is the frequency the pair produces
	ActualHz float64

	// Error is the relative deviation of ActualHz from the requested
	// frequency
	Error float64
}

// ClockSettings picks the smallest divider for which a toggle-on-compare
// timer can produce targetHz from systemHz. The compare value is
//
//	(systemHz / divider) / (2 * targetHz) - 1
//
// rounded to the nearest integer.
//
// The search stops at the first divider whose compare fits maxCompare. If
// that setting misses ClockTolerance, it is returned together with an
// error and larger dividers are not tried, since they only offer a
// coarser grid of periods around the target.
func ClockSettings(systemHz, targetHz uint32, dividers []uint16, maxCompare uint16) (ClockSetting, error) {
	if targetHz == 0 {
		return ClockSetting{}, errors.New("target frequency must be above zero")
	}

	for _, divider := range dividers {
		rate := float64(systemHz) / float64(divider)
		exact := rate/(2*float64(targetHz)) - 1
		compare := math.Round(exact)
		if compare < 0 {
			// larger dividers only make it worse
			break
		}
		if compare > float64(maxCompare) {
			continue
		}

		actual := rate / (2 * (compare + 1))
		setting := ClockSetting{
			Divider:  divider,
			Compare:  uint16(compare),
			ActualHz: actual,
			Error:    math.Abs(actual-float64(targetHz)) / float64(targetHz),
		}
		if setting.Error > ClockTolerance {
			return setting, errors.Errorf("closest achievable frequency %.0fHz is %.1f%% off %dHz", actual, setting.Error*100, targetHz)
		}
		return setting, nil
	}

	return ClockSetting{}, errors.Errorf("%dHz cannot be produced from %dHz with the available dividers", targetHz, systemHz)
}

// MustClockSettings is ClockSettings for build time constants. An
// unachievable frequency is a configuration mistake, so it panics.
func MustClockSettings(systemHz, targetHz uint32, dividers []uint16, maxCompare uint16) ClockSetting {
	setting, err := ClockSettings(systemHz, targetHz, dividers, maxCompare)
	if err != nil {
		log.Panicf("invalid clock configuration: %s", err)
	}
	return setting
}

// DefaultClock produces TargetClockHz from SystemClockHz
var DefaultClock = MustClockSettings(SystemClockHz, TargetClockHz, TimerDividers, TimerMaxCompare)

// ClockPeripheral owns the timer and pin that generate the chip's clock.
type ClockPeripheral struct {
	gpio    hal.GPIO
	timer   hal.Timer
	pin     hal.PinID
	setting ClockSetting
}

// NewClockPeripheral returns a clock generator. Nothing is touched until
// Configure is called.
func NewClockPeripheral(gpio hal.GPIO, timer hal.Timer, pin hal.PinID, setting ClockSetting) *ClockPeripheral {
	return &ClockPeripheral{
		gpio:    gpio,
		timer:   timer,
		pin:     pin,
		setting: setting,
	}
}

// Configure starts the square wave. The timer runs without software
// involvement afterwards; calling Configure again is not supported.
func (c *ClockPeripheral) Configure() {
	c.gpio.Configure(c.pin, hal.PinOutput)
	c.timer.Configure(hal.TimerConfig{
		Waveform: hal.WaveformCTC,
		Output:   hal.OutputToggle,
		Divider:  c.setting.Divider,
		Compare:  c.setting.Compare,
	})
}

// Setting returns the divider and compare value the clock is loaded with
func (c *ClockPeripheral) Setting() ClockSetting {
	return c.setting
}

func (c *ClockPeripheral) String() string {
	return "CLOCK"
}
