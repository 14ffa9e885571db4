package analyzer

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sema/ymbus/pkg/ym2149"
)

type styles struct {
	index     lipgloss.Style
	address   lipgloss.Style
	value     lipgloss.Style
	timing    lipgloss.Style
	ok        lipgloss.Style
	violation lipgloss.Style
}

func newStyles() styles {
	return styles{
		index:     lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
		address:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(3)),
		value:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(6)),
		timing:    lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(4)),
		ok:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(2)),
		violation: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(1)),
	}
}

// OK is true when the trace contains no violations
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Write prints the decoded transactions, the control-line sequence and any
// violations
func (r Report) Write(w io.Writer) error {
	s := newStyles()
	var b strings.Builder

	for i, tx := range r.Transactions {
		fmt.Fprintf(&b, "%s reg %s <- %s  %s\n",
			s.index.Render(fmt.Sprintf("#%-3d %8v", i, tx.Start)),
			s.address.Render(fmt.Sprintf("0x%02x", tx.Address)),
			s.value.Render(fmt.Sprintf("0x%02x", tx.Value)),
			s.timing.Render(fmt.Sprintf("tAS=%v tAH=%v tDW=%v tDH=%v", tx.AddressSetup, tx.AddressHold, tx.WritePulse, tx.DataHold)),
		)
	}

	modes := make([]string, len(r.Modes))
	for i, m := range r.Modes {
		modes[i] = m.String()
	}
	fmt.Fprintf(&b, "control: %s\n", strings.Join(modes, " > "))

	if r.OK() {
		fmt.Fprintf(&b, "%s\n", s.ok.Render(" OK "))
	}
	for _, v := range r.Violations {
		fmt.Fprintf(&b, "%s %s\n", s.violation.Render(" VIOLATION "), v)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Write prints the measurement next to the frequency it should have
func (c ClockMeasurement) Write(w io.Writer, targetHz uint32) error {
	s := newStyles()
	deviation := 0.0
	if targetHz > 0 {
		deviation = (c.Hz - float64(targetHz)) / float64(targetHz) * 100
	}

	status := s.ok.Render(" OK ")
	if deviation > ym2149.ClockTolerance*100 || deviation < -ym2149.ClockTolerance*100 {
		status = s.violation.Render(" OFF ")
	}

	_, err := fmt.Fprintf(w, "clock: %s over %d cycles (%+.2f%% of %dHz), duty %.1f%% %s\n",
		s.timing.Render(fmt.Sprintf("%.0fHz", c.Hz)), c.Cycles, deviation, targetHz, c.Duty*100, status)
	return err
}
