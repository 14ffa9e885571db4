// Package serial streams register frames to a board running the frame
// receiver, over a USB serial port.
package serial

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/term"
	"github.com/prometheus/common/log"
	"github.com/sema/ymbus/pkg/frame"
)

// DefaultBaud must match the speed the board's firmware listens at
const DefaultBaud = 9600

// ResetDelay is how long to wait after opening the port. Opening toggles
// DTR, which resets Arduino boards.
var ResetDelay = 2 * time.Second

// Port is an open serial link. It satisfies frame.Writer.
type Port struct {
	name string
	link io.WriteCloser
}

// Open opens the device in raw mode at baud and waits for the board to
// come out of reset
func Open(name string, baud int) (*Port, error) {
	t, err := term.Open(name, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, errors.Wrapf(err, "opening serial port %s", name)
	}

	log.Infof("opened %s at %d baud, waiting %v for board reset", name, baud, ResetDelay)
	time.Sleep(ResetDelay)
	return newPort(name, t), nil
}

func newPort(name string, link io.WriteCloser) *Port {
	return &Port{name: name, link: link}
}

// WriteFrame sends the raw register values of one frame
func (p *Port) WriteFrame(regs []byte) error {
	if len(regs) != frame.Size {
		return errors.Wrapf(frame.ErrSize, "got %d", len(regs))
	}

	n, err := p.link.Write(regs)
	if err != nil {
		return errors.Wrapf(err, "writing to %s", p.name)
	}
	if n != len(regs) {
		return errors.Wrapf(io.ErrShortWrite, "writing to %s", p.name)
	}
	return nil
}

// Close closes the port
func (p *Port) Close() error {
	return errors.Wrapf(p.link.Close(), "closing %s", p.name)
}

func (p *Port) String() string {
	return p.name
}
