// Package frame applies register frames to a sound chip. A frame holds
// one value per chip register, register 0 first, and is the unit both the
// player and the serial link work in.
package frame

import (
	"io"

	"github.com/pkg/errors"
)

const (
	// Size is the number of registers in a frame
	Size = 16

	// envelopeShape is the register that restarts the envelope when
	// written. YM files store 0xFF in it when the shape does not change.
	envelopeShape     = 13
	envelopeUnchanged = 0xFF
)

// ErrSize is returned for frames that do not hold Size values
var ErrSize = errors.Errorf("frame must hold %d registers", Size)

// RegisterWriter stores a value in a chip register. The ym2149 driver
// satisfies it.
type RegisterWriter interface {
	WriteRegister(address, value byte)
}

// Writer accepts one frame at a time
type Writer interface {
	WriteFrame(frame []byte) error
}

// Registers writes frames register by register, from register 0 up
type Registers struct {
	Chip RegisterWriter
}

// WriteFrame writes every register of frame, leaving the envelope shape
// alone when the frame marks it unchanged
func (r Registers) WriteFrame(frame []byte) error {
	if len(frame) != Size {
		return errors.Wrapf(ErrSize, "got %d", len(frame))
	}
	for reg, v := range frame {
		if reg == envelopeShape && v == envelopeUnchanged {
			continue
		}
		r.Chip.WriteRegister(byte(reg), v)
	}
	return nil
}

// Receive reads frames from r, typically a serial link, and applies each
// to w as it arrives. It returns the number of frames applied once r is
// exhausted at a frame boundary.
func Receive(r io.Reader, w RegisterWriter) (int, error) {
	regs := Registers{Chip: w}
	buf := make([]byte, Size)

	frames := 0
	for {
		_, err := io.ReadFull(r, buf)
		switch {
		case err == io.EOF:
			return frames, nil
		case err == io.ErrUnexpectedEOF:
			return frames, errors.Wrapf(ErrSize, "link closed inside frame %d", frames)
		case err != nil:
			return frames, errors.Wrap(err, "reading frame")
		}

		if err := regs.WriteFrame(buf); err != nil {
			return frames, err
		}
		frames++
	}
}
