// Package vgm reads VGM and gzipped VGZ logs and turns their AY8910/YM2149
// register writes into frames the player can send to the chip.
//
// See https://vgmrips.net/wiki/VGM_Specification for the format.
package vgm

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"time"
	"unicode/utf16"

	"github.com/pkg/errors"
	"github.com/sema/ymbus/pkg/ymfile"
)

const (
	// SampleRate is the tick of every VGM wait command
	SampleRate = 44100

	// FrameRate is the rate frames are sampled at when converting a log
	FrameRate = 50

	samplesPerFrame = SampleRate / FrameRate

	signature    = "Vgm "
	gd3Signature = "Gd3 "

	offGD3      = 0x14
	offSamples  = 0x18
	offLoop     = 0x1C
	offData     = 0x34
	offAYClock  = 0x74
	offAYType   = 0x78
	legacyStart = 0x40

	// the top two bits of a clock field flag dual chip and variant use
	clockMask = 0x3FFFFFFF

	// register bit selecting the second chip of a dual chip log
	secondChip = 0x80

	envelopeShape = 13
)

var (
	// ErrSignature is returned for data that is neither VGM nor gzipped VGM
	ErrSignature = errors.New("not a VGM file")

	// ErrNoChip is returned for logs without a single AY8910/YM2149 write
	ErrNoChip = errors.New("VGM file has no AY8910/YM2149 writes")
)

// Write is one register write of the log
type Write struct {
	// Sample is the position of the write in 1/44100 s ticks
	Sample   uint64
	Register byte
	Value    byte
}

// File is a decoded VGM log
type File struct {
	// Version is the BCD version, e.g. 0x171
	Version uint32

	// ClockHz is the AY8910 clock, zero when the header does not carry one
	ClockHz uint32

	// ChipType is the AY8910 variant byte: 0x00 AY8910, 0x10 YM2149, ...
	ChipType byte

	Writes []Write

	// TotalSamples covers the whole log and at least its last write
	TotalSamples uint64

	// LoopSample is the position playback loops back to, if Loops
	LoopSample uint64
	Loops      bool

	Title  string
	Game   string
	System string
	Author string
	Date   string
}

// Load reads and parses the file at path
func Load(path string) (*File, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading VGM file")
	}

	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return f, nil
}

// Read parses a VGM or VGZ log from r
func Read(r io.Reader) (*File, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading VGM data")
	}
	return Parse(data)
}

// Parse decodes a complete log, unpacking it first when it is gzipped
func Parse(data []byte) (*File, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "opening VGZ")
		}
		defer gz.Close()
		if data, err = ioutil.ReadAll(gz); err != nil {
			return nil, errors.Wrap(err, "unpacking VGZ")
		}
	}

	if len(data) < legacyStart || string(data[:4]) != signature {
		return nil, ErrSignature
	}

	f := &File{Version: u32(data, 0x08)}

	start := uint32(legacyStart)
	if rel := u32(data, offData); f.Version >= 0x150 && rel != 0 {
		start = offData + rel
	}
	if int(start) > len(data) {
		return nil, errors.Errorf("data offset 0x%x beyond end of file", start)
	}

	// header fields past the data offset belong to the command stream
	if start >= offAYType+1 {
		f.ClockHz = u32(data, offAYClock) & clockMask
		f.ChipType = data[offAYType]
	}

	loopAt := uint32(0)
	if rel := u32(data, offLoop); rel != 0 {
		loopAt = offLoop + rel
	}

	if err := f.parseCommands(data, int(start), int(loopAt)); err != nil {
		return nil, err
	}
	if len(f.Writes) == 0 {
		return nil, ErrNoChip
	}

	f.TotalSamples = uint64(u32(data, offSamples))
	if last := f.Writes[len(f.Writes)-1].Sample + 1; last > f.TotalSamples {
		f.TotalSamples = last
	}

	if rel := u32(data, offGD3); rel != 0 {
		if err := f.parseGD3(data, int(offGD3+rel)); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *File) parseCommands(data []byte, i, loopAt int) error {
	sample := uint64(0)
	for i < len(data) {
		if loopAt != 0 && i == loopAt {
			f.LoopSample = sample
			f.Loops = true
		}

		cmd := data[i]
		size := commandSize(cmd)
		if cmd == 0x67 {
			if i+7 > len(data) {
				return errors.Errorf("truncated data block at 0x%x", i)
			}
			size = 7 + int(u32(data, i+3))
		}
		if size == 0 {
			return errors.Errorf("unknown command 0x%02x at 0x%x", cmd, i)
		}
		if i+size > len(data) {
			return errors.Errorf("truncated command 0x%02x at 0x%x", cmd, i)
		}

		switch {
		case cmd == 0x66:
			return nil
		case cmd == 0xA0:
			reg, value := data[i+1], data[i+2]
			if reg&secondChip == 0 && int(reg) < ymfile.FrameRegisters {
				f.Writes = append(f.Writes, Write{Sample: sample, Register: reg, Value: value})
			}
		case cmd == 0x61:
			sample += uint64(binary.LittleEndian.Uint16(data[i+1:]))
		case cmd == 0x62:
			sample += 735
		case cmd == 0x63:
			sample += 882
		case cmd >= 0x70 && cmd <= 0x7F:
			sample += uint64(cmd&0x0F) + 1
		case cmd >= 0x80 && cmd <= 0x8F:
			sample += uint64(cmd & 0x0F)
		}
		i += size
	}
	return nil
}

// commandSize is the length of a command including its opcode, or zero
// for opcodes the format does not define
func commandSize(cmd byte) int {
	switch {
	case cmd >= 0x30 && cmd <= 0x3F, cmd == 0x4F, cmd == 0x50, cmd == 0x94:
		return 2
	case cmd >= 0x40 && cmd <= 0x4E, cmd >= 0x51 && cmd <= 0x5F, cmd == 0x61,
		cmd >= 0xA0 && cmd <= 0xBF:
		return 3
	case cmd == 0x62, cmd == 0x63, cmd == 0x66, cmd >= 0x70 && cmd <= 0x8F:
		return 1
	case cmd == 0x67:
		return 7
	case cmd == 0x68:
		return 12
	case cmd == 0x90, cmd == 0x91, cmd == 0x95:
		return 5
	case cmd == 0x92:
		return 6
	case cmd == 0x93:
		return 11
	case cmd >= 0xC0 && cmd <= 0xDF:
		return 4
	case cmd >= 0xE0:
		return 5
	}
	return 0
}

// parseGD3 reads the tag block: "Gd3 ", version, length and then null
// terminated UTF-16LE strings.
func (f *File) parseGD3(data []byte, at int) error {
	if at+12 > len(data) || string(data[at:at+4]) != gd3Signature {
		return errors.Errorf("missing GD3 tag at 0x%x", at)
	}
	end := at + 12 + int(u32(data, at+8))
	if end > len(data) {
		end = len(data)
	}

	var fields []string
	var units []uint16
	for i := at + 12; i+1 < end; i += 2 {
		u := binary.LittleEndian.Uint16(data[i:])
		if u == 0 {
			fields = append(fields, string(utf16.Decode(units)))
			units = units[:0]
			continue
		}
		units = append(units, u)
	}

	// english and japanese pairs for track, game, system and author
	pick := func(n int) string {
		for _, idx := range []int{n, n + 1} {
			if idx < len(fields) && fields[idx] != "" {
				return fields[idx]
			}
		}
		return ""
	}
	f.Title = pick(0)
	f.Game = pick(2)
	f.System = pick(4)
	f.Author = pick(6)
	if len(fields) > 8 {
		f.Date = fields[8]
	}
	return nil
}

// Duration is the playing time of the log
func (f *File) Duration() time.Duration {
	return time.Duration(f.TotalSamples) * time.Second / SampleRate
}

// Frames samples the register state once per 1/50 s. Writes inside one
// frame collapse to the last value per register. The envelope shape
// register holds 0xFF, "unchanged", in frames that do not write it, since
// rewriting it restarts the envelope.
func (f *File) Frames() *ymfile.File {
	frames := int((f.TotalSamples + samplesPerFrame - 1) / samplesPerFrame)
	out := &ymfile.File{
		Version:   fmt.Sprintf("VGM %x.%02x", f.Version>>8, f.Version&0xFF),
		Frames:    make([][]byte, frames),
		FrameRate: FrameRate,
		ClockHz:   f.ClockHz,
		Title:     f.Title,
		Author:    f.Author,
		Comment:   f.Game,
		Trailer:   true,
	}
	if f.Loops {
		out.LoopFrame = uint32(f.LoopSample / samplesPerFrame)
	}

	var regs [ymfile.FrameRegisters]byte
	next := 0
	for i := range out.Frames {
		end := uint64(i+1) * samplesPerFrame
		shape := false
		for ; next < len(f.Writes) && f.Writes[next].Sample < end; next++ {
			w := f.Writes[next]
			regs[w.Register] = w.Value
			if w.Register == envelopeShape {
				shape = true
				// the chip only reads the low nibble; keep the value clear
				// of the "unchanged" marker
				regs[w.Register] &= 0x0F
			}
		}

		frame := make([]byte, ymfile.FrameRegisters)
		copy(frame, regs[:])
		if !shape {
			frame[envelopeShape] = 0xFF
		}
		out.Frames[i] = frame
	}
	return out
}

func u32(data []byte, off int) uint32 {
	if off+4 > len(data) {
		return 0
	}
	return binary.LittleEndian.Uint32(data[off:])
}
