// Package ymfile reads YM register dumps: a sequence of frames, each the
// content of the sound chip's registers at one tick of the player.
//
// See http://leonard.oxg.free.fr/ymformat.html for the format.
package ymfile

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
)

const (
	// FrameRegisters is the number of registers in a decoded frame
	FrameRegisters = 16

	// legacyRegisters is the frame size of YM3 files, and of YM5/YM6
	// files that omit the two I/O port registers
	legacyRegisters = 14

	signature = "LeOnArD!"
	trailer   = "End!"

	attrInterleaved = 0x01
)

var (
	// ErrSignature is returned for data that is not a YM file. LHA
	// compressed files, the usual distribution format, must be
	// unpacked first.
	ErrSignature = errors.New("not a YM file")

	// ErrShortFrames is returned when the file holds fewer frame bytes
	// than the header announces
	ErrShortFrames = errors.New("YM frame data too short")
)

// File is a decoded YM file
type File struct {
	// Version is the four byte file id, e.g. "YM6!"
	Version string

	// Frames holds FrameRegisters register values per frame
	Frames [][]byte

	FrameRate uint16
	ClockHz   uint32
	LoopFrame uint32

	Title   string
	Author  string
	Comment string

	Interleaved bool

	// Drums is the number of digidrum samples skipped while parsing
	Drums int

	// Trailer is false when the "End!" marker was missing after the frames
	Trailer bool
}

// Load reads and parses the file at path
func Load(path string) (*File, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading YM file")
	}

	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return f, nil
}

// Read parses a YM file from r
func Read(r io.Reader) (*File, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading YM data")
	}
	return Parse(data)
}

// Parse decodes a complete YM file
func Parse(data []byte) (*File, error) {
	if len(data) < 4 {
		return nil, ErrSignature
	}

	switch id := string(data[:4]); id {
	case "YM2!", "YM3!":
		return parseYM3(id, data[4:], false)
	case "YM3b":
		return parseYM3(id, data[4:], true)
	case "YM5!", "YM6!":
		return parseYM5(id, data)
	}
	return nil, errors.Wrapf(ErrSignature, "unsupported id %q", string(data[:4]))
}

// parseYM3 decodes the headerless Atari ST format: interleaved 14
// register frames at 50Hz, optionally followed by a loop frame.
func parseYM3(id string, body []byte, hasLoop bool) (*File, error) {
	f := &File{
		Version:     id,
		FrameRate:   50,
		ClockHz:     2000000,
		Interleaved: true,
		Trailer:     true,
	}

	if hasLoop {
		if len(body) < 4 {
			return nil, ErrShortFrames
		}
		f.LoopFrame = binary.BigEndian.Uint32(body[len(body)-4:])
		body = body[:len(body)-4]
	}

	frames := len(body) / legacyRegisters
	f.Frames = decodeFrames(body, frames, legacyRegisters, true)
	return f, nil
}

func parseYM5(id string, data []byte) (*File, error) {
	r := &reader{data: data, off: 4}
	if string(r.next(len(signature))) != signature {
		return nil, errors.Wrap(ErrSignature, "missing LeOnArD! signature")
	}

	f := &File{Version: id}
	nbFrames := r.u32()
	attrs := r.u32()
	drums := r.u16()
	f.ClockHz = r.u32()
	f.FrameRate = r.u16()
	f.LoopFrame = r.u32()
	r.next(int(r.u16())) // additional data, unused
	if r.err != nil {
		return nil, errors.Wrap(r.err, "reading YM header")
	}

	for i := 0; i < int(drums); i++ {
		r.next(int(r.u32()))
	}
	f.Drums = int(drums)

	f.Title = r.cstring()
	f.Author = r.cstring()
	f.Comment = r.cstring()
	if r.err != nil {
		return nil, errors.Wrap(r.err, "reading YM digidrums and metadata")
	}

	f.Interleaved = attrs&attrInterleaved != 0

	frames := int(nbFrames)
	remaining := len(data) - r.off
	registers := FrameRegisters
	if remaining < frames*FrameRegisters {
		if remaining < frames*legacyRegisters {
			return nil, errors.Wrapf(ErrShortFrames, "%d frames need %d bytes, %d left", frames, frames*legacyRegisters, remaining)
		}
		registers = legacyRegisters
	}

	f.Frames = decodeFrames(r.next(frames*registers), frames, registers, f.Interleaved)
	f.Trailer = bytes.HasPrefix(data[r.off:], []byte(trailer))
	return f, nil
}

// decodeFrames splits raw register data into FrameRegisters sized frames.
// Interleaved data stores all frames of register 0, then register 1, ...
func decodeFrames(raw []byte, frames, registers int, interleaved bool) [][]byte {
	buffer := make([]byte, frames*FrameRegisters)
	out := make([][]byte, frames)
	for i := range out {
		out[i] = buffer[i*FrameRegisters : (i+1)*FrameRegisters : (i+1)*FrameRegisters]
	}

	for i := 0; i < frames; i++ {
		for reg := 0; reg < registers; reg++ {
			if interleaved {
				out[i][reg] = raw[reg*frames+i]
			} else {
				out[i][reg] = raw[i*registers+reg]
			}
		}
	}
	return out
}

// Duration is the playing time of one pass through all frames
func (f *File) Duration() time.Duration {
	if f.FrameRate == 0 {
		return 0
	}
	return time.Duration(len(f.Frames)) * time.Second / time.Duration(f.FrameRate)
}

// reader is a big endian cursor that remembers the first short read
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) cstring() string {
	if r.err != nil {
		return ""
	}
	end := bytes.IndexByte(r.data[r.off:], 0)
	if end < 0 {
		r.err = io.ErrUnexpectedEOF
		return ""
	}
	s := string(r.data[r.off : r.off+end])
	r.off += end + 1
	return s
}
