package ymfile

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type header struct {
	id        string
	frames    uint32
	attrs     uint32
	drums     [][]byte
	clock     uint32
	rate      uint16
	loop      uint32
	title     string
	author    string
	comment   string
	registers int
}

// build encodes a YM5/YM6 file whose frame i holds i*0x10+reg in every
// register reg
func build(h header) []byte {
	var b bytes.Buffer
	b.WriteString(h.id)
	b.WriteString(signature)
	binary.Write(&b, binary.BigEndian, h.frames)
	binary.Write(&b, binary.BigEndian, h.attrs)
	binary.Write(&b, binary.BigEndian, uint16(len(h.drums)))
	binary.Write(&b, binary.BigEndian, h.clock)
	binary.Write(&b, binary.BigEndian, h.rate)
	binary.Write(&b, binary.BigEndian, h.loop)
	binary.Write(&b, binary.BigEndian, uint16(0))
	for _, d := range h.drums {
		binary.Write(&b, binary.BigEndian, uint32(len(d)))
		b.Write(d)
	}
	for _, s := range []string{h.title, h.author, h.comment} {
		b.WriteString(s)
		b.WriteByte(0)
	}

	frames := int(h.frames)
	if h.attrs&attrInterleaved != 0 {
		for reg := 0; reg < h.registers; reg++ {
			for i := 0; i < frames; i++ {
				b.WriteByte(byte(i*0x10 + reg))
			}
		}
	} else {
		for i := 0; i < frames; i++ {
			for reg := 0; reg < h.registers; reg++ {
				b.WriteByte(byte(i*0x10 + reg))
			}
		}
	}
	b.WriteString(trailer)
	return b.Bytes()
}

func requireFramePattern(t *testing.T, f *File, registers int) {
	for i, frame := range f.Frames {
		require.Len(t, frame, FrameRegisters)
		for reg := 0; reg < FrameRegisters; reg++ {
			want := byte(0)
			if reg < registers {
				want = byte(i*0x10 + reg)
			}
			require.Equal(t, want, frame[reg], "frame %d register %d", i, reg)
		}
	}
}

func TestParseInterleavedYM6(t *testing.T) {
	data := build(header{
		id:        "YM6!",
		frames:    4,
		attrs:     attrInterleaved,
		clock:     2000000,
		rate:      50,
		loop:      1,
		title:     "Tune",
		author:    "Someone",
		comment:   "Converted",
		registers: 16,
	})

	f, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, "YM6!", f.Version)
	require.Equal(t, uint32(2000000), f.ClockHz)
	require.Equal(t, uint16(50), f.FrameRate)
	require.Equal(t, uint32(1), f.LoopFrame)
	require.Equal(t, "Tune", f.Title)
	require.Equal(t, "Someone", f.Author)
	require.Equal(t, "Converted", f.Comment)
	require.True(t, f.Interleaved)
	require.True(t, f.Trailer)
	require.Len(t, f.Frames, 4)
	requireFramePattern(t, f, 16)
}

func TestParseSequentialYM5(t *testing.T) {
	f, err := Parse(build(header{id: "YM5!", frames: 3, rate: 50, registers: 16}))
	require.NoError(t, err)
	require.False(t, f.Interleaved)
	requireFramePattern(t, f, 16)
}

func TestParseLegacyFrameSize(t *testing.T) {
	f, err := Parse(build(header{id: "YM5!", frames: 5, attrs: attrInterleaved, rate: 50, registers: 14}))
	require.NoError(t, err)
	require.Len(t, f.Frames, 5)
	requireFramePattern(t, f, 14)
}

func TestParseSkipsDigidrums(t *testing.T) {
	f, err := Parse(build(header{
		id:        "YM6!",
		frames:    2,
		attrs:     attrInterleaved,
		rate:      50,
		drums:     [][]byte{{1, 2, 3}, {4, 5}},
		title:     "Drums",
		registers: 16,
	}))
	require.NoError(t, err)
	require.Equal(t, 2, f.Drums)
	require.Equal(t, "Drums", f.Title)
	requireFramePattern(t, f, 16)
}

func TestParseYM3(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("YM3!")
	frames := 3
	for reg := 0; reg < 14; reg++ {
		for i := 0; i < frames; i++ {
			b.WriteByte(byte(i*0x10 + reg))
		}
	}

	f, err := Parse(b.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint16(50), f.FrameRate)
	require.Equal(t, uint32(2000000), f.ClockHz)
	require.Len(t, f.Frames, 3)
	requireFramePattern(t, f, 14)
}

func TestParseYM3bLoop(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("YM3b")
	b.Write(make([]byte, 14*2))
	binary.Write(&b, binary.BigEndian, uint32(1))

	f, err := Parse(b.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Frames, 2)
	require.Equal(t, uint32(1), f.LoopFrame)
}

func TestParseErrors(t *testing.T) {
	full := build(header{id: "YM6!", frames: 10, attrs: attrInterleaved, rate: 50, registers: 16})

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "empty",
			data: nil,
			want: ErrSignature,
		},
		{
			name: "LHA archive",
			data: []byte("\x24\x1a-lh5-"),
			want: ErrSignature,
		},
		{
			name: "bad signature",
			data: append([]byte("YM6!LeOnArD?"), make([]byte, 32)...),
			want: ErrSignature,
		},
		{
			name: "truncated frames",
			data: full[:len(full)-100],
			want: ErrShortFrames,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseMissingTrailer(t *testing.T) {
	data := build(header{id: "YM6!", frames: 2, rate: 50, registers: 16})
	f, err := Parse(data[:len(data)-len(trailer)])
	require.NoError(t, err)
	require.False(t, f.Trailer)
}

func TestDuration(t *testing.T) {
	f := &File{Frames: make([][]byte, 150), FrameRate: 50}
	require.Equal(t, 3*time.Second, f.Duration())
	require.Zero(t, (&File{}).Duration())
}

func TestRead(t *testing.T) {
	f, err := Read(bytes.NewReader(build(header{id: "YM6!", frames: 1, rate: 60, registers: 16})))
	require.NoError(t, err)
	require.Equal(t, uint16(60), f.FrameRate)
}
