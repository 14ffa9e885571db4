package player

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sema/ymbus/pkg/frame"
	"github.com/sema/ymbus/pkg/hal/sim"
	"github.com/sema/ymbus/pkg/ym2149"
	"github.com/sema/ymbus/pkg/ym2149/analyzer"
	"github.com/sema/ymbus/pkg/ymfile"
	"github.com/stretchr/testify/require"
)

type recordingLink struct {
	frames [][]byte
	failAt int
}

func (l *recordingLink) WriteFrame(regs []byte) error {
	if l.failAt > 0 && len(l.frames) == l.failAt {
		return errors.New("link down")
	}
	l.frames = append(l.frames, append([]byte(nil), regs...))
	return nil
}

func testFile(frames int) *ymfile.File {
	f := &ymfile.File{FrameRate: 1000}
	for i := 0; i < frames; i++ {
		regs := make([]byte, frame.Size)
		for reg := range regs {
			regs[reg] = byte(i + reg)
		}
		f.Frames = append(f.Frames, regs)
	}
	return f
}

func TestPlayWritesAllFramesThenSilence(t *testing.T) {
	link := &recordingLink{}
	f := testFile(5)

	var progress []Progress
	p := New(link)
	p.Callback = func(pr Progress) {
		progress = append(progress, pr)
	}

	require.NoError(t, p.Play(context.Background(), f))
	require.Len(t, link.frames, 6)
	require.Equal(t, f.Frames, link.frames[:5])
	require.Equal(t, make([]byte, frame.Size), link.frames[5])

	require.Len(t, progress, 5)
	require.Equal(t, 5, progress[4].Frame)
	require.Equal(t, 5*time.Millisecond, progress[4].Elapsed)
}

func TestPlayLoopsUntilCancelled(t *testing.T) {
	link := &recordingLink{}
	f := testFile(3)
	f.LoopFrame = 1

	ctx, cancel := context.WithCancel(context.Background())
	p := New(link)
	p.Loop = true
	p.Callback = func(pr Progress) {
		if len(link.frames) == 7 {
			cancel()
		}
	}

	err := p.Play(ctx, f)
	require.Equal(t, context.Canceled, err)

	// 0 1 2 1 2 1 2, then silence
	require.Len(t, link.frames, 8)
	require.Equal(t, f.Frames[1], link.frames[3])
	require.Equal(t, f.Frames[2], link.frames[6])
	require.Equal(t, make([]byte, frame.Size), link.frames[7])
}

func TestPlaySilencesAfterLinkFailure(t *testing.T) {
	link := &recordingLink{failAt: 2}
	err := New(link).Play(context.Background(), testFile(4))
	require.Error(t, err)
	require.Contains(t, err.Error(), "writing frame 2")
}

func TestPlayRejectsZeroFrameRate(t *testing.T) {
	f := testFile(1)
	f.FrameRate = 0
	require.Error(t, New(&recordingLink{}).Play(context.Background(), f))
}

func TestProgressString(t *testing.T) {
	p := Progress{Elapsed: 65 * time.Second, Total: 3*time.Minute + 7*time.Second}
	require.Equal(t, "01:05 / 03:07", p.String())
}

func TestPlayThroughDriver(t *testing.T) {
	board := sim.NewBoard(ym2149.SystemClockHz, ym2149.DefaultWiring.Clock)
	d := ym2149.New(board, board.Timer(), board)
	d.ConfigureClock()
	board.Discard()

	f := testFile(2)
	require.NoError(t, New(frame.Registers{Chip: d}).Play(context.Background(), f))

	report := analyzer.Decode(board, ym2149.DefaultWiring)
	require.True(t, report.OK(), "%v", report.Violations)
	require.Len(t, report.Transactions, 3*frame.Size)
	for i, tx := range report.Transactions[:2*frame.Size] {
		n, reg := i/frame.Size, i%frame.Size
		require.Equal(t, byte(reg), tx.Address)
		require.Equal(t, f.Frames[n][reg], tx.Value)
	}
}
