// Package player feeds YM register frames to a sound chip at the file's
// frame rate, either directly through frame.Registers or over a link to a
// board that applies them.
package player

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/common/log"
	"github.com/sema/ymbus/pkg/frame"
	"github.com/sema/ymbus/pkg/ymfile"
)

// Progress is the position of a running playback
type Progress struct {
	Frame   int
	Frames  int
	Elapsed time.Duration
	Total   time.Duration
}

func (p Progress) String() string {
	return fmt.Sprintf("%s / %s", minSec(p.Elapsed), minSec(p.Total))
}

func minSec(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// ProgressCallback is called after every frame
type ProgressCallback func(p Progress)

// Player writes frames to Output at a fixed rate
type Player struct {
	Output frame.Writer

	// Loop restarts playback at the file's loop frame instead of stopping
	Loop bool

	// Callback is called (if set) after every frame
	Callback ProgressCallback
}

// New returns a player writing to out
func New(out frame.Writer) *Player {
	return &Player{Output: out}
}

// Play writes the frames of f, one per tick of its frame rate, until the
// last frame or until ctx is done. The chip is always silenced before
// Play returns.
func (p *Player) Play(ctx context.Context, f *ymfile.File) (err error) {
	if f.FrameRate == 0 {
		return errors.New("frame rate must be above zero")
	}
	if len(f.Frames) == 0 {
		return nil
	}

	defer func() {
		if silenceErr := p.Silence(); silenceErr != nil && err == nil {
			err = silenceErr
		}
	}()

	interval := time.Second / time.Duration(f.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("playing %q by %q: %d frames at %dHz (%s)", f.Title, f.Author, len(f.Frames), f.FrameRate, minSec(f.Duration()))

	played := 0
	for i := 0; ; {
		if err := p.Output.WriteFrame(f.Frames[i]); err != nil {
			return errors.Wrapf(err, "writing frame %d", i)
		}
		played++

		if p.Callback != nil {
			p.Callback(Progress{
				Frame:   i + 1,
				Frames:  len(f.Frames),
				Elapsed: time.Duration(i+1) * interval,
				Total:   f.Duration(),
			})
		}

		i++
		if i == len(f.Frames) {
			if !p.Loop || int(f.LoopFrame) >= len(f.Frames) {
				break
			}
			log.Debugf("looping to frame %d", f.LoopFrame)
			i = int(f.LoopFrame)
		}

		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
		if ctx.Err() != nil {
			log.Infof("stopped after %d frames", played)
			return ctx.Err()
		}
	}

	log.Infof("finished after %d frames", played)
	return nil
}

// Silence writes zero to every register
func (p *Player) Silence() error {
	return errors.Wrap(p.Output.WriteFrame(make([]byte, frame.Size)), "silencing chip")
}
