package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/prometheus/common/log"
	"golang.org/x/term"

	"github.com/sema/ymbus/pkg/capture"
	"github.com/sema/ymbus/pkg/frame"
	"github.com/sema/ymbus/pkg/hal/sim"
	"github.com/sema/ymbus/pkg/player"
	"github.com/sema/ymbus/pkg/script"
	"github.com/sema/ymbus/pkg/serial"
	"github.com/sema/ymbus/pkg/vgm"
	"github.com/sema/ymbus/pkg/ym2149"
	"github.com/sema/ymbus/pkg/ym2149/analyzer"
	"github.com/sema/ymbus/pkg/ymfile"
)

// simulated wires a driver to a simulated board with the default wiring
func simulated() (*sim.Board, *ym2149.Driver) {
	board := sim.NewBoard(ym2149.SystemClockHz, ym2149.DefaultWiring.Clock)
	d := ym2149.New(board, board.Timer(), board)
	d.ConfigureClock()
	return board, d
}

// parseWrites reads ADDR VALUE pairs, in any base strconv accepts
func parseWrites(args []string) ([][2]byte, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, errors.New("expected ADDR VALUE pairs")
	}

	var writes [][2]byte
	for i := 0; i < len(args); i += 2 {
		var w [2]byte
		for j := range w {
			v, err := strconv.ParseUint(args[i+j], 0, 8)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %q", args[i+j])
			}
			w[j] = byte(v)
		}
		writes = append(writes, w)
	}
	return writes, nil
}

type traceCmd struct {
	Writes []string `arg:"" name:"write" help:"Register writes as ADDR VALUE pairs, e.g. 0x07 0x3e"`
}

func (c *traceCmd) Run() error {
	writes, err := parseWrites(c.Writes)
	if err != nil {
		return err
	}

	board, d := simulated()
	board.Discard()
	for _, w := range writes {
		d.WriteRegister(w[0], w[1])
	}

	report := analyzer.Decode(board, ym2149.DefaultWiring)
	if err := report.Write(os.Stdout); err != nil {
		return err
	}
	if !report.OK() {
		return errors.Errorf("%d bus violations", len(report.Violations))
	}
	return nil
}

// checkedFrames applies frames to a simulated driver and checks the bus
// trace of every frame
type checkedFrames struct {
	board      *sim.Board
	regs       frame.Registers
	writes     int
	violations int
}

func (c *checkedFrames) WriteFrame(regs []byte) error {
	c.board.Discard()
	if err := c.regs.WriteFrame(regs); err != nil {
		return err
	}

	report := analyzer.Decode(c.board, ym2149.DefaultWiring)
	c.writes += len(report.Transactions)
	for _, v := range report.Violations {
		log.Debugf("bus violation: %s", v)
	}
	c.violations += len(report.Violations)
	return nil
}

// progressLine redraws playback progress in place when stdout is a
// terminal and logs it otherwise
func progressLine() player.ProgressCallback {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return func(p player.Progress) {
			log.Debugf("frame %d/%d %s", p.Frame, p.Frames, p)
		}
	}
	return func(p player.Progress) {
		fmt.Printf("\x1b[2K\rPlaying %s", p)
		if p.Frame == p.Frames {
			fmt.Println()
		}
	}
}

// load reads a YM file, or a VGM/VGZ log converted to frames
func load(path string) (*ymfile.File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vgm", ".vgz":
		v, err := vgm.Load(path)
		if err != nil {
			return nil, err
		}
		f := v.Frames()
		log.Infof("%s: %d AY writes in %d frames, %v", filepath.Base(path), len(v.Writes), len(f.Frames), v.Duration())
		return f, nil
	}
	return ymfile.Load(path)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

type playCmd struct {
	Loop bool `help:"Restart at the loop frame instead of stopping"`

	Path string `arg:"" name:"path" help:"Path to YM, VGM or VGZ file" type:"path"`
}

func (c *playCmd) Run() error {
	f, err := load(c.Path)
	if err != nil {
		return err
	}

	board, d := simulated()
	out := &checkedFrames{board: board, regs: frame.Registers{Chip: d}}

	p := player.New(out)
	p.Loop = c.Loop
	p.Callback = progressLine()

	ctx, cancel := signalContext()
	defer cancel()

	err = p.Play(ctx, f)
	log.Infof("%d register writes, %d bus violations", out.writes, out.violations)
	if err == context.Canceled {
		return nil
	}
	if err == nil && out.violations > 0 {
		return errors.Errorf("%d bus violations", out.violations)
	}
	return err
}

type streamCmd struct {
	Port string `help:"Serial device of the board" env:"YMBUS_PORT" required:""`
	Baud int    `help:"Serial speed, must match the firmware" env:"YMBUS_BAUD" default:"9600"`
	Loop bool   `help:"Restart at the loop frame instead of stopping"`

	Path string `arg:"" name:"path" help:"Path to YM, VGM or VGZ file" type:"path"`
}

func (c *streamCmd) Run() error {
	f, err := load(c.Path)
	if err != nil {
		return err
	}

	port, err := serial.Open(c.Port, c.Baud)
	if err != nil {
		return err
	}
	defer port.Close()

	p := player.New(port)
	p.Loop = c.Loop
	p.Callback = progressLine()

	ctx, cancel := signalContext()
	defer cancel()

	if err := p.Play(ctx, f); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

type scriptCmd struct {
	Fast bool `help:"Skip the waits the script asks for"`

	Path string `arg:"" name:"path" help:"Path to Lua script" type:"path"`
}

func (c *scriptCmd) Run() error {
	board, d := simulated()
	board.Discard()

	r := script.New(d)
	if c.Fast {
		r.Wait = func(time.Duration) {}
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := r.RunFile(ctx, c.Path); err != nil {
		return err
	}
	log.Infof("script issued %d register writes", r.Writes)

	report := analyzer.Decode(board, ym2149.DefaultWiring)
	if !report.OK() {
		return report.Write(os.Stdout)
	}
	return nil
}

type captureCmd struct {
	Output string   `arg:"" name:"output" help:"WAV file to write" type:"path"`
	Writes []string `arg:"" name:"write" help:"Register writes as ADDR VALUE pairs"`
}

func (c *captureCmd) Run() error {
	writes, err := parseWrites(c.Writes)
	if err != nil {
		return err
	}

	board, d := simulated()
	for _, w := range writes {
		d.WriteRegister(w[0], w[1])
	}

	fp, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	defer fp.Close()

	channels := capture.Channels(ym2149.DefaultWiring)
	if err := capture.WriteWAV(fp, board, channels); err != nil {
		return err
	}
	log.Infof("wrote %v of %d channels to %s", board.Now(), len(channels), c.Output)
	return nil
}

type clockCmd struct {
	SystemHz uint32 `help:"Microcontroller clock" default:"16000000"`
	TargetHz uint32 `help:"Chip clock to generate" default:"2000000"`
}

func (c *clockCmd) Run() error {
	setting, err := ym2149.ClockSettings(c.SystemHz, c.TargetHz, ym2149.TimerDividers, ym2149.TimerMaxCompare)
	if err != nil {
		return err
	}
	fmt.Printf("divider %d, compare %d: %.0fHz (%.2f%% off)\n",
		setting.Divider, setting.Compare, setting.ActualHz, setting.Error*100)

	board := sim.NewBoard(c.SystemHz, ym2149.DefaultWiring.Clock)
	d := ym2149.NewWithConfig(board, board.Timer(), board, ym2149.DefaultWiring, ym2149.DefaultTiming, setting)
	d.ConfigureClock()

	// 100 periods of the output
	ticks := int(uint64(setting.Divider) * uint64(setting.Compare+1) * 2 * 100)
	m := analyzer.MeasureClock(board.ClockEdges(ticks), c.SystemHz)
	return m.Write(os.Stdout, c.TargetHz)
}

var root struct {
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"info"`

	Trace   traceCmd   `cmd:"" help:"Decode the bus trace of register writes"`
	Play    playCmd    `cmd:"" help:"Play a YM or VGM file on the simulated bus"`
	Stream  streamCmd  `cmd:"" help:"Stream a YM or VGM file to the board over serial"`
	Script  scriptCmd  `cmd:"" help:"Run a Lua script on the simulated bus"`
	Capture captureCmd `cmd:"" help:"Write the pin waveform of register writes to a WAV file"`
	Clock   clockCmd   `cmd:"" help:"Show the timer settings for a chip clock"`
}

func main() {
	cli := kong.Parse(&root, kong.Name("ymbus"), kong.Description("YM2149 bus driver tools"))
	cli.FatalIfErrorf(log.Base().SetLevel(root.LogLevel))
	err := cli.Run()
	cli.FatalIfErrorf(err)
}
