// Package script runs Lua programs that drive the chip. Scripts see a
// global table "ym":
//
//	ym.write(register, value)   -- one register write
//	ym.frame({v0, v1, ...})     -- registers 0.. from a list
//	ym.silence()                -- zero every register
//	ym.wait(ms)                 -- pause between writes
//	ym.registers                -- number of chip registers
package script

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sema/ymbus/pkg/frame"
	lua "github.com/yuin/gopher-lua"
)

// Runner executes scripts against a chip
type Runner struct {
	chip frame.RegisterWriter

	// Wait pauses the script; it defaults to time.Sleep and may be
	// replaced when wall clock waits are not wanted
	Wait func(d time.Duration)

	// Writes counts register writes issued by scripts
	Writes int
}

// New returns a runner writing to chip
func New(chip frame.RegisterWriter) *Runner {
	return &Runner{chip: chip, Wait: time.Sleep}
}

// RunFile executes the script at path
func (r *Runner) RunFile(ctx context.Context, path string) error {
	return r.run(ctx, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// RunString executes source
func (r *Runner) RunString(ctx context.Context, source string) error {
	return r.run(ctx, func(L *lua.LState) error {
		return L.DoString(source)
	})
}

func (r *Runner) run(ctx context.Context, do func(L *lua.LState) error) error {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	ym := L.NewTable()
	L.SetField(ym, "write", L.NewFunction(r.write))
	L.SetField(ym, "frame", L.NewFunction(r.writeFrame))
	L.SetField(ym, "silence", L.NewFunction(r.silence))
	L.SetField(ym, "wait", L.NewFunction(r.wait))
	L.SetField(ym, "registers", lua.LNumber(frame.Size))
	L.SetGlobal("ym", ym)

	if err := do(L); err != nil {
		return errors.Wrap(err, "running script")
	}
	return nil
}

func (r *Runner) write(L *lua.LState) int {
	address := checkByte(L, 1)
	value := checkByte(L, 2)
	r.chip.WriteRegister(address, value)
	r.Writes++
	return 0
}

func (r *Runner) writeFrame(L *lua.LState) int {
	values := L.CheckTable(1)
	n := values.Len()
	if n > frame.Size {
		L.ArgError(1, "frame holds more values than the chip has registers")
		return 0
	}

	for i := 1; i <= n; i++ {
		v, ok := values.RawGetInt(i).(lua.LNumber)
		if !ok || v < 0 || v > 255 {
			L.ArgError(1, "frame values must be numbers from 0 to 255")
			return 0
		}
		r.chip.WriteRegister(byte(i-1), byte(v))
		r.Writes++
	}
	return 0
}

func (r *Runner) silence(L *lua.LState) int {
	for reg := 0; reg < frame.Size; reg++ {
		r.chip.WriteRegister(byte(reg), 0)
		r.Writes++
	}
	return 0
}

func (r *Runner) wait(L *lua.LState) int {
	ms := L.CheckNumber(1)
	if ms < 0 {
		L.ArgError(1, "wait must not be negative")
		return 0
	}
	r.Wait(time.Duration(float64(ms) * float64(time.Millisecond)))
	return 0
}

func checkByte(L *lua.LState, n int) byte {
	v := L.CheckInt(n)
	if v < 0 || v > 255 {
		L.ArgError(n, "must be from 0 to 255")
	}
	return byte(v)
}
