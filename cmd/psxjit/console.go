package main

import (
	"fmt"
	"os"

	"github.com/eiannone/keyboard"
	"golang.org/x/term"

	"psxrec/internal/recompiler"
)

// console is a one-word-wide memory-mapped TTY peripheral: a guest store
// to its base address prints the low byte, a guest load reads one key
// without echo. It implements recompiler.HWOps the way cmd/lc3's
// KBSR/KBDR-style console drove the keyboard package directly, rather
// than through a byte-addressed RAM buffer.
type console struct {
	oldState *term.State
}

func newConsole() (*console, error) {
	c := &console{}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		old, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return nil, fmt.Errorf("console: raw mode: %w", err)
		}
		c.oldState = old
	}
	if err := keyboard.Open(); err != nil {
		return nil, fmt.Errorf("console: keyboard: %w", err)
	}
	return c, nil
}

func (c *console) restore() {
	keyboard.Close()
	if c.oldState != nil {
		term.Restore(int(os.Stdin.Fd()), c.oldState)
	}
}

// LB reads one key from the keyboard, not echoed, matching TRAP_GETC.
func (c *console) LB(state *recompiler.State, op *recompiler.Opcode, addr uint32) uint8 {
	ch, key, err := keyboard.GetSingleKey()
	if err != nil {
		return 0
	}
	if key == keyboard.KeyCtrlC {
		state.SetExitFlags(recompiler.ExitHost0)
		return 0
	}
	return uint8(ch)
}

func (c *console) LH(state *recompiler.State, op *recompiler.Opcode, addr uint32) uint16 {
	return uint16(c.LB(state, op, addr))
}

func (c *console) LW(state *recompiler.State, op *recompiler.Opcode, addr uint32) uint32 {
	return uint32(c.LB(state, op, addr))
}

// SB prints the stored byte directly, matching TRAP_OUT.
func (c *console) SB(state *recompiler.State, op *recompiler.Opcode, addr uint32, data uint8) {
	fmt.Printf("%c", data)
}

func (c *console) SH(state *recompiler.State, op *recompiler.Opcode, addr uint32, data uint16) {
	c.SB(state, op, addr, uint8(data))
}

func (c *console) SW(state *recompiler.State, op *recompiler.Opcode, addr uint32, data uint32) {
	c.SB(state, op, addr, uint8(data))
}
