package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/retro8/chip8vm/internal/disasm"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	InstructionSize = 2
)

// Fatal machine faults. Any of these means the running program is malformed
// or uses an unsupported instruction; the machine must not be ticked again
// without a Reset.
var (
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrUnknownOpcode     = errors.New("unknown op code")
	ErrStackOverflow     = errors.New("call stack overflow")
	ErrStackUnderflow    = errors.New("call stack underflow")
	ErrProgramTooLarge   = errors.New("program too large")
)

type Machine struct {
	memory    [MemorySize]uint8    // Memory (4k); font sprites live below 0x050
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Call stack
	sp    uint16            // Stack pointer

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8 // Delay timer
	soundTimer uint8 // Sound timer

	gfx      [ScreenWidth * ScreenHeight]bool // Framebuffer, one cell per pixel
	keypad   [KeyCount]bool                   // Keypad state
	drawFlag bool                             // Indicates a draw has occurred
}

// New constructs a machine with the font set installed and the program
// counter at the entry address. The machine holds no program yet; the caller
// loads one with Load before the first Tick.
func New() *Machine {
	m := &Machine{}
	m.Reset()
	return m
}

// Reset restores the construction-time state: memory cleared with the font
// set reinstalled, registers, stack, timers, keypad and framebuffer zeroed,
// program counter back at the entry address. Loaded program bytes are wiped
// too, so the driver reloads them before the next Tick.
func (m *Machine) Reset() {
	*m = Machine{pc: ProgramStart, drawFlag: true}
	copy(m.memory[:], chip8Font[:])

	slog.Debug("reset machine", "pc", fmt.Sprintf("0x%04x", m.pc), "font", len(chip8Font))
}

// Load copies a program image into memory starting at the entry address. The
// machine performs no file I/O; reading the ROM from wherever it lives is the
// caller's job.
func (m *Machine) Load(program []byte) error {
	free := len(m.memory) - int(ProgramStart)
	if len(program) > free {
		return fmt.Errorf("%w: %d bytes, %d available", ErrProgramTooLarge, len(program), free)
	}

	copy(m.memory[ProgramStart:], program)

	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(program))
	return nil
}

// Tick runs exactly one fetch-decode-execute cycle. A non-nil error is one of
// the fatal faults above and aborts the program; there is no partial retry.
func (m *Machine) Tick() error {
	at := m.pc

	opcode, err := m.fetchOpcode()
	if err != nil {
		return err
	}

	op, err := decode(opcode)
	if err != nil {
		return err
	}

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", at),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"instr", disasm.Mnemonic(opcode),
		)
	}

	return m.execute(op)
}

func (m *Machine) fetchOpcode() (uint16, error) {
	if int(m.pc)+1 >= len(m.memory) {
		return 0, fmt.Errorf("%w: fetch at 0x%04x", ErrAddressOutOfRange, m.pc)
	}

	hi := m.memory[m.pc]
	lo := m.memory[m.pc+1]
	m.pc += InstructionSize

	opcode := uint16(hi)<<8 | uint16(lo) // Op code is two bytes
	return opcode, nil
}

// TickTimers advances the two countdown timers by one step and reports
// whether the sound timer just expired, which is the signal to play a tone.
// The driver calls this on a fixed 60 Hz schedule, independent of the
// instruction rate. Both timers saturate at zero.
func (m *Machine) TickTimers() bool {
	if m.delayTimer > 0 {
		m.delayTimer--
	}

	beep := false
	if m.soundTimer > 0 {
		if m.soundTimer == 1 {
			beep = true
		}
		m.soundTimer--
	}

	return beep
}

// Display returns the framebuffer as a row-major slice, one cell per pixel.
// Renderers must treat it as read-only.
func (m *Machine) Display() []bool {
	return m.gfx[:]
}

// PC returns the current program counter.
func (m *Machine) PC() uint16 {
	return m.pc
}

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// KeyDown marks a keypad key as pressed. Input front ends call this; the
// execution engine only ever reads the keypad.
func (m *Machine) KeyDown(key Key) {
	m.keypad[key] = true
}

// KeyUp marks a keypad key as released.
func (m *Machine) KeyUp(key Key) {
	m.keypad[key] = false
}
