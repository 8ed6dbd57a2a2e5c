package vm

import (
	"errors"
	"fmt"
	"log/slog"
)

// HAL is the hardware surface a front end provides: keypad events in,
// framebuffer and tone out, and the fixed-rate frame pacing the timer
// contract relies on.
type HAL interface {
	ReadInput(keyDown func(Key), keyUp func(Key)) error
	Draw(display []bool) error
	Beep() error
	WaitForNextFrame() error
}

// Control-flow signals shared by every HAL implementation. ReadInput returns
// ErrQuit when the user closes the emulator and ErrReboot when they ask for a
// fresh boot of the same program.
var (
	ErrQuit   = errors.New("quit")
	ErrReboot = errors.New("reboot")
)

var errInfiniteLoop = errors.New("infinite loop")

// DefaultCyclesPerFrame is the conventional interpreter speed: ten
// instructions per 60 Hz frame, roughly 600 per second.
const DefaultCyclesPerFrame = 10

// Runner drives a Machine at a fixed cadence: a number of instructions per
// frame, one timer step per frame, frames paced by the HAL. The program image
// lives here rather than in the Machine, so a reboot is a plain Reset and
// reload.
type Runner struct {
	machine        *Machine
	program        []byte
	cyclesPerFrame int
}

func NewRunner(machine *Machine, program []byte, cyclesPerFrame int) *Runner {
	if cyclesPerFrame <= 0 {
		cyclesPerFrame = DefaultCyclesPerFrame
	}

	return &Runner{
		machine:        machine,
		program:        program,
		cyclesPerFrame: cyclesPerFrame,
	}
}

// Run boots the machine and executes frames until the front end reports quit
// or reboot, or the machine faults. A program that parks itself on a
// jump-to-self has finished; Run keeps its last frame on screen and waits for
// quit or reboot.
func (r *Runner) Run(hal HAL) error {
	r.machine.Reset()
	if err := r.machine.Load(r.program); err != nil {
		return err
	}

	for {
		err := r.runFrame(hal)
		if err != nil {
			if errors.Is(err, errInfiniteLoop) {
				slog.Info("program looped")
				return r.waitForReboot(hal)
			}

			return err
		}
	}
}

func (r *Runner) runFrame(hal HAL) error {
	for i := 0; i < r.cyclesPerFrame; i++ {
		at := r.machine.pc
		if err := r.machine.Tick(); err != nil {
			return err
		}

		if r.machine.pc == at {
			return fmt.Errorf("%w at 0x%04x", errInfiniteLoop, at)
		}
	}

	if r.machine.TickTimers() {
		if err := hal.Beep(); err != nil {
			return err
		}
	}

	if r.machine.drawFlag {
		if err := hal.Draw(r.machine.Display()); err != nil {
			return err
		}
		r.machine.drawFlag = false
	}

	if err := hal.ReadInput(r.machine.KeyDown, r.machine.KeyUp); err != nil {
		return err
	}

	return hal.WaitForNextFrame()
}

func (r *Runner) waitForReboot(hal HAL) error {
	for {
		if err := hal.WaitForNextFrame(); err != nil {
			return err
		}

		if err := hal.ReadInput(func(_ Key) {}, func(_ Key) {}); err != nil {
			return err
		}
	}
}
