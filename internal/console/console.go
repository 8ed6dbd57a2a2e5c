// Package console is the terminal front end: raw-mode keyboard input, the
// framebuffer drawn with half-block glyphs and the terminal bell as the
// buzzer. It implements the same HAL contract as the SDL front end for
// machines without a display server.
package console

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/retro8/chip8vm/internal/vm"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const (
	frameRate = 60

	// Two framebuffer rows pack into one text row via half-block glyphs.
	rows = vm.ScreenHeight / 2
	cols = vm.ScreenWidth

	// Terminals deliver key presses but no releases; a pressed key is
	// released again after this many frames without a repeat.
	keyHoldFrames = 6
)

type Console struct {
	out      *os.File
	oldState *term.State
	frame    *time.Ticker
	input    chan byte
	held     [vm.KeyCount]int
}

func New() (*Console, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}

	if err := checkWindowSize(int(os.Stdout.Fd())); err != nil {
		return nil, err
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}
	slog.Debug("console: enter raw mode")

	c := &Console{
		out:      os.Stdout,
		oldState: oldState,
		frame:    time.NewTicker(time.Second / frameRate),
		input:    make(chan byte, 64),
	}

	go c.readKeys()

	fmt.Fprint(c.out, "\x1b[2J\x1b[?25l") // clear screen, hide cursor
	return c, nil
}

// checkWindowSize rejects terminals that cannot fit the frame. One extra row
// keeps the last frame line from scrolling away.
func checkWindowSize(fd int) error {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		slog.Debug("console: cannot query window size", "err", err)
		return nil
	}

	if int(ws.Col) < cols || int(ws.Row) < rows+1 {
		return fmt.Errorf("terminal too small: need %dx%d, have %dx%d", cols, rows+1, ws.Col, ws.Row)
	}

	return nil
}

func (c *Console) Shutdown() {
	c.frame.Stop()

	fmt.Fprint(c.out, "\x1b[?25h\x1b[2J\x1b[H") // show cursor, clear screen

	if err := term.Restore(int(os.Stdin.Fd()), c.oldState); err != nil {
		slog.Error("failed to restore terminal", "err", err)
	}
}

// readKeys pumps stdin bytes into the input channel so that ReadInput never
// blocks the frame loop.
func (c *Console) readKeys() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			close(c.input)
			return
		}

		if n == 1 {
			c.input <- buf[0]
		}
	}
}

func (c *Console) ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error {
	for {
		select {
		case b, ok := <-c.input:
			if !ok {
				return vm.ErrQuit
			}

			switch b {
			case 0x03: // Ctrl-C
				slog.Debug("console: exit requested")
				return vm.ErrQuit
			case 0x08, 0x7f: // Backspace
				return vm.ErrReboot
			}

			if key, mapped := keyMap(b); mapped {
				if c.held[key] == 0 {
					keyDown(key)
				}
				c.held[key] = keyHoldFrames
			}

		default:
			c.releaseKeys(keyUp)
			return nil
		}
	}
}

func (c *Console) releaseKeys(keyUp func(vm.Key)) {
	for key := range c.held {
		if c.held[key] == 0 {
			continue
		}

		c.held[key]--
		if c.held[key] == 0 {
			keyUp(vm.Key(key))
		}
	}
}

func keyMap(b byte) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | e |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	switch b {
	case 'x', 'X':
		return vm.Key0, true
	case '1':
		return vm.Key1, true
	case '2':
		return vm.Key2, true
	case '3':
		return vm.Key3, true
	case 'q', 'Q':
		return vm.Key4, true
	case 'w', 'W':
		return vm.Key5, true
	case 'e', 'E':
		return vm.Key6, true
	case 'a', 'A':
		return vm.Key7, true
	case 's', 'S':
		return vm.Key8, true
	case 'd', 'D':
		return vm.Key9, true
	case 'z', 'Z':
		return vm.KeyA, true
	case 'c', 'C':
		return vm.KeyB, true
	case '4':
		return vm.KeyC, true
	case 'r', 'R':
		return vm.KeyD, true
	case 'f', 'F':
		return vm.KeyE, true
	case 'v', 'V':
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (c *Console) Draw(display []bool) error {
	if _, err := c.out.WriteString("\x1b[H" + renderFrame(display)); err != nil {
		return fmt.Errorf("failed to draw frame: %w", err)
	}

	return nil
}

// renderFrame folds the framebuffer into text, two pixel rows per line. A
// glyph covers the upper half, lower half, both or neither of a cell.
func renderFrame(display []bool) string {
	var b strings.Builder
	b.Grow(rows * (3*cols + 2))

	for row := 0; row < rows; row++ {
		for x := 0; x < cols; x++ {
			top := display[(2*row)*vm.ScreenWidth+x]
			bottom := display[(2*row+1)*vm.ScreenWidth+x]

			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteByte(' ')
			}
		}

		b.WriteString("\r\n")
	}

	return b.String()
}

func (c *Console) Beep() error {
	if _, err := c.out.WriteString("\a"); err != nil {
		return fmt.Errorf("failed to ring bell: %w", err)
	}

	return nil
}

// WaitForNextFrame blocks until the next tick of the 60 Hz frame clock.
func (c *Console) WaitForNextFrame() error {
	<-c.frame.C
	return nil
}
