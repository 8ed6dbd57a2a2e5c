package console

import (
	"errors"
	"strings"
	"testing"

	"github.com/retro8/chip8vm/internal/vm"
	"github.com/retroenv/retrogolib/assert"
)

func TestRenderFrame(t *testing.T) {
	display := make([]bool, vm.ScreenWidth*vm.ScreenHeight)
	display[0] = true                // upper half only
	display[vm.ScreenWidth+1] = true // lower half only
	display[2] = true                // both halves
	display[vm.ScreenWidth+2] = true // ...of the same cell

	frame := renderFrame(display)
	lines := strings.Split(frame, "\r\n")

	assert.Equal(t, rows+1, len(lines)) // trailing line break leaves an empty tail
	assert.Equal(t, "", lines[rows])

	first := []rune(lines[0])
	assert.Equal(t, cols, len(first))
	assert.Equal(t, '▀', first[0])
	assert.Equal(t, '▄', first[1])
	assert.Equal(t, '█', first[2])
	assert.Equal(t, ' ', first[3])
}

func TestRenderFrameEmpty(t *testing.T) {
	display := make([]bool, vm.ScreenWidth*vm.ScreenHeight)

	frame := renderFrame(display)

	assert.False(t, strings.ContainsAny(frame, "▀▄█"))
}

func TestRenderFrameBottomRow(t *testing.T) {
	display := make([]bool, vm.ScreenWidth*vm.ScreenHeight)
	display[(vm.ScreenHeight-1)*vm.ScreenWidth] = true // bottom-left pixel

	frame := renderFrame(display)
	lines := strings.Split(frame, "\r\n")

	last := []rune(lines[rows-1])
	assert.Equal(t, '▄', last[0])
}

func TestKeyMap(t *testing.T) {
	tests := []struct {
		b   byte
		key vm.Key
	}{
		{'1', vm.Key1}, {'2', vm.Key2}, {'3', vm.Key3}, {'4', vm.KeyC},
		{'q', vm.Key4}, {'w', vm.Key5}, {'e', vm.Key6}, {'r', vm.KeyD},
		{'a', vm.Key7}, {'s', vm.Key8}, {'d', vm.Key9}, {'f', vm.KeyE},
		{'z', vm.KeyA}, {'x', vm.Key0}, {'c', vm.KeyB}, {'v', vm.KeyF},
		{'X', vm.Key0}, {'Q', vm.Key4},
	}

	for _, tt := range tests {
		key, ok := keyMap(tt.b)

		assert.True(t, ok, "byte %q not mapped", tt.b)
		assert.Equal(t, tt.key, key)
	}

	_, ok := keyMap('5')
	assert.False(t, ok)
	_, ok = keyMap(0x1b)
	assert.False(t, ok)
}

func TestReadInputMapsKeys(t *testing.T) {
	c := &Console{input: make(chan byte, 4)}
	c.input <- 'w'
	c.input <- 'w' // repeat must not fire a second press

	var down []vm.Key
	err := c.ReadInput(func(k vm.Key) { down = append(down, k) }, func(vm.Key) {})

	assert.NoError(t, err)
	assert.Equal(t, 1, len(down))
	assert.Equal(t, vm.Key5, down[0])
	assert.Equal(t, keyHoldFrames-1, c.held[vm.Key5]) // one frame already elapsed
}

func TestReadInputControlBytes(t *testing.T) {
	c := &Console{input: make(chan byte, 1)}

	c.input <- 0x03
	err := c.ReadInput(func(vm.Key) {}, func(vm.Key) {})
	assert.True(t, errors.Is(err, vm.ErrQuit))

	c.input <- 0x7f
	err = c.ReadInput(func(vm.Key) {}, func(vm.Key) {})
	assert.True(t, errors.Is(err, vm.ErrReboot))
}

func TestReadInputClosedChannel(t *testing.T) {
	c := &Console{input: make(chan byte)}
	close(c.input)

	err := c.ReadInput(func(vm.Key) {}, func(vm.Key) {})

	assert.True(t, errors.Is(err, vm.ErrQuit))
}

func TestKeyAutoRelease(t *testing.T) {
	c := &Console{input: make(chan byte, 1)}
	c.input <- 'w'

	var released []vm.Key
	keyUp := func(k vm.Key) { released = append(released, k) }

	// The pressing frame counts towards the hold time.
	assert.NoError(t, c.ReadInput(func(vm.Key) {}, keyUp))
	assert.Equal(t, 0, len(released))

	for frame := 2; frame < keyHoldFrames; frame++ {
		assert.NoError(t, c.ReadInput(func(vm.Key) {}, keyUp))
		assert.Equal(t, 0, len(released))
	}

	// Quiet frame number keyHoldFrames releases the key.
	assert.NoError(t, c.ReadInput(func(vm.Key) {}, keyUp))
	assert.Equal(t, 1, len(released))
	assert.Equal(t, vm.Key5, released[0])

	assert.NoError(t, c.ReadInput(func(vm.Key) {}, keyUp))
	assert.Equal(t, 1, len(released)) // released only once
}
