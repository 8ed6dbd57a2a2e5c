package hal

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
)

const (
	toneHz     = 440
	toneMillis = 90
	sampleRate = 22050
	toneVolume = 24
)

// beeper plays the buzzer tone through an SDL audio device. The tone is a
// pre-rendered square wave; each beep queues one copy of it.
type beeper struct {
	device sdl.AudioDeviceID
	tone   []byte
}

func newBeeper() (*beeper, error) {
	spec := sdl.AudioSpec{
		Freq:     sampleRate,
		Format:   sdl.AUDIO_S8,
		Channels: 1,
		Samples:  512,
	}

	device, err := sdl.OpenAudioDevice("", false, &spec, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open sdl audio device: %w", err)
	}

	return &beeper{
		device: device,
		tone:   renderTone(),
	}, nil
}

func renderTone() []byte {
	const halfPeriod = sampleRate / (2 * toneHz)

	tone := make([]byte, sampleRate*toneMillis/1000)
	for i := range tone {
		sample := int8(toneVolume)
		if (i/halfPeriod)%2 == 1 {
			sample = -toneVolume
		}
		tone[i] = byte(sample)
	}

	return tone
}

func (b *beeper) beep() error {
	if err := sdl.QueueAudio(b.device, b.tone); err != nil {
		return fmt.Errorf("failed to queue sdl audio: %w", err)
	}

	sdl.PauseAudioDevice(b.device, false)
	return nil
}

func (b *beeper) shutdown() {
	sdl.CloseAudioDevice(b.device)
}
