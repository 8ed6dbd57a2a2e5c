package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/retro8/chip8vm/internal/console"
	"github.com/retro8/chip8vm/internal/hal"
	"github.com/retro8/chip8vm/internal/vm"
	"github.com/spf13/cobra"
)

// frontEnd is what main needs from a display backend: the machine-facing HAL
// plus teardown.
type frontEnd interface {
	vm.HAL
	Shutdown()
}

func newFrontEnd(name string) (frontEnd, error) {
	switch name {
	case "sdl":
		h, err := hal.New()
		if err != nil {
			return nil, fmt.Errorf("unable to initialize sdl front end: %w", err)
		}
		return h, nil

	case "term":
		c, err := console.New()
		if err != nil {
			return nil, fmt.Errorf("unable to initialize terminal front end: %w", err)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown display %q, want sdl or term", name)
	}
}

func main() {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
	}

	verbose := cmd.Flags().BoolP("verbose", "v", false, "enable verbose logging")
	display := cmd.Flags().StringP("display", "d", "sdl", "display front end, sdl or term")
	cycles := cmd.Flags().IntP("cycles", "c", vm.DefaultCyclesPerFrame, "instructions to execute per frame")

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		loggerOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if *verbose {
			loggerOpts.Level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))

		path := args[0]
		program, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to load file %q: %w", path, err)
		}

		front, err := newFrontEnd(*display)
		if err != nil {
			return err
		}
		defer front.Shutdown()

		runner := vm.NewRunner(vm.New(), program, *cycles)

		for {
			err = runner.Run(front)

			if errors.Is(err, vm.ErrQuit) {
				return nil
			}

			if errors.Is(err, vm.ErrReboot) {
				continue
			}

			return err
		}
	}

	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}
