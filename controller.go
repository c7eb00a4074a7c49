package main

import (
	"context"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/soar/camstick/internal/calibration"
	"github.com/soar/camstick/internal/config"
	"github.com/soar/camstick/internal/console"
	"github.com/soar/camstick/internal/gamepad/sdlreader"
	"github.com/soar/camstick/internal/hub"
	"github.com/soar/camstick/internal/output"
	"github.com/soar/camstick/internal/remap"
)

// controller owns the physical device and the virtual outputs. Everything it does runs
// on one locked OS thread, as SDL requires.
type controller struct {
	store       *config.Store
	broadcaster *hub.Broadcaster
	opts        options
	loop        atomic.Pointer[remap.Loop]
	logger      *zap.SugaredLogger
}

// stats reports the running loop's counters.
func (c *controller) stats() (remap.Stats, bool) {
	l := c.loop.Load()
	if l == nil {
		return remap.Stats{}, false
	}
	return l.Stats(), true
}

// run opens the device, calibrates it if needed, then remaps until ctx is done.
func (c *controller) run(ctx context.Context) (err error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := sdlreader.Init(); err != nil {
		return err
	}
	defer sdlreader.Quit()

	cfg := c.store.Snapshot()
	dev, err := sdlreader.Open(cfg.JoystickIndex, c.logger)
	if err != nil {
		return errors.Wrapf(err, "opening joystick %d", cfg.JoystickIndex)
	}
	defer func() { err = multierr.Append(err, dev.Close()) }()

	if !cfg.Calibrated || c.opts.Recalibrate {
		if err := c.calibrate(ctx, dev); err != nil {
			if errors.Is(err, calibration.ErrCancelled) {
				return nil
			}
			return err
		}
	}

	pad, err := output.NewUinputPad(c.opts.Uinput)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, pad.Close()) }()
	sink, err := output.NewUinputSink(c.opts.Uinput)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sink.Close()) }()

	loop := remap.NewLoop(c.store, dev, pad, sink, nil, c.logger.Named("loop"))
	c.broadcaster.SetTelemetry(loop.Telemetry())
	c.loop.Store(loop)
	defer c.loop.Store(nil)

	c.logger.Infow("remapping", "device", dev.Name(), "virtual_controller", c.opts.Uinput)
	return loop.Run(ctx)
}

func (c *controller) calibrate(ctx context.Context, dev *sdlreader.Reader) error {
	if !console.IsInteractive() {
		if c.opts.Recalibrate {
			return errors.New("--recalibrate needs an interactive terminal")
		}
		c.logger.Warn("controller is not calibrated and no terminal is attached; " +
			"buttons stay unmapped until calibration runs with --recalibrate")
		return nil
	}
	wizard := calibration.NewWizard(dev, c.store, calibration.Options{Prompt: os.Stdout}, c.logger.Named("calibration"))
	_, err := wizard.Run(ctx)
	return err
}
