package calibration

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/soar/camstick/internal/devicemap"
	"github.com/soar/camstick/internal/gamepad"
)

var (
	// ErrCancelled is returned when the operator aborts calibration.
	ErrCancelled = errors.New("calibration cancelled")
	// ErrDeviceLost is returned when the device stops responding mid-run.
	ErrDeviceLost = errors.New("device lost during calibration")
)

// Defaults for Options.
const (
	DefaultPollInterval    = 10 * time.Millisecond
	DefaultMaxReadFailures = 50
)

// Saver persists a completed calibration.
type Saver interface {
	SaveCalibration(devicemap.DeviceMap) error
}

// Options configures a Wizard.
type Options struct {
	// PollInterval is the delay between device readings.
	PollInterval time.Duration
	// MaxReadFailures is how many consecutive failed reads mean the device is gone.
	MaxReadFailures int
	Clock           clock.Clock
	// Prompt receives operator instructions. Nil discards them.
	Prompt io.Writer
}

// Wizard runs a Machine against a live device.
type Wizard struct {
	dev    gamepad.Device
	saver  Saver
	opts   Options
	logger *zap.SugaredLogger
}

// NewWizard returns a wizard for dev. saver may be nil, in which case the result is only
// returned.
func NewWizard(dev gamepad.Device, saver Saver, opts Options, logger *zap.SugaredLogger) *Wizard {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxReadFailures <= 0 {
		opts.MaxReadFailures = DefaultMaxReadFailures
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Prompt == nil {
		opts.Prompt = io.Discard
	}
	return &Wizard{dev: dev, saver: saver, opts: opts, logger: logger}
}

// Run probes the device until every control is captured, then saves and returns the
// map. Waits are unbounded; only ctx or a lost device end them early. Nothing is saved
// unless the run completes.
func (w *Wizard) Run(ctx context.Context) (devicemap.DeviceMap, error) {
	if w.dev.NumAxes() == 0 {
		return devicemap.DeviceMap{}, errors.Errorf("%s reports no axes; sticks cannot be calibrated", w.dev.Name())
	}

	fmt.Fprintln(w.opts.Prompt, "")
	fmt.Fprintln(w.opts.Prompt, "=== Controller Calibration ===")
	fmt.Fprintln(w.opts.Prompt, "For each prompt, press the requested control, then release it fully.")
	fmt.Fprintln(w.opts.Prompt, "Press Ctrl+C to abort; nothing is saved until every control is captured.")
	fmt.Fprintln(w.opts.Prompt, "")

	m := NewMachine(w.dev.NumHats(), func(line string) {
		fmt.Fprintln(w.opts.Prompt, line)
	})
	w.logger.Infow("calibration started",
		"device", w.dev.Name(),
		"axes", w.dev.NumAxes(),
		"buttons", w.dev.NumButtons(),
		"hats", w.dev.NumHats())

	ticker := w.opts.Clock.Ticker(w.opts.PollInterval)
	defer ticker.Stop()

	failures := 0
	for !m.Done() {
		select {
		case <-ctx.Done():
			done, total := m.Progress()
			w.logger.Infow("calibration cancelled", "step", done, "of", total)
			return devicemap.DeviceMap{}, errors.Wrap(ErrCancelled, ctx.Err().Error())
		default:
		}

		st, err := w.dev.Read()
		switch {
		case errors.Is(err, gamepad.ErrDisconnected):
			return devicemap.DeviceMap{}, errors.Wrap(ErrDeviceLost, err.Error())
		case err != nil:
			failures++
			w.logger.Debugw("calibration read failed", "error", err, "consecutive", failures)
			if failures >= w.opts.MaxReadFailures {
				return devicemap.DeviceMap{}, errors.Wrapf(ErrDeviceLost, "%d consecutive read failures: %v", failures, err)
			}
		default:
			failures = 0
			m.Feed(st)
			if m.Done() {
				continue
			}
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}

	result := m.Result()
	if err := result.Validate(w.dev.NumAxes(), w.dev.NumButtons(), w.dev.NumHats()); err != nil {
		return devicemap.DeviceMap{}, errors.Wrap(err, "calibration produced an invalid map")
	}
	if w.saver != nil {
		if err := w.saver.SaveCalibration(result); err != nil {
			return devicemap.DeviceMap{}, errors.Wrap(err, "saving calibration")
		}
		fmt.Fprintln(w.opts.Prompt, "")
		fmt.Fprintln(w.opts.Prompt, "Calibration saved.")
	}
	w.logger.Infow("calibration complete", "dpad_mode", result.DpadMode, "bindings", len(result.Bindings))
	return result, nil
}
