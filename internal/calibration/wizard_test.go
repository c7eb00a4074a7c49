package calibration

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.viam.com/test"

	"github.com/soar/camstick/internal/devicemap"
	"github.com/soar/camstick/internal/gamepad"
	"github.com/soar/camstick/internal/testutils/inject"
)

type recordingSaver struct {
	mu    sync.Mutex
	saved []devicemap.DeviceMap
	err   error
}

func (s *recordingSaver) SaveCalibration(m devicemap.DeviceMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, m)
	return nil
}

func (s *recordingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func newSimDevice(pad simPad) *inject.Device {
	return &inject.Device{DeviceName: "sim", Axes: 6, ButtonsN: pad.buttons, Hats: pad.hats}
}

func fastOptions(prompt *bytes.Buffer) Options {
	return Options{PollInterval: time.Millisecond, MaxReadFailures: 3, Prompt: prompt}
}

func TestWizardRun(t *testing.T) {
	pad := simPad{hats: 1, buttons: 12}
	dev := newSimDevice(pad)
	var frames []inject.Frame
	for _, st := range pad.session() {
		frames = append(frames, inject.Frame{State: st})
	}
	script := inject.NewScript(frames...)
	dev.ReadFunc = script.Read

	saver := &recordingSaver{}
	var prompt bytes.Buffer
	w := NewWizard(dev, saver, fastOptions(&prompt), zap.NewNop().Sugar())

	result, err := w.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, script.Remaining(), test.ShouldEqual, 0)
	test.That(t, saver.count(), test.ShouldEqual, 1)
	test.That(t, saver.saved[0], test.ShouldResemble, result)
	test.That(t, result.Bindings, test.ShouldHaveLength, len(devicemap.Controls))
	test.That(t, prompt.String(), test.ShouldContainSubstring, "Press D-PAD UP")
	test.That(t, prompt.String(), test.ShouldContainSubstring, "Calibration saved.")
}

func TestWizardCancelSavesNothing(t *testing.T) {
	pad := simPad{hats: 1, buttons: 12}
	dev := newSimDevice(pad)
	saver := &recordingSaver{}
	w := NewWizard(dev, saver, fastOptions(&bytes.Buffer{}), zap.NewNop().Sugar())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := w.Run(ctx)
	test.That(t, errors.Is(err, ErrCancelled), test.ShouldBeTrue)
	test.That(t, saver.count(), test.ShouldEqual, 0)
}

func TestWizardDeviceLost(t *testing.T) {
	pad := simPad{hats: 1, buttons: 12}

	t.Run("disconnect", func(t *testing.T) {
		dev := newSimDevice(pad)
		dev.ReadFunc = inject.NewScript(inject.Frame{State: pad.idle()}, inject.Frame{State: pad.axis(0, -1)}).Read
		saver := &recordingSaver{}
		_, err := NewWizard(dev, saver, fastOptions(&bytes.Buffer{}), zap.NewNop().Sugar()).Run(context.Background())
		test.That(t, errors.Is(err, ErrDeviceLost), test.ShouldBeTrue)
		test.That(t, saver.count(), test.ShouldEqual, 0)
	})

	t.Run("repeated read failures", func(t *testing.T) {
		dev := newSimDevice(pad)
		reads := 0
		dev.ReadFunc = func() (gamepad.State, error) {
			reads++
			return gamepad.State{}, errors.New("short read")
		}
		_, err := NewWizard(dev, nil, fastOptions(&bytes.Buffer{}), zap.NewNop().Sugar()).Run(context.Background())
		test.That(t, errors.Is(err, ErrDeviceLost), test.ShouldBeTrue)
		test.That(t, reads, test.ShouldEqual, 3)
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		dev := newSimDevice(pad)
		frames := []inject.Frame{{Err: errors.New("short read")}}
		for _, st := range pad.session() {
			frames = append(frames, inject.Frame{State: st})
		}
		dev.ReadFunc = inject.NewScript(frames...).Read
		_, err := NewWizard(dev, nil, fastOptions(&bytes.Buffer{}), zap.NewNop().Sugar()).Run(context.Background())
		test.That(t, err, test.ShouldBeNil)
	})
}

func TestWizardRequiresAxes(t *testing.T) {
	dev := &inject.Device{DeviceName: "buttons only", ButtonsN: 4}
	_, err := NewWizard(dev, nil, Options{}, zap.NewNop().Sugar()).Run(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no axes")
}

func TestWizardSaveFailure(t *testing.T) {
	pad := simPad{hats: 1, buttons: 12}
	dev := newSimDevice(pad)
	var frames []inject.Frame
	for _, st := range pad.session() {
		frames = append(frames, inject.Frame{State: st})
	}
	dev.ReadFunc = inject.NewScript(frames...).Read
	saver := &recordingSaver{err: errors.New("disk full")}

	_, err := NewWizard(dev, saver, fastOptions(&bytes.Buffer{}), zap.NewNop().Sugar()).Run(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "disk full")
}
