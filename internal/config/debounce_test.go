package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.viam.com/test"
)

func waitFlush(t *testing.T, ch <-chan map[string]any) map[string]any {
	t.Helper()
	select {
	case fields := <-ch:
		return fields
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer did not flush")
		return nil
	}
}

func expectNoFlush(t *testing.T, ch <-chan map[string]any) {
	t.Helper()
	select {
	case fields := <-ch:
		t.Fatalf("unexpected flush: %v", fields)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	mock := clock.NewMock()
	flushed := make(chan map[string]any, 4)
	d := NewDebouncer(mock, DefaultQuietPeriod, func(f map[string]any) { flushed <- f })

	d.Queue(map[string]any{"deadzone_left": 0.1})
	mock.Add(100 * time.Millisecond)
	d.Queue(map[string]any{"deadzone_left": 0.2, "wrap_yaw": false})
	mock.Add(100 * time.Millisecond)
	expectNoFlush(t, flushed)
	test.That(t, d.Pending(), test.ShouldBeTrue)

	mock.Add(20 * time.Millisecond)
	fields := waitFlush(t, flushed)
	test.That(t, fields, test.ShouldResemble, map[string]any{"deadzone_left": 0.2, "wrap_yaw": false})
	test.That(t, d.Pending(), test.ShouldBeFalse)

	mock.Add(time.Second)
	expectNoFlush(t, flushed)
}

func TestDebouncerFlushAndCancel(t *testing.T) {
	mock := clock.NewMock()
	flushed := make(chan map[string]any, 4)
	d := NewDebouncer(mock, DefaultQuietPeriod, func(f map[string]any) { flushed <- f })

	d.Queue(map[string]any{"poll_hz": 60})
	d.Flush()
	test.That(t, waitFlush(t, flushed), test.ShouldResemble, map[string]any{"poll_hz": 60})

	// the superseded timer must not write again
	mock.Add(time.Second)
	expectNoFlush(t, flushed)

	d.Queue(map[string]any{"poll_hz": 90})
	d.Cancel()
	mock.Add(time.Second)
	expectNoFlush(t, flushed)
	test.That(t, d.Pending(), test.ShouldBeFalse)

	// flushing with nothing pending is a no-op
	d.Flush()
	expectNoFlush(t, flushed)
}

func TestEditor(t *testing.T) {
	mock := clock.NewMock()
	doc := NewDocument(filepath.Join(t.TempDir(), "config.json"))
	res, err := Load(doc)
	test.That(t, err, test.ShouldBeNil)
	store := NewStore(res.Config, doc, res.Content, zap.NewNop().Sugar())

	statuses := make(chan Status, 16)
	e := NewEditor(store, mock, DefaultQuietPeriod, zap.NewNop().Sugar(), func(s Status) { statuses <- s })

	e.Edit(map[string]any{"mouse_accel": 2.0})
	test.That(t, (<-statuses).State, test.ShouldEqual, StatusSaving)
	test.That(t, store.Snapshot().MouseAccel, test.ShouldEqual, 1.35)

	mock.Add(DefaultQuietPeriod)
	select {
	case st := <-statuses:
		test.That(t, st.State, test.ShouldEqual, StatusSaved)
	case <-time.After(2 * time.Second):
		t.Fatal("edit was not committed")
	}
	test.That(t, store.Snapshot().MouseAccel, test.ShouldEqual, 2.0)

	loaded, err := Load(doc)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.Config.MouseAccel, test.ShouldEqual, 2.0)

	t.Run("save now flushes pending edits", func(t *testing.T) {
		e.Edit(map[string]any{"mouse_accel": 1.5})
		<-statuses
		test.That(t, e.SaveNow(), test.ShouldBeNil)
		test.That(t, store.Snapshot().MouseAccel, test.ShouldEqual, 1.5)
		test.That(t, e.Status().State, test.ShouldEqual, StatusSaved)
	})

	t.Run("reset drops pending edits", func(t *testing.T) {
		e.Edit(map[string]any{"deadzone_left": 0.5})
		test.That(t, e.ResetDefaults(), test.ShouldBeNil)
		mock.Add(time.Second)
		time.Sleep(20 * time.Millisecond)
		test.That(t, store.Snapshot().DeadzoneLeft, test.ShouldEqual, 0.12)
		test.That(t, store.Snapshot().MouseAccel, test.ShouldEqual, 1.35)
	})
}
