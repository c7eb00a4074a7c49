package config

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Editor status values reported to the settings surface.
const (
	StatusSaving = "saving"
	StatusSaved  = "saved"
	StatusError  = "error"
)

// Status is the editor's save state.
type Status struct {
	State   string    `json:"state"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Editor is the settings surface's entry point into the store. Edits are debounced so a
// slider drag produces one write after the user pauses.
type Editor struct {
	store    *Store
	debounce *Debouncer
	clock    clock.Clock
	logger   *zap.SugaredLogger

	mu       sync.Mutex
	status   Status
	onStatus func(Status)
}

// NewEditor returns an editor over store. onStatus, if set, is called on every status
// change; it must not block.
func NewEditor(store *Store, clk clock.Clock, quiet time.Duration, logger *zap.SugaredLogger, onStatus func(Status)) *Editor {
	if clk == nil {
		clk = clock.New()
	}
	e := &Editor{
		store:    store,
		clock:    clk,
		logger:   logger,
		onStatus: onStatus,
		status:   Status{State: StatusSaved, At: clk.Now()},
	}
	e.debounce = NewDebouncer(clk, quiet, e.commit)
	return e
}

// Edit queues a partial update.
func (e *Editor) Edit(fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	e.setStatus(StatusSaving, "")
	e.debounce.Queue(fields)
}

// SaveNow writes any pending edit, then the full document, and refreshes the store's
// record of what is on disk.
func (e *Editor) SaveNow() error {
	e.debounce.Flush()
	if err := e.store.SaveNow(); err != nil {
		e.setStatus(StatusError, err.Error())
		return err
	}
	e.store.MarkSaved()
	e.setStatus(StatusSaved, "")
	return nil
}

// ResetDefaults drops any pending edit and restores the defaults, keeping calibration.
func (e *Editor) ResetDefaults() error {
	e.debounce.Cancel()
	if err := e.store.ResetDefaults(); err != nil {
		e.setStatus(StatusError, err.Error())
		return err
	}
	e.setStatus(StatusSaved, "")
	return nil
}

// Close writes any pending edit.
func (e *Editor) Close() {
	e.debounce.Flush()
}

// Snapshot returns the committed settings; pending edits are not included.
func (e *Editor) Snapshot() Config {
	return e.store.Snapshot()
}

// Status returns the current save state.
func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Editor) commit(fields map[string]any) {
	dropped, err := e.store.UpdateAndSave(fields)
	if err != nil {
		e.logger.Warnw("saving edit failed", "error", err)
		e.setStatus(StatusError, err.Error())
		return
	}
	if len(dropped) > 0 {
		e.setStatus(StatusSaved, dropped[0].Error())
		return
	}
	e.setStatus(StatusSaved, "")
}

func (e *Editor) setStatus(state, msg string) {
	e.mu.Lock()
	e.status = Status{State: state, Message: msg, At: e.clock.Now()}
	st := e.status
	cb := e.onStatus
	e.mu.Unlock()
	if cb != nil {
		cb(st)
	}
}
