package config

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/soar/camstick/internal/devicemap"
)

// Store shares one Config between the remap loop and the settings surface. Every method
// is safe for concurrent use. Writers racing on the same key leave whichever ran last
// inside the lock.
type Store struct {
	mu          sync.Mutex
	cfg         Config
	doc         *Document
	lastWritten []byte
	logger      *zap.SugaredLogger

	subMu       sync.Mutex
	subscribers []chan Config
}

// NewStore wraps cfg. lastWritten is the document content cfg was loaded from, if any;
// a reload of identical content is a no-op.
func NewStore(cfg Config, doc *Document, lastWritten []byte, logger *zap.SugaredLogger) *Store {
	return &Store{
		cfg:         cfg.Clone(),
		doc:         doc,
		lastWritten: bytes.Clone(lastWritten),
		logger:      logger,
	}
}

// Snapshot returns an independent copy of the current config.
func (s *Store) Snapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// UpdateAndSave applies a partial set of document keys and persists the whole document.
// Unknown or invalid keys are dropped and reported; the remaining keys still apply.
// The in-memory update stands even if the write fails.
func (s *Store) UpdateAndSave(fields map[string]any) ([]FieldError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	applied, dropped := overlay(&s.cfg, fields)
	s.logDropped(dropped)
	if len(applied) > 0 {
		s.publish(s.cfg.Clone())
	}
	return dropped, s.saveLocked()
}

// SaveCalibration stores a completed calibration: the device map, the stick axis indices
// and Y inversion flags derived from it, and calibrated=true.
func (s *Store) SaveCalibration(m devicemap.DeviceMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Calibration = m.Clone()
	s.cfg.Calibrated = true
	if a, ok := m.StickAxes[devicemap.LeftX]; ok {
		s.cfg.LeftXAxis = a.Axis
	}
	if a, ok := m.StickAxes[devicemap.LeftY]; ok {
		s.cfg.LeftYAxis = a.Axis
		s.cfg.InvertLeftY = a.Inverted()
	}
	if a, ok := m.StickAxes[devicemap.RightX]; ok {
		s.cfg.RightXAxis = a.Axis
	}
	if a, ok := m.StickAxes[devicemap.RightY]; ok {
		s.cfg.RightYAxis = a.Axis
		s.cfg.InvertRightY = a.Inverted()
	}
	s.publish(s.cfg.Clone())
	return s.saveLocked()
}

// ResetDefaults restores every tunable to its default while keeping the calibration,
// then saves.
func (s *Store) ResetDefaults() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Default()
	next.JoystickIndex = s.cfg.JoystickIndex
	next.LeftXAxis, next.LeftYAxis = s.cfg.LeftXAxis, s.cfg.LeftYAxis
	next.RightXAxis, next.RightYAxis = s.cfg.RightXAxis, s.cfg.RightYAxis
	next.Calibrated = s.cfg.Calibrated
	next.Calibration = s.cfg.Calibration.Clone()
	if next.Calibrated {
		next.InvertLeftY = s.cfg.Calibration.StickAxes[devicemap.LeftY].Inverted()
		next.InvertRightY = s.cfg.Calibration.StickAxes[devicemap.RightY].Inverted()
	}
	s.cfg = next
	s.publish(s.cfg.Clone())
	return s.saveLocked()
}

// SaveNow writes the current config regardless of pending edits.
func (s *Store) SaveNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// MarkSaved re-reads the document and caches it as the last written form, so a
// following reload only reacts to changes made after this point.
func (s *Store) MarkSaved() {
	data, err := s.doc.Read()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastWritten = nil
		return
	}
	s.lastWritten = data
}

// MaybeReloadFromDisk overlays recognized keys from the document if its content differs
// from what this store last wrote or loaded. It reports whether anything was applied.
// An unreadable or malformed document leaves the config untouched.
func (s *Store) MaybeReloadFromDisk() (bool, error) {
	data, err := s.doc.Read()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if bytes.Equal(data, s.lastWritten) {
		s.mu.Unlock()
		return false, nil
	}
	raw, err := s.doc.Parse(data)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	applied, dropped := overlay(&s.cfg, raw)
	s.logDropped(dropped)
	s.lastWritten = data
	if len(applied) > 0 {
		s.publish(s.cfg.Clone())
	}
	s.mu.Unlock()

	if len(applied) == 0 {
		return false, nil
	}
	s.logger.Debugw("config reloaded from disk", "path", s.doc.Path, "keys", applied)
	return true, nil
}

// Subscribe returns a channel that receives a snapshot after every change. A slow
// subscriber only ever sees the latest snapshot.
func (s *Store) Subscribe() <-chan Config {
	ch := make(chan Config, 1)
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Store) publish(cfg Config) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- cfg:
		default:
		}
	}
}

func (s *Store) saveLocked() error {
	data, err := s.doc.Encode(s.cfg)
	if err != nil {
		return err
	}
	if err := s.doc.Write(data); err != nil {
		return errors.Wrap(err, "saving config")
	}
	s.lastWritten = data
	return nil
}

func (s *Store) logDropped(dropped []FieldError) {
	for _, fe := range dropped {
		s.logger.Debugw("config field ignored", "key", fe.Key, "reason", fe.Err)
	}
}
