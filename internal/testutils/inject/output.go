package inject

import (
	"sync"

	"github.com/soar/camstick/internal/output"
)

// ButtonSet is one SetButton call.
type ButtonSet struct {
	Button  output.Button
	Pressed bool
}

// PadFrame is the state a Pad held at one Commit, with the SetButton calls made since
// the previous Commit.
type PadFrame struct {
	LX, LY, RX, RY int16
	Buttons        map[output.Button]bool
	Triggers       [2]uint8
	Sets           []ButtonSet
}

// Pressed reports whether b was down in the frame.
func (f PadFrame) Pressed(b output.Button) bool {
	return f.Buttons[b]
}

// Pad is a recording output.Pad.
type Pad struct {
	mu         sync.Mutex
	staged     PadFrame
	sets       []ButtonSet
	Commits    []PadFrame
	CommitFunc func() error
	Closed     bool
}

// NewPad returns an empty recording pad.
func NewPad() *Pad {
	return &Pad{staged: PadFrame{Buttons: map[output.Button]bool{}}}
}

// SetLeftStick stages the left stick.
func (p *Pad) SetLeftStick(x, y int16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staged.LX, p.staged.LY = x, y
}

// SetRightStick stages the right stick.
func (p *Pad) SetRightStick(x, y int16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staged.RX, p.staged.RY = x, y
}

// SetButton stages a button and records the call.
func (p *Pad) SetButton(b output.Button, pressed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staged.Buttons[b] = pressed
	p.sets = append(p.sets, ButtonSet{Button: b, Pressed: pressed})
}

// SetTrigger stages a trigger.
func (p *Pad) SetTrigger(t output.Trigger, level uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staged.Triggers[t] = level
}

// Commit records the staged frame.
func (p *Pad) Commit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CommitFunc != nil {
		if err := p.CommitFunc(); err != nil {
			return err
		}
	}
	frame := p.staged
	frame.Buttons = make(map[output.Button]bool, len(p.staged.Buttons))
	for b, v := range p.staged.Buttons {
		frame.Buttons[b] = v
	}
	frame.Sets = p.sets
	p.sets = nil
	p.Commits = append(p.Commits, frame)
	return nil
}

// Close marks the pad closed.
func (p *Pad) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// CommitCount returns the number of successful commits.
func (p *Pad) CommitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Commits)
}

// Last returns the most recent committed frame.
func (p *Pad) Last() PadFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Commits) == 0 {
		return PadFrame{}
	}
	return p.Commits[len(p.Commits)-1]
}

// KeyEvent is one recorded key transition.
type KeyEvent struct {
	Key  output.Key
	Down bool
}

// Sink is a recording output.Sink.
type Sink struct {
	mu     sync.Mutex
	Keys   []KeyEvent
	Moves  [][2]int
	Closed bool
}

// NewSink returns an empty recording sink.
func NewSink() *Sink {
	return &Sink{}
}

// KeyDown records a key press.
func (s *Sink) KeyDown(k output.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Keys = append(s.Keys, KeyEvent{Key: k, Down: true})
	return nil
}

// KeyUp records a key release.
func (s *Sink) KeyUp(k output.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Keys = append(s.Keys, KeyEvent{Key: k, Down: false})
	return nil
}

// MovePointer records pointer motion.
func (s *Sink) MovePointer(dx, dy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Moves = append(s.Moves, [2]int{dx, dy})
	return nil
}

// Close marks the sink closed.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Presses counts KeyDown events for k.
func (s *Sink) Presses(k output.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.Keys {
		if ev.Key == k && ev.Down {
			n++
		}
	}
	return n
}

// Held reports whether k was pressed and not yet released.
func (s *Sink) Held(k output.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := false
	for _, ev := range s.Keys {
		if ev.Key == k {
			held = ev.Down
		}
	}
	return held
}

// Moved returns the summed pointer motion.
func (s *Sink) Moved() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dx, dy int
	for _, m := range s.Moves {
		dx += m[0]
		dy += m[1]
	}
	return dx, dy
}
