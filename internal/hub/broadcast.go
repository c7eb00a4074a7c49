package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soar/camstick/internal/config"
	"github.com/soar/camstick/internal/remap"
)

const (
	fullSyncInterval = 5 * time.Second
	deltaCountSync   = 100
)

// Broadcaster listens for output telemetry, config snapshots and editor status and
// broadcasts them to the hub.
type Broadcaster struct {
	hub       *Hub
	telemetry <-chan remap.Telemetry
	configs   <-chan config.Config
	statuses  chan config.Status
	swapped   chan struct{}
	logger    *zap.SugaredLogger

	mu         sync.Mutex
	lastState  remap.Telemetry
	lastConfig config.Config
	lastStatus *config.Status
	seq        int64
}

// NewBroadcaster returns a broadcaster. initial is sent to clients until the first
// snapshot arrives on configs.
func NewBroadcaster(h *Hub, telemetry <-chan remap.Telemetry, configs <-chan config.Config, initial config.Config, logger *zap.SugaredLogger) *Broadcaster {
	return &Broadcaster{
		hub:        h,
		telemetry:  telemetry,
		configs:    configs,
		statuses:   make(chan config.Status, 16),
		swapped:    make(chan struct{}, 1),
		logger:     logger,
		lastConfig: initial,
	}
}

// OnStatus queues an editor status change. It never blocks.
func (b *Broadcaster) OnStatus(s config.Status) {
	select {
	case b.statuses <- s:
	default:
	}
}

// SetTelemetry switches to a new telemetry source, e.g. once the remap loop exists.
func (b *Broadcaster) SetTelemetry(ch <-chan remap.Telemetry) {
	b.mu.Lock()
	b.telemetry = ch
	b.mu.Unlock()
	select {
	case b.swapped <- struct{}{}:
	default:
	}
}

func (b *Broadcaster) source() <-chan remap.Telemetry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.telemetry
}

// Run starts the broadcaster loop until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(fullSyncInterval)
	defer ticker.Stop()

	var deltaCount int64

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-b.swapped:

		case state, ok := <-b.source():
			if !ok {
				b.SetTelemetry(nil)
				continue
			}

			b.mu.Lock()
			delta := remap.ComputeDelta(b.lastState, state)
			b.lastState = state
			if delta.IsEmpty() {
				b.mu.Unlock()
				continue
			}
			b.seq++
			deltaCount++
			var msg *WSMessage
			// Send full sync periodically
			if deltaCount >= deltaCountSync {
				msg = NewFullMessage(b.seq, &state)
				deltaCount = 0
			} else {
				msg = NewDeltaMessage(b.seq, delta)
			}
			b.mu.Unlock()
			b.broadcast(msg)

		case cfg := <-b.configs:
			b.mu.Lock()
			b.lastConfig = cfg
			b.seq++
			msg := NewConfigMessage(b.seq, &cfg)
			b.mu.Unlock()
			b.broadcast(msg)

		case st := <-b.statuses:
			b.mu.Lock()
			b.lastStatus = &st
			b.seq++
			msg := NewStatusMessage(b.seq, &st)
			b.mu.Unlock()
			b.broadcast(msg)

		case <-ticker.C:
			b.mu.Lock()
			if !b.lastState.Connected {
				b.mu.Unlock()
				continue
			}
			b.seq++
			state := b.lastState
			msg := NewFullMessage(b.seq, &state)
			b.mu.Unlock()
			b.broadcast(msg)
		}
	}
}

// SendInitialState sends the current settings, status and output state to a newly
// connected client.
func (b *Broadcaster) SendInitialState(c *Client) {
	b.mu.Lock()
	cfg, state := b.lastConfig, b.lastState
	msgs := []*WSMessage{NewConfigMessage(b.nextSeqLocked(), &cfg), NewFullMessage(b.nextSeqLocked(), &state)}
	if b.lastStatus != nil {
		st := *b.lastStatus
		msgs = append(msgs, NewStatusMessage(b.nextSeqLocked(), &st))
	}
	b.mu.Unlock()

	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			b.logger.Warnw("error marshaling initial state", "error", err)
			return
		}
		b.hub.sendTo(c, data)
	}
}

func (b *Broadcaster) nextSeqLocked() int64 {
	b.seq++
	return b.seq
}

func (b *Broadcaster) broadcast(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Warnw("error marshaling message", "type", msg.Type, "error", err)
		return
	}
	b.hub.Broadcast(data)
}
