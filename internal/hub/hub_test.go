package hub

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.viam.com/test"

	"github.com/soar/camstick/internal/config"
	"github.com/soar/camstick/internal/remap"
)

type fakeHandler struct {
	mu     sync.Mutex
	edits  []map[string]any
	saves  int
	resets int
	err    error
}

func (f *fakeHandler) Edit(fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, fields)
}

func (f *fakeHandler) SaveNow() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	return f.err
}

func (f *fakeHandler) ResetDefaults() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return f.err
}

func (f *fakeHandler) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits), f.saves, f.resets
}

type fixture struct {
	hub       *Hub
	b         *Broadcaster
	handler   *fakeHandler
	telemetry chan remap.Telemetry
	configs   chan config.Config
	cancel    context.CancelFunc
	url       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop().Sugar()
	f := &fixture{
		hub:       NewHub(logger),
		handler:   &fakeHandler{},
		telemetry: make(chan remap.Telemetry, 4),
		configs:   make(chan config.Config, 4),
	}
	f.b = NewBroadcaster(f.hub, f.telemetry, f.configs, config.Default(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.hub.Run(ctx)
	go f.b.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(f.hub, conn)
		if !f.hub.Register(c) {
			conn.Close()
			return
		}
		f.b.SendInitialState(c)
		go c.WritePump()
		go c.ReadPumpWithHandler(f.handler)
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	f.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return f
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	test.That(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)), test.ShouldBeNil)
	_, data, err := conn.ReadMessage()
	test.That(t, err, test.ShouldBeNil)
	var msg WSMessage
	test.That(t, json.Unmarshal(data, &msg), test.ShouldBeNil)
	return msg
}

// readUntil skips messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) WSMessage {
	t.Helper()
	for range 20 {
		if msg := readMessage(t, conn); msg.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %q message", typ)
	return WSMessage{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInitialState(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	first := readMessage(t, conn)
	test.That(t, first.Type, test.ShouldEqual, TypeConfig)
	test.That(t, first.Config.PollHz, test.ShouldEqual, 240)

	second := readMessage(t, conn)
	test.That(t, second.Type, test.ShouldEqual, TypeFull)
	test.That(t, second.Data.Connected, test.ShouldBeFalse)
	test.That(t, second.Seq, test.ShouldBeGreaterThan, first.Seq)
}

func TestClientCommands(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	waitFor(t, func() bool { return f.hub.Count() == 1 })

	test.That(t, conn.WriteJSON(ClientMessage{Type: CmdUpdate, Fields: map[string]any{"deadzone_left": 0.2}}), test.ShouldBeNil)
	test.That(t, conn.WriteJSON(ClientMessage{Type: CmdSaveNow}), test.ShouldBeNil)
	test.That(t, conn.WriteJSON(ClientMessage{Type: CmdResetDefaults}), test.ShouldBeNil)
	waitFor(t, func() bool {
		edits, saves, resets := f.handler.counts()
		return edits == 1 && saves == 1 && resets == 1
	})
	f.handler.mu.Lock()
	test.That(t, f.handler.edits[0]["deadzone_left"], test.ShouldEqual, 0.2)
	f.handler.mu.Unlock()

	t.Run("failures are reported to the sender", func(t *testing.T) {
		f.handler.mu.Lock()
		f.handler.err = errors.New("disk full")
		f.handler.mu.Unlock()
		test.That(t, conn.WriteJSON(ClientMessage{Type: CmdSaveNow}), test.ShouldBeNil)
		msg := readUntil(t, conn, TypeError)
		test.That(t, msg.Error, test.ShouldContainSubstring, "disk full")
	})

	t.Run("unknown and malformed messages", func(t *testing.T) {
		test.That(t, conn.WriteMessage(websocket.TextMessage, []byte("{")), test.ShouldBeNil)
		test.That(t, readUntil(t, conn, TypeError).Error, test.ShouldEqual, "malformed message")
		test.That(t, conn.WriteJSON(ClientMessage{Type: "select_player"}), test.ShouldBeNil)
		test.That(t, readUntil(t, conn, TypeError).Error, test.ShouldContainSubstring, "select_player")
	})
}

func TestBroadcasts(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	readUntil(t, conn, TypeFull)

	f.telemetry <- remap.Telemetry{Connected: true, Name: "pad", Yaw: 0.5}
	msg := readUntil(t, conn, TypeDelta)
	test.That(t, *msg.Changes.Connected, test.ShouldBeTrue)
	test.That(t, *msg.Changes.Yaw, test.ShouldEqual, 0.5)

	cfg := config.Default()
	cfg.MouseSpeedPxPerSec = 900
	f.configs <- cfg
	test.That(t, readUntil(t, conn, TypeConfig).Config.MouseSpeedPxPerSec, test.ShouldEqual, 900.0)

	f.b.OnStatus(config.Status{State: config.StatusSaved})
	test.That(t, readUntil(t, conn, TypeStatus).Status.State, test.ShouldEqual, config.StatusSaved)

	t.Run("late clients get the latest state", func(t *testing.T) {
		late := f.dial(t)
		test.That(t, readMessage(t, late).Config.MouseSpeedPxPerSec, test.ShouldEqual, 900.0)
		test.That(t, readMessage(t, late).Data.Name, test.ShouldEqual, "pad")
		test.That(t, readMessage(t, late).Status.State, test.ShouldEqual, config.StatusSaved)
	})

	t.Run("telemetry source can be swapped", func(t *testing.T) {
		next := make(chan remap.Telemetry, 1)
		f.b.SetTelemetry(next)
		next <- remap.Telemetry{Connected: true, Name: "other"}
		msg := readUntil(t, conn, TypeDelta)
		test.That(t, *msg.Changes.Name, test.ShouldEqual, "other")
	})
}

func TestHubShutdownDisconnects(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	waitFor(t, func() bool { return f.hub.Count() == 1 })

	f.cancel()
	test.That(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)), test.ShouldBeNil)
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	var netErr net.Error
	test.That(t, errors.As(err, &netErr) && netErr.Timeout(), test.ShouldBeFalse)
	waitFor(t, func() bool { return f.hub.Count() == 0 })
	test.That(t, f.hub.Register(&Client{send: make(chan []byte)}), test.ShouldBeFalse)
}
