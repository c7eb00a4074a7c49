// Package server serves the settings page, the config API and the websocket feed.
package server

import (
	"context"
	"io/fs"
	"net/http"
	"regexp"

	"github.com/pkg/errors"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"go.uber.org/zap"

	"github.com/soar/camstick/internal/config"
	"github.com/soar/camstick/internal/hub"
	"github.com/soar/camstick/internal/remap"
)

const maxBodyBytes = 64 << 10

// Settings is the settings surface's view of the config.
type Settings interface {
	hub.CommandHandler
	Snapshot() config.Config
	Status() config.Status
}

// StatsFunc returns the remap loop counters, or false while no loop is running.
type StatsFunc func() (remap.Stats, bool)

type Server struct {
	hub         *hub.Hub
	broadcaster *hub.Broadcaster
	settings    Settings
	stats       StatsFunc
	frontendFS  fs.FS
	index       []byte
	addr        string
	httpServer  *http.Server
	logger      *zap.SugaredLogger
}

// New builds a server. index.html from frontendFS is minified once here.
func New(h *hub.Hub, b *hub.Broadcaster, settings Settings, stats StatsFunc, frontendFS fs.FS, addr string, logger *zap.SugaredLogger) (*Server, error) {
	s := &Server{
		hub:         h,
		broadcaster: b,
		settings:    settings,
		stats:       stats,
		frontendFS:  frontendFS,
		addr:        addr,
		logger:      logger,
	}
	if frontendFS != nil {
		index, err := minifyIndex(frontendFS)
		if err != nil {
			return nil, err
		}
		s.index = index
	}
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s, nil
}

func minifyIndex(fsys fs.FS) ([]byte, error) {
	raw, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		return nil, errors.Wrap(err, "reading settings page")
	}
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	out, err := m.Bytes("text/html", raw)
	if err != nil {
		return nil, errors.Wrap(err, "minifying settings page")
	}
	return out, nil
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("GET /ws", handleWebSocket(s.hub, s.broadcaster, s.settings, s.logger))

	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("PATCH /api/config", s.handlePatchConfig)
	mux.HandleFunc("POST /api/config/save", s.handleSave)
	mux.HandleFunc("POST /api/config/reset", s.handleReset)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	// Static files (frontend)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	if s.frontendFS != nil {
		mux.Handle("GET /", http.FileServer(http.FS(s.frontendFS)))
	}
	return mux
}

// ListenAndServe blocks serving on the configured address.
func (s *Server) ListenAndServe() error {
	s.logger.Infow("HTTP server listening", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
