package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/soar/camstick/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local use
	},
}

func handleWebSocket(h *hub.Hub, b *hub.Broadcaster, handler hub.CommandHandler, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debugw("websocket upgrade failed", "error", err)
			return
		}

		client := hub.NewClient(h, conn)
		if !h.Register(client) {
			conn.Close()
			return
		}

		// Send current state to the new client
		b.SendInitialState(client)

		go client.WritePump()
		go client.ReadPumpWithHandler(handler)
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Snapshot())
}

func (s *Server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object of fields")
		return
	}
	if len(fields) > 0 {
		s.settings.Edit(fields)
	}
	writeJSON(w, http.StatusAccepted, s.settings.Status())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.SaveNow(); err != nil {
		s.logger.Warnw("save failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.settings.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.ResetDefaults(); err != nil {
		s.logger.Warnw("reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.settings.Snapshot())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Status())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusServiceUnavailable, "remap loop not running")
		return
	}
	stats, ok := s.stats()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "remap loop not running")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(s.index)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
