// Package server exposes the administration surface over HTTP: monitors are
// added, removed and listed per channel.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"pepperwatch/internal/models"
	"pepperwatch/internal/monitor"
)

type Server struct {
	manager *monitor.Manager
}

func New(manager *monitor.Manager) *Server {
	return &Server{manager: manager}
}

// Handler returns the admin mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /monitors", s.handleAdd)
	mux.HandleFunc("DELETE /monitors", s.handleRemove)
	mux.HandleFunc("GET /monitors", s.handleList)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	return mux
}

type addRequest struct {
	Channel string `json:"channel"`
	Name    string `json:"name"`
	URL     string `json:"url"`
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.manager.Add(req.Channel, req.Name, req.URL)
	switch {
	case err == nil:
		slog.Info("Monitor added via admin API", "channel", req.Channel, "name", req.Name)
		writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
	case errors.Is(err, models.ErrMonitorExists):
		writeError(w, http.StatusConflict, "monitor with this name already exists in this channel")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	name := r.URL.Query().Get("name")
	if channel == "" || name == "" {
		writeError(w, http.StatusBadRequest, "channel and name query parameters are required")
		return
	}

	removed, err := s.manager.Remove(channel, name)
	if err != nil {
		slog.Error("Monitor removal failed", "channel", channel, "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "removal failed")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "no monitor with this name in this channel")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		writeError(w, http.StatusBadRequest, "channel query parameter is required")
		return
	}

	info, err := s.manager.List(channel)
	if err != nil {
		slog.Error("Monitor listing failed", "channel", channel, "error", err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
