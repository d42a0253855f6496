// Package api exposes the orchestration core over HTTP. The transport stays
// thin: it frames requests and responses and maps error classes to status
// codes, nothing more.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
	orchestratorx "github.com/relaylabs/agentrelay/agent/orchestrator"
)

type Handler struct {
	orc *orchestratorx.Orchestrator
}

func NewHandler(orc *orchestratorx.Orchestrator) *Handler {
	return &Handler{orc: orc}
}

// Routes builds the chi router for the inbound contract.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Post("/chat", h.processMessage)
	r.Get("/history/{userID}", h.getHistory)
	r.Delete("/history/{userID}", h.clearHistory)
	r.Get("/stats/{userID}", h.getStats)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (h *Handler) processMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.orc.ProcessMessage(r.Context(), req.UserID, req.Message)
	if err != nil {
		h.writeProcessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	view, err := h.orc.GetHistory(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeProcessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.orc.ClearHistory(r.Context(), chi.URLParam(r, "userID")); err != nil {
		h.writeProcessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orc.Stats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeProcessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeProcessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestratorx.ErrInvalidUserID),
		errors.Is(err, orchestratorx.ErrInvalidMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contractx.ErrHistoryUnavailable):
		log.Error().Err(err).Msg("history store unavailable")
		writeError(w, http.StatusServiceUnavailable, "history store unavailable")
	default:
		log.Error().Err(err).Msg("unrecoverable orchestration fault")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
