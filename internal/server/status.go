package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/linesync/internal/models"
	"github.com/desertthunder/linesync/internal/shared"
	"github.com/desertthunder/linesync/internal/tasks"
	"github.com/go-chi/chi/v5"
)

// Collections is the read side of the sync coordinator. [tasks.Coordinator] implements it.
type Collections interface {
	Statuses() []tasks.Status
	Status(t tasks.ResourceType) (tasks.Status, error)
	Items(t tasks.ResourceType) (any, error)
	Account(ctx context.Context) (models.Account, error)
	Subscribe(buffer int) (<-chan tasks.Event, func())
}

// StatusHandler exposes cached collections as read-only JSON and streams coordinator events.
type StatusHandler struct {
	collections Collections
	logger      *log.Logger
}

// NewStatusHandler creates a [StatusHandler].
func NewStatusHandler(c Collections, logger *log.Logger) *StatusHandler {
	return &StatusHandler{collections: c, logger: logger}
}

// Routes mounts the status endpoints.
func (h *StatusHandler) Routes(r chi.Router) {
	r.Get("/status", h.ListStatus)
	r.Get("/account", h.GetAccount)
	r.Get("/events", h.StreamEvents)
	r.Route("/collections/{type}", func(r chi.Router) {
		r.Get("/", h.GetCollection)
		r.Get("/status", h.GetStatus)
	})
}

// ListStatus handles GET /status.
func (h *StatusHandler) ListStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"collections": h.collections.Statuses(),
		"checked_at":  time.Now().UTC(),
	})
}

// GetStatus handles GET /collections/{type}/status.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resource(w, r)
	if !ok {
		return
	}
	status, err := h.collections.Status(t)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// GetCollection handles GET /collections/{type}.
func (h *StatusHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resource(w, r)
	if !ok {
		return
	}
	status, err := h.collections.Status(t)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	items, err := h.collections.Items(t)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"items":  items,
	})
}

// GetAccount handles GET /account.
func (h *StatusHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.collections.Account(r.Context())
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, shared.ErrUnauthorized) || errors.Is(err, shared.ErrNoValidToken) {
			code = http.StatusUnauthorized
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// eventPayload is the wire form of a [tasks.Event].
type eventPayload struct {
	Kind     string             `json:"kind"`
	Resource tasks.ResourceType `json:"resource,omitempty"`
	Count    int                `json:"count"`
	Silent   bool               `json:"silent"`
	Error    string             `json:"error,omitempty"`
	At       time.Time          `json:"at"`
	Message  string             `json:"message"`
}

// StreamEvents handles GET /events as a server-sent event stream until the client disconnects.
func (h *StatusHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, cancel := h.collections.Subscribe(32)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-events:
			if !open {
				return
			}
			payload := eventPayload{
				Kind:     e.Kind.String(),
				Resource: e.Resource,
				Count:    e.Count,
				Silent:   e.Silent,
				At:       e.At,
				Message:  e.Message,
			}
			if e.Err != nil {
				payload.Error = e.Err.Error()
			}
			data, err := json.Marshal(payload)
			if err != nil {
				h.logger.Warn("failed to encode event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", payload.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *StatusHandler) resource(w http.ResponseWriter, r *http.Request) (tasks.ResourceType, bool) {
	t, err := tasks.ParseResourceType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return "", false
	}
	return t, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
