// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/timebox/internal/adapters/export"
	"github.com/hylla/timebox/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	tracker common.Tracker
	now     func() time.Time
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter over the tracker.
func NewHandler(tracker common.Tracker) *Handler {
	return &Handler{tracker: tracker, now: time.Now}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tracker == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "tracker is not configured",
		})
		return
	}
	path := normalizePath(r.URL.Path)
	switch path {
	case "status":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, common.CaptureStatus(h.tracker, h.now()))
	case "activities":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{
				"activities": common.NewActivityViews(h.tracker.Snapshot()),
			})
		case http.MethodPost:
			h.handleStart(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case "activities.csv":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleExport(w)
	case "active":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		a, ok := h.tracker.Active()
		if !ok {
			writeJSONError(w, http.StatusNotFound, APIError{
				Code:    "not_found",
				Message: "no activity in progress",
				Hint:    "POST /activities to start one.",
			})
			return
		}
		writeJSON(w, http.StatusOK, common.NewActivityView(a))
	case "active/complete":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		view, err := common.Complete(r.Context(), h.tracker)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		id, ok := resolveActivityID(path)
		if !ok {
			writeJSONError(w, http.StatusNotFound, APIError{
				Code:    "not_found",
				Message: "endpoint not found",
			})
			return
		}
		switch r.Method {
		case http.MethodPatch:
			h.handleEdit(w, r, id)
		case http.MethodDelete:
			if err := common.Delete(r.Context(), h.tracker, id); err != nil {
				writeErrorFrom(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeMethodNotAllowed(w, http.MethodPatch, http.MethodDelete)
		}
	}
}

// handleStart serves POST `/activities`.
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req common.StartRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	view, err := common.Start(r.Context(), h.tracker, req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleEdit serves PATCH `/activities/{id}`.
func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request, id string) {
	var req common.EditRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	view, err := common.Edit(r.Context(), h.tracker, id, req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleExport serves GET `/activities.csv`.
func (h *Handler) handleExport(w http.ResponseWriter) {
	data, err := export.Bytes(h.tracker.Snapshot(), time.Local)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(h.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// resolveActivityID parses `activities/{id}` and returns `{id}`.
func resolveActivityID(path string) (string, bool) {
	const prefix = "activities/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	id := strings.TrimSpace(strings.TrimPrefix(path, prefix))
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}

// writeErrorFrom maps tracker errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	code := common.ErrorCode(err)
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	status := http.StatusInternalServerError
	switch code {
	case "invalid_request":
		status = http.StatusBadRequest
	case "conflict":
		status = http.StatusConflict
	case "not_found":
		status = http.StatusNotFound
	}
	writeJSONError(w, status, APIError{Code: code, Message: message})
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Trailing payloads fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
