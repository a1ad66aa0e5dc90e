// Package httpapi serves the board as a JSON REST API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/webherbas/taskflow/internal/adapters/server/common"
)

// maxRequestBodyBytes caps request bodies, imports included.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the API. The server strips its mount prefix, so routes
// below are relative.
type Handler struct {
	board common.BoardService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter over a board service.
func NewHandler(board common.BoardService) *Handler {
	return &Handler{board: board}
}

// action serves one matched route. param holds the value of the route's
// single placeholder segment, if it has one.
type action func(h *Handler, w http.ResponseWriter, r *http.Request, param string)

type verb struct {
	method string
	run    action
}

type route struct {
	pattern string
	verbs   []verb
}

// routes lists every endpoint relative to the API mount point. Verb order
// is the order reported in Allow headers.
var routes = []route{
	{"board", []verb{{http.MethodGet, (*Handler).handleBoardState}}},
	{"tasks", []verb{{http.MethodGet, (*Handler).handleListTasks}, {http.MethodPost, (*Handler).handleAddTask}}},
	{"tasks/{id}", []verb{{http.MethodGet, (*Handler).handleGetTask}, {http.MethodDelete, (*Handler).handleDeleteTask}}},
	{"tasks/{id}/status", []verb{{http.MethodPost, (*Handler).handleSetStatus}}},
	{"tasks/{id}/advance", []verb{{http.MethodPost, (*Handler).handleAdvance}}},
	{"columns/{status}", []verb{{http.MethodGet, (*Handler).handleColumnPage}}},
	{"export", []verb{{http.MethodGet, (*Handler).handleExport}}},
	{"import", []verb{{http.MethodPost, (*Handler).handleImport}}},
}

// ServeHTTP dispatches one request through the route table.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.board == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "board service is not configured",
		})
		return
	}
	segments := splitPath(r.URL.Path)
	for _, rt := range routes {
		param, ok := matchRoute(rt.pattern, segments)
		if !ok {
			continue
		}
		allowed := make([]string, 0, len(rt.verbs))
		for _, v := range rt.verbs {
			if v.method == r.Method {
				v.run(h, w, r, param)
				return
			}
			allowed = append(allowed, v.method)
		}
		writeMethodNotAllowed(w, allowed...)
		return
	}
	writeNotFound(w)
}

func splitPath(path string) []string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// matchRoute reports whether segments fit pattern and returns the value
// bound to its placeholder.
func matchRoute(pattern string, segments []string) (string, bool) {
	parts := strings.Split(pattern, "/")
	if len(parts) != len(segments) {
		return "", false
	}
	param := ""
	for i, part := range parts {
		seg := strings.TrimSpace(segments[i])
		switch {
		case strings.HasPrefix(part, "{"):
			if seg == "" {
				return "", false
			}
			param = seg
		case part != seg:
			return "", false
		}
	}
	return param, true
}

// handleBoardState serves GET `/board`.
func (h *Handler) handleBoardState(w http.ResponseWriter, r *http.Request, _ string) {
	state, err := h.board.BoardState(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	etag := `"` + state.StateHash + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleListTasks serves GET `/tasks`.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request, _ string) {
	items, err := h.board.ListTasks(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

// handleAddTask serves POST `/tasks`.
func (h *Handler) handleAddTask(w http.ResponseWriter, r *http.Request, _ string) {
	var req common.AddTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	item, err := h.board.AddTask(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handleGetTask serves GET `/tasks/{id}`.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request, id string) {
	item, err := h.board.GetTask(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleDeleteTask serves DELETE `/tasks/{id}`.
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.board.DeleteTask(r.Context(), id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetStatus serves POST `/tasks/{id}/status`.
func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req common.SetStatusRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	change, err := h.board.SetStatus(r.Context(), id, req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// handleAdvance serves POST `/tasks/{id}/advance`.
func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request, id string) {
	item, err := h.board.AdvanceStatus(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleColumnPage serves GET `/columns/{status}?page=n`.
func (h *Handler) handleColumnPage(w http.ResponseWriter, r *http.Request, status string) {
	page := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, APIError{
				Code:    "invalid_request",
				Message: fmt.Sprintf("page %q is not a number", raw),
			})
			return
		}
		page = parsed
	}
	column, err := h.board.ColumnPage(r.Context(), status, page)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, column)
}

// handleExport serves GET `/export` as a file download.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, _ string) {
	file, err := h.board.Export(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// handleImport serves POST `/import?confirm=true` with a raw JSON array body.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request, _ string) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()
	payload, err := io.ReadAll(reader)
	if err != nil {
		writeErrorFrom(w, fmt.Errorf("read import body: %w", errors.Join(common.ErrInvalidRequest, err)))
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	result, err := h.board.Import(r.Context(), payload, confirmed)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// errorMappings pairs adapter sentinels with their HTTP representation.
var errorMappings = []struct {
	target error
	status int
	code   string
	hint   string
}{
	{common.ErrNotFound, http.StatusNotFound, "not_found", ""},
	{common.ErrConfirmationRequired, http.StatusConflict, "confirmation_required", "Repeat the request with confirm=true to replace the task list."},
	{common.ErrInvalidRequest, http.StatusBadRequest, "invalid_request", ""},
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeJSONError(w, m.status, APIError{Code: m.code, Message: err.Error(), Hint: m.hint})
			return
		}
	}
	writeJSONError(w, http.StatusInternalServerError, APIError{Code: "internal_error", Message: err.Error()})
}

// writeNotFound writes the structured unknown-endpoint response.
func writeNotFound(w http.ResponseWriter) {
	writeJSONError(w, http.StatusNotFound, APIError{
		Code:    "not_found",
		Message: "endpoint not found",
	})
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
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
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
