package control

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/behavior"
)

// BehaviorsResponse is the body of GET /api/behaviors.
type BehaviorsResponse struct {
	Behaviors []behavior.Entry `json:"behaviors"`
}

// SetBehaviorRequest is the body of PUT /api/behaviors/{command}. Omitted
// fields keep their current value.
type SetBehaviorRequest struct {
	Error *bool `json:"error,omitempty"`
	Delay *int  `json:"delay,omitempty"`
}

// LogsResponse is the body of GET /api/logs.
type LogsResponse struct {
	Logs []LogRecord `json:"logs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler builds the control surface routes.
func NewHandler(behaviors *behavior.Store, logs *LogBuffer) http.Handler {
	h := &handler{behaviors: behaviors, logs: logs}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /api/behaviors", h.listBehaviors)
	mux.HandleFunc("PUT /api/behaviors/{command}", h.setBehavior)
	mux.HandleFunc("POST /api/behaviors/reset", h.resetBehaviors)
	mux.HandleFunc("GET /api/logs", h.listLogs)
	return mux
}

type handler struct {
	behaviors *behavior.Store
	logs      *LogBuffer
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listBehaviors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BehaviorsResponse{Behaviors: h.behaviors.Snapshot()})
}

func (h *handler) setBehavior(w http.ResponseWriter, r *http.Request) {
	command := r.PathValue("command")
	if !behavior.IsSupported(command) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown command: " + command})
		return
	}

	var req SetBehaviorRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	current := h.behaviors.Get(command)
	if req.Error != nil {
		current.ErrorEnabled = *req.Error
	}
	if req.Delay != nil {
		current.DelaySeconds = *req.Delay
	}

	effective, err := h.behaviors.Set(r.Context(), command, current.ErrorEnabled, current.DelaySeconds)
	if err != nil {
		if errors.Is(err, behavior.ErrUnknownCommand) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		logger.Error("Control: failed to set behavior for %s: %v", command, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, behavior.Entry{Command: normalizeCommand(command), CommandBehavior: effective})
}

func (h *handler) resetBehaviors(w http.ResponseWriter, r *http.Request) {
	if err := h.behaviors.Reset(r.Context()); err != nil {
		logger.Error("Control: failed to reset behaviors: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, BehaviorsResponse{Behaviors: h.behaviors.Snapshot()})
}

func (h *handler) listLogs(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "since must be a non-negative integer"})
			return
		}
		since = v
	}
	writeJSON(w, http.StatusOK, LogsResponse{Logs: h.logs.Since(since)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Control: failed to encode response: %v", err)
	}
}
