// Package api serves the classifier over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mcules/ransomguard/internal/audit"
	"github.com/mcules/ransomguard/internal/auth"
	"github.com/mcules/ransomguard/internal/features"
	"github.com/mcules/ransomguard/internal/history"
	"github.com/mcules/ransomguard/internal/inference"
	"github.com/mcules/ransomguard/internal/metrics"
)

type Handler struct {
	Pipeline   *inference.Pipeline
	Dispatcher *inference.Dispatcher

	History *history.Store
	Metrics *metrics.Tracker
	Auth    *auth.Authenticator

	// ContainManualErrors answers predictor failures on /predict_manual with
	// a 200 error envelope instead of a 500.
	ContainManualErrors bool
	MaxUploadSize       int64
	StaticDir           string

	Log *slog.Logger
}

const (
	sourceFile   = "file"
	sourceManual = "manual"
)

// Register mounts every route on mux. Prediction and history routes go
// through the API key middleware when Auth is set.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api", h.status)
	mux.HandleFunc("/api/stats", h.stats)
	mux.Handle("/api/history", h.protect(http.HandlerFunc(h.listHistory)))
	mux.Handle("/api/history/", h.protect(http.HandlerFunc(h.getHistory)))
	mux.Handle("/predict", h.protect(http.HandlerFunc(h.predictFile)))
	mux.Handle("/predict_manual", h.protect(http.HandlerFunc(h.predictManual)))

	mux.HandleFunc("/", h.index)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(h.StaticDir))))
}

func (h *Handler) protect(next http.Handler) http.Handler {
	if h.Auth == nil {
		return next
	}
	return h.Auth.Middleware(next)
}

func (h *Handler) logger() *slog.Logger {
	if h.Log == nil {
		return slog.Default()
	}
	return h.Log
}

// predictionResponse and errorResponse are the two envelope variants; a
// response is always exactly one of them.
type predictionResponse struct {
	Prediction inference.Label `json:"prediction"`
	Features   features.Record `json:"features"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "API funcionando correctamente"})
}

func (h *Handler) journal() audit.Journal {
	return audit.Journal{History: h.History, Metrics: h.Metrics, Log: h.logger()}
}
