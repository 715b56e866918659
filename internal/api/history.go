package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mcules/ransomguard/internal/history"
)

const maxHistoryLimit = 500

type historyResponse struct {
	Predictions []history.Prediction `json:"predictions"`
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	rows, err := h.History.ListPredictions(r.Context(), limit)
	if err != nil {
		h.logger().Error("list predictions", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if rows == nil {
		rows = []history.Prediction{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Predictions: rows})
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	p, ok, err := h.History.GetPrediction(r.Context(), id)
	if err != nil {
		h.logger().Error("get prediction", "prediction_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "prediction not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
