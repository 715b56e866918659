package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mcules/ransomguard/internal/features"
	"github.com/mcules/ransomguard/internal/inference"
)

const maxManualBody = 1 << 20

var errNoFile = errors.New(`multipart field "file" is required`)

// predictFile classifies an uploaded binary. Once the upload is accepted every
// failure is answered with 200 and an error envelope.
func (h *Handler) predictFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadSize)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Stream the "file" part straight into the pipeline.
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			writeError(w, http.StatusBadRequest, errNoFile.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		started := time.Now()
		res, sample, err := h.Pipeline.ClassifyFile(r.Context(), part)
		_ = part.Close()
		id := h.journal().Record(r.Context(), sourceFile, started, res, sample, err)
		w.Header().Set("X-Prediction-ID", id)

		if err != nil {
			h.logger().Info("file prediction failed", "prediction_id", id, "sha256", sample.SHA256, "err", err)
			writeError(w, http.StatusOK, err.Error())
			return
		}
		h.logger().Info("file prediction", "prediction_id", id, "sha256", sample.SHA256, "label", res.Label)
		writeJSON(w, http.StatusOK, predictionResponse{Prediction: res.Label, Features: res.Features})
		return
	}
}

// predictManual classifies an explicit feature vector. Malformed bodies are
// rejected with 400 before normalisation. Predictor failures are a server
// fault unless ContainManualErrors is set.
func (h *Handler) predictManual(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in features.ManualInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxManualBody))
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid JSON body: unexpected data after object")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	started := time.Now()
	res, err := h.Dispatcher.Dispatch(r.Context(), in.Record())
	id := h.journal().Record(r.Context(), sourceManual, started, res, inference.Sample{}, err)
	w.Header().Set("X-Prediction-ID", id)

	if err != nil {
		h.logger().Error("manual prediction failed", "prediction_id", id, "err", err)
		if h.ContainManualErrors {
			writeError(w, http.StatusOK, err.Error())
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, predictionResponse{Prediction: res.Label, Features: res.Features})
}
