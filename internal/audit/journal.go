// Package audit records prediction outcomes to the history store and the
// in-process metrics.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcules/ransomguard/internal/auth"
	"github.com/mcules/ransomguard/internal/history"
	"github.com/mcules/ransomguard/internal/inference"
	"github.com/mcules/ransomguard/internal/metrics"
)

// Journal is safe to use with nil History or Metrics.
type Journal struct {
	History *history.Store
	Metrics *metrics.Tracker
	Log     *slog.Logger
}

// Record stores one outcome and returns the generated prediction id. Storage
// failures are logged, never returned: a prediction is not failed because its
// audit row could not be written.
func (j Journal) Record(ctx context.Context, source string, started time.Time, res inference.Result, sample inference.Sample, err error) string {
	took := time.Since(started)
	p := history.Prediction{
		ID:           uuid.NewString(),
		CreatedAt:    started,
		Source:       source,
		SampleSHA256: sample.SHA256,
		SampleSize:   sample.Size,
		KeyID:        auth.KeyID(ctx),
	}
	if err != nil {
		j.Metrics.ObserveError(source, took)
		p.Error = err.Error()
	} else {
		j.Metrics.ObserveOK(source, string(res.Label), took)
		class := int64(res.Class)
		p.Label = string(res.Label)
		p.Class = &class
		if b, jerr := json.Marshal(res.Features); jerr == nil {
			p.Features = string(b)
		}
	}

	if rerr := j.History.RecordPrediction(ctx, p); rerr != nil {
		log := j.Log
		if log == nil {
			log = slog.Default()
		}
		log.Warn("record prediction", "prediction_id", p.ID, "err", rerr)
	}
	return p.ID
}
