// Package model holds the classifier backends. A Predictor is loaded once at
// startup and shared read-only by every request.
package model

import (
	"context"
	"fmt"
	"time"

	"github.com/mcules/ransomguard/internal/features"
)

// Predictor classifies one schema-ordered row and returns the raw class.
type Predictor interface {
	Predict(ctx context.Context, v features.Vector) (int, error)
}

// Describer is implemented by predictors that can report what they are.
type Describer interface {
	Describe() Info
}

type Info struct {
	Kind    string `json:"kind"`
	Source  string `json:"source"`
	Trees   int    `json:"trees,omitempty"`
	Classes []int  `json:"classes,omitempty"`
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, v features.Vector) (int, error)

func (f PredictorFunc) Predict(ctx context.Context, v features.Vector) (int, error) {
	return f(ctx, v)
}

// Open returns the remote predictor when remoteURL is set, otherwise the forest
// artifact at path. A remote predictor must answer one prediction before Open
// returns it.
func Open(ctx context.Context, path, remoteURL string, timeout time.Duration) (Predictor, error) {
	if remoteURL != "" {
		r := NewRemote(remoteURL, timeout)
		if err := r.Ping(ctx); err != nil {
			return nil, fmt.Errorf("remote predictor %s: %w", remoteURL, err)
		}
		return r, nil
	}
	f, err := LoadForest(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}
