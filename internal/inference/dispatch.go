// Package inference turns a normalised record into a labelled prediction.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcules/ransomguard/internal/features"
	"github.com/mcules/ransomguard/internal/model"
)

type Label string

const (
	LabelBenign     Label = "benign"
	LabelRansomware Label = "ransomware"
)

// benignClass is the only predictor output mapped to LabelBenign.
const benignClass = 1

// LabelFor applies the fixed label policy: class 1 is benign, every other
// output, including values outside {0,1}, is ransomware.
func LabelFor(class int) Label {
	if class == benignClass {
		return LabelBenign
	}
	return LabelRansomware
}

// Result is the outcome of one dispatch.
type Result struct {
	Label    Label
	Class    int
	Features features.Record
}

// Dispatcher feeds single rows to the predictor. It holds no mutable state and
// is safe for concurrent use.
type Dispatcher struct {
	predictor model.Predictor
}

func NewDispatcher(p model.Predictor) *Dispatcher {
	return &Dispatcher{predictor: p}
}

var errNoPredictor = errors.New("no predictor configured")

// Dispatch classifies rec. Predictor failures are returned wrapped and never
// retried.
func (d *Dispatcher) Dispatch(ctx context.Context, rec features.Record) (Result, error) {
	if d == nil || d.predictor == nil {
		return Result{}, errNoPredictor
	}
	class, err := d.predictor.Predict(ctx, rec.Vector())
	if err != nil {
		return Result{}, fmt.Errorf("predict: %w", err)
	}
	return Result{
		Label:    LabelFor(class),
		Class:    class,
		Features: rec,
	}, nil
}

// Describe reports the predictor backend when it supports it.
func (d *Dispatcher) Describe() model.Info {
	if d == nil || d.predictor == nil {
		return model.Info{}
	}
	if ds, ok := d.predictor.(model.Describer); ok {
		return ds.Describe()
	}
	return model.Info{Kind: "custom"}
}
