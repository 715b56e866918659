package inference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mcules/ransomguard/internal/features"
	"github.com/mcules/ransomguard/internal/model"
)

func constant(class int) model.Predictor {
	return model.PredictorFunc(func(context.Context, features.Vector) (int, error) {
		return class, nil
	})
}

func TestLabelPolicy(t *testing.T) {
	cases := []struct {
		out  int
		want Label
	}{
		{1, LabelBenign},
		{0, LabelRansomware},
		{2, LabelRansomware},
		{-1, LabelRansomware},
	}
	for _, tc := range cases {
		d := NewDispatcher(constant(tc.out))
		res, err := d.Dispatch(context.Background(), features.Record{Machine: 332})
		if err != nil {
			t.Fatalf("out=%d: %v", tc.out, err)
		}
		if res.Label != tc.want || res.Class != tc.out {
			t.Fatalf("out=%d: got %+v, want %s", tc.out, res, tc.want)
		}
		if res.Features.Machine != 332 {
			t.Fatalf("features not carried through: %+v", res.Features)
		}
	}
}

func TestDispatchSendsSchemaOrderedRow(t *testing.T) {
	var got features.Vector
	var calls atomic.Int32
	d := NewDispatcher(model.PredictorFunc(func(_ context.Context, v features.Vector) (int, error) {
		calls.Add(1)
		got = v
		return 1, nil
	}))

	rec := features.Record{Machine: 332, IatVRA: 4096, BitcoinAddresses: 3}
	if _, err := d.Dispatch(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Fatalf("predictor called %d times", calls.Load())
	}
	if got[0] != 332 || got[7] != 4096 || got[14] != 3 {
		t.Fatalf("row = %v", got)
	}
}

func TestDispatchPropagatesPredictorError(t *testing.T) {
	boom := errors.New("shape mismatch")
	d := NewDispatcher(model.PredictorFunc(func(context.Context, features.Vector) (int, error) {
		return 0, boom
	}))
	_, err := d.Dispatch(context.Background(), features.Record{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}

	if _, err := NewDispatcher(nil).Dispatch(context.Background(), features.Record{}); err == nil {
		t.Fatal("nil predictor accepted")
	}
}

func TestDispatchIdempotentUnderConcurrency(t *testing.T) {
	d := NewDispatcher(model.PredictorFunc(func(_ context.Context, v features.Vector) (int, error) {
		if v.Get(features.NumberOfSections) > 3 {
			return 1, nil
		}
		return 0, nil
	}))
	rec := features.Record{NumberOfSections: 4}

	var wg sync.WaitGroup
	labels := make(chan Label, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := d.Dispatch(context.Background(), rec)
			if err != nil {
				t.Error(err)
				return
			}
			labels <- res.Label
		}()
	}
	wg.Wait()
	close(labels)
	for l := range labels {
		if l != LabelBenign {
			t.Fatalf("label = %s, want benign", l)
		}
	}
}

func TestDescribe(t *testing.T) {
	if got := NewDispatcher(constant(1)).Describe(); got.Kind != "custom" {
		t.Fatalf("kind = %q", got.Kind)
	}
}
