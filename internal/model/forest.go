package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mcules/ransomguard/internal/features"
)

// leaf marks a node without children, as in scikit-learn tree exports.
const leaf = -1

// Node is one split or leaf of a decision tree. Rows with
// x[Feature] <= Threshold go left.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a tree ensemble exported from the training pipeline. Prediction
// averages the normalised leaf distributions and takes the first arg max.
type Forest struct {
	FeatureNames []string `json:"feature_names"`
	Classes      []int    `json:"classes"`
	Trees        []Tree   `json:"trees"`

	source string
}

// LoadForest reads and validates a forest artifact from disk.
func LoadForest(path string) (*Forest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	fr, err := ParseForest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	fr.source = path
	return fr, nil
}

// ParseForest decodes a forest artifact and checks it against the feature schema.
func ParseForest(r io.Reader) (*Forest, error) {
	var fr Forest
	if err := json.NewDecoder(r).Decode(&fr); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := fr.validate(); err != nil {
		return nil, err
	}
	fr.normalise()
	return &fr, nil
}

func (f *Forest) validate() error {
	names := features.Names()
	if len(f.FeatureNames) != len(names) {
		return fmt.Errorf("model expects %d features, schema has %d", len(f.FeatureNames), len(names))
	}
	for i, n := range names {
		if f.FeatureNames[i] != n {
			return fmt.Errorf("feature %d is %q in model, %q in schema", i, f.FeatureNames[i], n)
		}
	}
	if len(f.Classes) == 0 {
		return errors.New("model has no classes")
	}
	if len(f.Trees) == 0 {
		return errors.New("model has no trees")
	}

	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Left == leaf && n.Right == leaf {
				if len(n.Value) != len(f.Classes) {
					return fmt.Errorf("tree %d node %d: %d values for %d classes", ti, ni, len(n.Value), len(f.Classes))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= features.NumFields {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			// Children always come after their parent, so evaluation terminates.
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: bad children %d/%d", ti, ni, n.Left, n.Right)
			}
		}
	}
	return nil
}

// normalise turns leaf sample counts into class fractions.
func (f *Forest) normalise() {
	for ti := range f.Trees {
		for ni := range f.Trees[ti].Nodes {
			n := &f.Trees[ti].Nodes[ni]
			if n.Left != leaf {
				continue
			}
			var sum float64
			for _, v := range n.Value {
				sum += v
			}
			if sum <= 0 {
				continue
			}
			for i := range n.Value {
				n.Value[i] /= sum
			}
		}
	}
}

func (t Tree) leafFor(v features.Vector) []float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == leaf {
			return n.Value
		}
		if v[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Proba returns the averaged class distribution for v, indexed like Classes.
func (f *Forest) Proba(v features.Vector) []float64 {
	out := make([]float64, len(f.Classes))
	for _, t := range f.Trees {
		for i, p := range t.leafFor(v) {
			out[i] += p
		}
	}
	for i := range out {
		out[i] /= float64(len(f.Trees))
	}
	return out
}

func (f *Forest) Predict(ctx context.Context, v features.Vector) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p := f.Proba(v)
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return f.Classes[best], nil
}

func (f *Forest) Describe() Info {
	return Info{
		Kind:    "forest",
		Source:  f.source,
		Trees:   len(f.Trees),
		Classes: append([]int(nil), f.Classes...),
	}
}
