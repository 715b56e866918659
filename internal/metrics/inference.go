// Package metrics keeps in-process counters for classification requests.
package metrics

import (
	"sync"
	"time"
)

// SourceStats aggregates the requests of one entry point ("file", "manual",
// "grpc").
type SourceStats struct {
	// EWMA of inference latency in milliseconds.
	EWMAms float64 `json:"ewma_ms"`

	OK    uint64 `json:"ok"`
	Error uint64 `json:"error"`

	LastLatency time.Duration `json:"last_latency_ns"`
	LastAt      time.Time     `json:"last_at"`
}

type Snapshot struct {
	Sources map[string]SourceStats `json:"sources"`
	Labels  map[string]uint64      `json:"labels"`
	Since   time.Time              `json:"since"`
}

type Tracker struct {
	mu      sync.RWMutex
	alpha   float64
	since   time.Time
	sources map[string]*SourceStats
	labels  map[string]uint64
}

// NewTracker creates a tracker with EWMA smoothing factor alpha.
// Values outside (0,1) fall back to 0.2.
func NewTracker(alpha float64) *Tracker {
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.2
	}
	return &Tracker{
		alpha:   alpha,
		since:   time.Now(),
		sources: map[string]*SourceStats{},
		labels:  map[string]uint64{},
	}
}

// ObserveOK records a successful classification with its label.
func (t *Tracker) ObserveOK(source, label string, took time.Duration) {
	if t == nil {
		return
	}
	t.observe(source, label, took, true)
}

func (t *Tracker) ObserveError(source string, took time.Duration) {
	if t == nil {
		return
	}
	t.observe(source, "", took, false)
}

func (t *Tracker) observe(source, label string, took time.Duration, ok bool) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.sources[source]
	if s == nil {
		s = &SourceStats{}
		t.sources[source] = s
	}

	ms := float64(took) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	if s.OK+s.Error == 0 {
		s.EWMAms = ms
	} else {
		s.EWMAms = (t.alpha * ms) + ((1.0 - t.alpha) * s.EWMAms)
	}

	s.LastLatency = took
	s.LastAt = now
	if ok {
		s.OK++
		t.labels[label]++
	} else {
		s.Error++
	}
}

func (t *Tracker) Get(source string) (SourceStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.sources[source]
	if s == nil {
		return SourceStats{}, false
	}
	return *s, true
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := Snapshot{
		Sources: make(map[string]SourceStats, len(t.sources)),
		Labels:  make(map[string]uint64, len(t.labels)),
		Since:   t.since,
	}
	for k, v := range t.sources {
		out.Sources[k] = *v
	}
	for k, v := range t.labels {
		out.Labels[k] = v
	}
	return out
}
