package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func classPtr(v int64) *int64 { return &v }

func TestPredictionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []Prediction{
		{ID: "a", CreatedAt: base, Source: "manual", Label: "benign", Class: classPtr(1), Features: `{"Machine":332}`},
		{ID: "b", CreatedAt: base.Add(time.Second), Source: "file", Label: "ransomware", Class: classPtr(0), SampleSHA256: "abc", SampleSize: 10},
		{ID: "c", CreatedAt: base.Add(2 * time.Second), Source: "file", Error: "No se pudieron extraer metadatos del archivo."},
	}
	for _, p := range rows {
		if err := s.RecordPrediction(ctx, p); err != nil {
			t.Fatalf("RecordPrediction(%s): %v", p.ID, err)
		}
	}

	got, err := s.ListPredictions(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "c" || got[2].ID != "a" {
		t.Fatalf("order = %+v", got)
	}
	if got[0].Class != nil {
		t.Fatalf("failed prediction has class %d", *got[0].Class)
	}
	if got[1].Class == nil || *got[1].Class != 0 || got[1].SampleSize != 10 {
		t.Fatalf("row b = %+v", got[1])
	}
	if !got[2].CreatedAt.Equal(base) {
		t.Fatalf("created_at = %v, want %v", got[2].CreatedAt, base)
	}

	limited, _ := s.ListPredictions(ctx, 1)
	if len(limited) != 1 || limited[0].ID != "c" {
		t.Fatalf("limit 1 = %+v", limited)
	}

	p, ok, err := s.GetPrediction(ctx, "a")
	if err != nil || !ok || p.Features != `{"Machine":332}` {
		t.Fatalf("GetPrediction = %+v, %v, %v", p, ok, err)
	}
	if _, ok, _ := s.GetPrediction(ctx, "zzz"); ok {
		t.Fatal("unknown id found")
	}

	counts, err := s.CountByLabel(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["benign"] != 1 || counts["ransomware"] != 1 || len(counts) != 2 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestAPIKeys(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	rec := APIKeyRecord{ID: "k1", Name: "ci", HashedSecret: "$2a$hash", CreatedAt: time.Now()}
	if err := s.CreateAPIKey(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.GetAPIKey(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("GetAPIKey: %v %v", ok, err)
	}
	if got.Name != "ci" || got.HashedSecret != "$2a$hash" || got.LastUsedAt != nil {
		t.Fatalf("key = %+v", got)
	}

	if err := s.UpdateAPIKeyLastUsed(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.GetAPIKey(ctx, "k1")
	if got.LastUsedAt == nil {
		t.Fatal("last_used_at not set")
	}

	keys, _ := s.ListAPIKeys(ctx)
	if len(keys) != 1 {
		t.Fatalf("keys = %+v", keys)
	}
	if err := s.DeleteAPIKey(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.GetAPIKey(ctx, "k1"); ok {
		t.Fatal("key survived delete")
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	ctx := context.Background()
	if err := s.RecordPrediction(ctx, Prediction{ID: "x"}); err != nil {
		t.Fatal(err)
	}
	if got, err := s.ListPredictions(ctx, 5); err != nil || got != nil {
		t.Fatalf("list = %v, %v", got, err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
