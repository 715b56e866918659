package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"HTTP_ADDR", "GRPC_ADDR", "MODEL_PATH", "PREDICTOR_URL", "PREDICTOR_TIMEOUT_SECONDS",
		"STATIC_DIR", "MAX_UPLOAD_MB", "CONTAIN_MANUAL_ERRORS", "REQUIRE_API_KEY",
	} {
		t.Setenv(k, "")
	}

	c := Load()
	if c.HTTPAddr != ":8000" || c.GRPCAddr != "" || c.ModelPath != "model.json" {
		t.Fatalf("addresses/model = %+v", c)
	}
	if c.PredictorTimeout != 10*time.Second {
		t.Fatalf("timeout = %v", c.PredictorTimeout)
	}
	if c.MaxUploadSize != 64<<20 {
		t.Fatalf("max upload = %d", c.MaxUploadSize)
	}
	if c.ContainManualErrors || c.RequireAPIKey {
		t.Fatalf("flags should default off: %+v", c)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PREDICTOR_URL", "http://models:9000/")
	t.Setenv("PREDICTOR_TIMEOUT_SECONDS", "3")
	t.Setenv("MAX_UPLOAD_MB", "not-a-number")
	t.Setenv("CONTAIN_MANUAL_ERRORS", "true")
	t.Setenv("HISTORY_DB_PATH", "")

	c := Load()
	if c.PredictorURL != "http://models:9000" {
		t.Fatalf("predictor url = %q", c.PredictorURL)
	}
	if c.PredictorTimeout != 3*time.Second {
		t.Fatalf("timeout = %v", c.PredictorTimeout)
	}
	if c.MaxUploadSize != 64<<20 {
		t.Fatalf("bad int should fall back, got %d", c.MaxUploadSize)
	}
	if !c.ContainManualErrors {
		t.Fatal("CONTAIN_MANUAL_ERRORS ignored")
	}
	if c.HistoryDBPath != "" {
		t.Fatalf("explicit empty HISTORY_DB_PATH = %q", c.HistoryDBPath)
	}
}

func TestNewLogger(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	l := newLogger(&buf, "warn", "text")
	l.Info("hidden")
	l.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "k=v") {
		t.Fatalf("output = %q", out)
	}

	buf.Reset()
	newLogger(&buf, "debug", "json").Debug("dbg")
	if !strings.Contains(buf.String(), `"msg":"dbg"`) {
		t.Fatalf("json output = %q", buf.String())
	}
}

func TestMaxUploadRejectsNonPositive(t *testing.T) {
	for _, v := range []string{"0", "-5"} {
		t.Setenv("MAX_UPLOAD_MB", v)
		if got := Load().MaxUploadSize; got != 64<<20 {
			t.Fatalf("MAX_UPLOAD_MB=%s: max upload = %d, want default", v, got)
		}
	}
	t.Setenv("MAX_UPLOAD_MB", "8")
	if got := Load().MaxUploadSize; got != 8<<20 {
		t.Fatalf("max upload = %d", got)
	}
}
