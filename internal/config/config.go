// Package config reads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC listener

	ModelPath        string
	PredictorURL     string // remote model server; overrides ModelPath when set
	PredictorTimeout time.Duration

	HistoryDBPath string // empty disables prediction history
	StaticDir     string
	UploadTempDir string
	MaxUploadSize int64

	// ContainManualErrors makes /predict_manual answer predictor failures with
	// a 200 {"error": ...} envelope like /predict does, instead of a 500.
	ContainManualErrors bool

	RequireAPIKey   bool
	CORSAllowOrigin string

	LogLevel  string
	LogFormat string
}

// Load builds the configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		HTTPAddr:            envOr("HTTP_ADDR", ":8000"),
		GRPCAddr:            envOrUnset("GRPC_ADDR", ":9090"),
		ModelPath:           envOr("MODEL_PATH", "model.json"),
		PredictorURL:        strings.TrimRight(os.Getenv("PREDICTOR_URL"), "/"),
		PredictorTimeout:    time.Duration(envOrInt("PREDICTOR_TIMEOUT_SECONDS", 10)) * time.Second,
		HistoryDBPath:       envOrUnset("HISTORY_DB_PATH", "predictions.db"),
		StaticDir:           envOr("STATIC_DIR", "static"),
		UploadTempDir:       os.Getenv("UPLOAD_TEMP_DIR"),
		MaxUploadSize:       int64(envOrPositiveInt("MAX_UPLOAD_MB", 64)) << 20,
		ContainManualErrors: envOrBool("CONTAIN_MANUAL_ERRORS", false),
		RequireAPIKey:       envOrBool("REQUIRE_API_KEY", false),
		CORSAllowOrigin:     envOr("CORS_ALLOW_ORIGIN", "*"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
		LogFormat:           envOr("LOG_FORMAT", "json"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// envOrUnset is envOr, except that a variable explicitly set to the empty
// string keeps its empty value.
func envOrUnset(k, def string) string {
	v, ok := os.LookupEnv(k)
	if !ok {
		return def
	}
	return v
}

func envOrInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envOrPositiveInt is envOrInt for settings where zero or less is meaningless.
func envOrPositiveInt(k string, def int) int {
	if n := envOrInt(k, def); n > 0 {
		return n
	}
	return def
}

func envOrBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
