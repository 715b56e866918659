package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/mcules/ransomguard/internal/history"
)

func newAuth(t *testing.T, required bool) *Authenticator {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "keys.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	a := NewAuthenticator(store, required)
	a.Cost = bcrypt.MinCost
	return a
}

func TestGenerateAndVerify(t *testing.T) {
	a := newAuth(t, true)
	ctx := context.Background()

	key, rec, err := a.GenerateKey(ctx, "scanner")
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if !strings.HasPrefix(key, "rg_"+rec.ID+"_") {
		t.Fatalf("key %q does not carry id %q", key, rec.ID)
	}
	if strings.Contains(rec.HashedSecret, key[len("rg_"+rec.ID+"_"):]) {
		t.Fatal("secret stored in plaintext")
	}

	got, err := a.Verify(ctx, key)
	if err != nil || got.ID != rec.ID {
		t.Fatalf("Verify = %+v, %v", got, err)
	}

	bad := []string{
		"",
		"rg_" + rec.ID + "_deadbeef",
		"xx_" + rec.ID + "_" + key[len("rg_"+rec.ID+"_"):],
		"rg_unknown_secret",
		"garbage",
	}
	for _, k := range bad {
		if _, err := a.Verify(ctx, k); err == nil {
			t.Fatalf("Verify(%q) accepted", k)
		}
	}
}

func TestMiddleware(t *testing.T) {
	a := newAuth(t, true)
	key, rec, err := a.GenerateKey(context.Background(), "web")
	if err != nil {
		t.Fatal(err)
	}

	var seenKey string
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKey = KeyID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Token abc", http.StatusUnauthorized},
		{"Bearer ", http.StatusUnauthorized},
		{"Bearer rg_nope_nope", http.StatusUnauthorized},
		{"Bearer " + key, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/predict", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != tc.want {
			t.Fatalf("header %q: status %d, want %d", tc.header, rr.Code, tc.want)
		}
		if rr.Code == http.StatusUnauthorized && !strings.HasPrefix(rr.Body.String(), `{"error":`) {
			t.Fatalf("unauthorized body = %q", rr.Body.String())
		}
	}
	if seenKey != rec.ID {
		t.Fatalf("key id in context = %q, want %q", seenKey, rec.ID)
	}
}

func TestMiddlewareOptional(t *testing.T) {
	a := newAuth(t, false)
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestUnaryInterceptor(t *testing.T) {
	a := newAuth(t, true)
	key, _, err := a.GenerateKey(context.Background(), "grpc")
	if err != nil {
		t.Fatal(err)
	}
	handler := func(ctx context.Context, req any) (any, error) { return KeyID(ctx), nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/ransomguard.v1.Classifier/PredictFeatures"}

	_, err = a.UnaryInterceptor(context.Background(), nil, info, handler)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("no metadata: %v", err)
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+key))
	out, err := a.UnaryInterceptor(ctx, nil, info, handler)
	if err != nil || out.(string) == "" {
		t.Fatalf("valid key: %v %v", out, err)
	}

	health := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	if _, err := a.UnaryInterceptor(context.Background(), nil, health, handler); err != nil {
		t.Fatalf("health check gated: %v", err)
	}
}
