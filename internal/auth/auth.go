package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/mcules/ransomguard/internal/history"
)

const keyPrefix = "rg"

var (
	ErrMissingKey = errors.New("missing API key")
	ErrInvalidKey = errors.New("invalid API key")
)

// KeyStore is the subset of the history store used for API keys.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, record history.APIKeyRecord) error
	GetAPIKey(ctx context.Context, id string) (history.APIKeyRecord, bool, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

type Authenticator struct {
	Store KeyStore

	// Required turns the middleware into a gate. When false requests pass
	// through untouched.
	Required bool

	// Cost is the bcrypt cost for new keys; zero means bcrypt.DefaultCost.
	Cost int
}

func NewAuthenticator(store KeyStore, required bool) *Authenticator {
	return &Authenticator{Store: store, Required: required}
}

// GenerateKey creates a key "rg_<id>_<secret>". Only the bcrypt hash of the
// secret is stored; the plaintext is returned once.
func (a *Authenticator) GenerateKey(ctx context.Context, name string) (string, history.APIKeyRecord, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", history.APIKeyRecord{}, err
	}
	secret := hex.EncodeToString(raw)
	id := uuid.NewString()

	cost := a.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", history.APIKeyRecord{}, err
	}

	record := history.APIKeyRecord{
		ID:           id,
		Name:         name,
		HashedSecret: string(hashed),
		CreatedAt:    time.Now(),
	}
	if err := a.Store.CreateAPIKey(ctx, record); err != nil {
		return "", history.APIKeyRecord{}, err
	}

	return keyPrefix + "_" + id + "_" + secret, record, nil
}

// Verify checks a plaintext key and returns its record.
func (a *Authenticator) Verify(ctx context.Context, key string) (history.APIKeyRecord, error) {
	if key == "" {
		return history.APIKeyRecord{}, ErrMissingKey
	}
	parts := strings.SplitN(key, "_", 3)
	if len(parts) != 3 || parts[0] != keyPrefix {
		return history.APIKeyRecord{}, ErrInvalidKey
	}

	rec, ok, err := a.Store.GetAPIKey(ctx, parts[1])
	if err != nil {
		return history.APIKeyRecord{}, err
	}
	if !ok {
		return history.APIKeyRecord{}, ErrInvalidKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.HashedSecret), []byte(parts[2])); err != nil {
		return history.APIKeyRecord{}, ErrInvalidKey
	}

	// Update last used asynchronously.
	go func() {
		if err := a.Store.UpdateAPIKeyLastUsed(context.Background(), rec.ID); err != nil {
			slog.Warn("update key last used", "key_id", rec.ID, "err", err)
		}
	}()
	return rec, nil
}

type ctxKeyID struct{}

// KeyID returns the API key id attached to ctx by the middleware, if any.
func KeyID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyID{}).(string)
	return id
}

func bearerToken(h string) (string, bool) {
	parts := strings.Split(h, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}

// Middleware checks the Authorization header when keys are required.
// Failures answer with the JSON error envelope.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Required {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeUnauthorized(w, "Missing Authorization header")
			return
		}
		key, ok := bearerToken(authHeader)
		if !ok {
			writeUnauthorized(w, "Invalid Authorization header format")
			return
		}

		rec, err := a.Verify(r.Context(), key)
		if errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrMissingKey) {
			writeUnauthorized(w, "Invalid API key")
			return
		}
		if err != nil {
			slog.Error("verify api key", "err", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyID{}, rec.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// UnaryInterceptor applies the same check to gRPC calls using the
// "authorization" metadata entry. Health checks are always allowed.
func (a *Authenticator) UnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !a.Required || strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
		return handler(ctx, req)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
	}
	key, ok := bearerToken(vals[0])
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "invalid authorization metadata")
	}
	rec, err := a.Verify(ctx, key)
	if errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrMissingKey) {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "verify key: %v", err)
	}
	return handler(context.WithValue(ctx, ctxKeyID{}, rec.ID), req)
}
