package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Mode represents the authentication strategy to apply for incoming requests.
type Mode string

const (
	// ModeClerk enables Clerk JWT verification using a JWKS endpoint.
	ModeClerk Mode = "clerk"
	// ModeNoop disables signature verification and treats the bearer token as the user ID (useful for local development and tests).
	ModeNoop Mode = "noop"
)

// Config captures the inputs required to initialize an authenticator.
type Config struct {
	Mode     Mode
	JWKSURL  string
	Audience string
	Issuer   string
}

// AuthenticatedUser represents the currently authenticated subject extracted from the bearer token.
type AuthenticatedUser struct {
	UserID    string
	SessionID string
	ExpiresAt int64
}

// Verifier verifies a bearer token and returns the associated user context.
type Verifier interface {
	Verify(ctx context.Context, token string) (AuthenticatedUser, error)
}

var (
	errMissingAuthHeader = errors.New("authorization header missing")
	errInvalidAuthHeader = errors.New("authorization header is malformed")
	errNoSubject         = errors.New("token carries no subject")
	errNoVerifier        = errors.New("authentication is not configured")
)

type ctxKey struct{}

// Middleware resolves the bearer token on every request and attaches the
// verified user to its context. Requests it cannot attribute to a user stop
// here with a 401; the metrics engine never sees them.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, verifier)
			if err != nil {
				reject(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func authenticate(r *http.Request, verifier Verifier) (AuthenticatedUser, error) {
	if verifier == nil {
		return AuthenticatedUser{}, errNoVerifier
	}
	token, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return AuthenticatedUser{}, err
	}
	user, err := verifier.Verify(r.Context(), token)
	if err != nil {
		return AuthenticatedUser{}, err
	}
	if user.UserID == "" {
		return AuthenticatedUser{}, errNoSubject
	}
	return user, nil
}

// bearerToken extracts the credentials from an "Authorization: Bearer <token>"
// header value. The scheme is case-insensitive.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingAuthHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", errInvalidAuthHeader
	}
	return token, nil
}

func reject(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="progress"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":      "unauthorized",
		"message":   err.Error(),
		"requestId": middleware.GetReqID(r.Context()),
	})
}

// WithUser stores an authenticated user on ctx.
func WithUser(ctx context.Context, user AuthenticatedUser) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	value, ok := ctx.Value(ctxKey{}).(AuthenticatedUser)
	return value, ok
}

// ContextProvider resolves the current user from the request context. It
// satisfies the engine's AuthProvider contract.
type ContextProvider struct{}

// CurrentUserID returns the user attached by Middleware, if any.
func (ContextProvider) CurrentUserID(ctx context.Context) (string, bool) {
	user, ok := UserFromContext(ctx)
	if !ok || user.UserID == "" {
		return "", false
	}
	return user.UserID, true
}

// NewVerifier constructs a Verifier matching the supplied configuration.
func NewVerifier(cfg Config) (Verifier, error) {
	switch cfg.Mode {
	case ModeClerk:
		return newClerkVerifier(cfg)
	case ModeNoop:
		return noopVerifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}
