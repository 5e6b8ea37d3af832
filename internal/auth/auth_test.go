package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_NoopAttachesUser(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeNoop})
	require.NoError(t, err)

	var got string
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ContextProvider{}.CurrentUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer user-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-42", got)
}

func TestMiddleware_RejectsMissingOrMalformedHeader(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeNoop})
	require.NoError(t, err)

	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	for _, header := range []string{"", "Basic abc", "Bearer   "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Contains(t, rec.Body.String(), `"unauthorized"`)
	}
}

type subjectlessVerifier struct{}

func (subjectlessVerifier) Verify(context.Context, string) (AuthenticatedUser, error) {
	return AuthenticatedUser{SessionID: "sess_1"}, nil
}

func TestMiddleware_RejectsUnattributableRequests(t *testing.T) {
	cases := map[string]Verifier{
		"no verifier":   nil,
		"empty subject": subjectlessVerifier{},
	}
	for name, verifier := range cases {
		t.Run(name, func(t *testing.T) {
			handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("handler must not run")
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer token")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, err := bearerToken("bEaReR  abc.def ")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	_, err = bearerToken("")
	assert.ErrorIs(t, err, errMissingAuthHeader)
	_, err = bearerToken("Bearer")
	assert.ErrorIs(t, err, errInvalidAuthHeader)
}

func TestContextProvider_NoUser(t *testing.T) {
	_, ok := ContextProvider{}.CurrentUserID(context.Background())
	assert.False(t, ok)
}

func TestNewVerifier_UnknownMode(t *testing.T) {
	_, err := NewVerifier(Config{Mode: "saml"})
	require.Error(t, err)
}

func TestVerifyClaims(t *testing.T) {
	secret := []byte("test-secret")
	keys := func(*jwt.Token) (any, error) { return secret, nil }

	sign := func(claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)
		return token
	}

	exp := time.Now().Add(time.Hour).Unix()
	user, err := verifyClaims(sign(jwt.MapClaims{
		"sub": "user_123",
		"sid": "sess_9",
		"iss": "https://clerk.example",
		"exp": exp,
	}), keys, "", "https://clerk.example")
	require.NoError(t, err)
	assert.Equal(t, "user_123", user.UserID)
	assert.Equal(t, "sess_9", user.SessionID)
	assert.Equal(t, exp, user.ExpiresAt)

	_, err = verifyClaims(sign(jwt.MapClaims{"exp": exp}), keys, "", "")
	assert.ErrorIs(t, err, errMissingSubject)

	_, err = verifyClaims(sign(jwt.MapClaims{"sub": "user_123", "iss": "other", "exp": exp}), keys, "", "https://clerk.example")
	assert.Error(t, err)

	_, err = verifyClaims(sign(jwt.MapClaims{"sub": "user_123"}), keys, "", "")
	assert.Error(t, err, "expiration is required")
}
