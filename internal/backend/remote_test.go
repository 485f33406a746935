package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "user-1",
		"exp": jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newAuthServer(t *testing.T, token string, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": token})
	})
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(status)
	})
	mux.HandleFunc("/auth/v1/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPRemote_SignIn_StoresToken(t *testing.T) {
	srv := newAuthServer(t, signedToken(t, time.Hour), http.StatusOK)
	r := NewHTTPRemote(srv.URL, "anon-key")

	require.NoError(t, r.SignIn(context.Background(), "u@test.io", "pw123"))
	assert.True(t, r.Authenticated())
}

func TestHTTPRemote_ExpiredTokenDropped(t *testing.T) {
	srv := newAuthServer(t, signedToken(t, -time.Minute), http.StatusOK)
	r := NewHTTPRemote(srv.URL, "anon-key")

	require.NoError(t, r.SignIn(context.Background(), "u@test.io", "pw123"))
	assert.False(t, r.Authenticated())
}

func TestHTTPRemote_SignIn_Rejected(t *testing.T) {
	srv := newAuthServer(t, "", http.StatusUnauthorized)
	r := NewHTTPRemote(srv.URL, "anon-key")

	err := r.SignIn(context.Background(), "u@test.io", "bad")
	assert.ErrorIs(t, err, ErrRemoteAuth)
	assert.False(t, r.Authenticated())
}

func TestHTTPRemote_SignIn_ServerError(t *testing.T) {
	srv := newAuthServer(t, "", http.StatusInternalServerError)
	r := NewHTTPRemote(srv.URL, "anon-key")

	err := r.SignIn(context.Background(), "u@test.io", "pw")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestHTTPRemote_SignIn_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := NewHTTPRemote(url, "anon-key")
	err := r.SignIn(context.Background(), "u@test.io", "pw")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestHTTPRemote_SignUp(t *testing.T) {
	srv := newAuthServer(t, "", http.StatusOK)
	r := NewHTTPRemote(srv.URL, "anon-key")

	require.NoError(t, r.SignUp(context.Background(), "u@test.io", "pw123"))
}

func TestHTTPRemote_SignUp_Rejected(t *testing.T) {
	srv := newAuthServer(t, "", http.StatusUnprocessableEntity)
	r := NewHTTPRemote(srv.URL, "anon-key")

	err := r.SignUp(context.Background(), "u@test.io", "pw")
	assert.ErrorIs(t, err, ErrRemoteAuth)
}

func TestHTTPRemote_Ping(t *testing.T) {
	srv := newAuthServer(t, "", http.StatusOK)
	r := NewHTTPRemote(srv.URL, "anon-key")

	require.NoError(t, r.Ping(context.Background()))
	require.NoError(t, r.Close())
}

func TestHTTPRemote_Ping_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	r := NewHTTPRemote(srv.URL, "anon-key")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.Ping(ctx)
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
}
