package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrRemoteUnavailable means the remote endpoint could not be reached or
	// answered with a server error.
	ErrRemoteUnavailable = errors.New("remote backend unavailable")

	// ErrRemoteAuth means the remote backend rejected the credentials.
	ErrRemoteAuth = errors.New("remote authentication failed")
)

// Remote is the narrow surface this system needs from the remote backend:
// account sign-in/sign-up plus a liveness probe. Dataset and preference
// persistence never travels; it always lives in local storage.
type Remote interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string) error
	Ping(ctx context.Context) error
	Close() error
}

// HTTPRemote talks to a Supabase-style REST auth endpoint. It keeps the
// access token of the last successful sign-in and drops it once the token's
// exp claim has passed.
type HTTPRemote struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewHTTPRemote builds a remote client for the given endpoint and API key.
func NewHTTPRemote(baseURL, apiKey string) *HTTPRemote {
	return &HTTPRemote{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (r *HTTPRemote) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	return resp, nil
}

// SignIn authenticates against the remote backend and stores the returned
// access token for session tracking.
func (r *HTTPRemote) SignIn(ctx context.Context, email, password string) error {
	resp, err := r.postJSON(ctx, "/auth/v1/token?grant_type=password", credentialsBody{Email: email, Password: password})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %s", ErrRemoteUnavailable, resp.Status)
	default:
		return fmt.Errorf("%w: status %s", ErrRemoteAuth, resp.Status)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("%w: decoding token response: %v", ErrRemoteUnavailable, err)
	}

	r.storeToken(token.AccessToken)
	return nil
}

// storeToken records the access token together with its exp claim. The token
// is issued by the remote service, so the signature is not re-verified here;
// only the expiry matters for dropping stale sessions.
func (r *HTTPRemote) storeToken(token string) {
	expiry := time.Time{}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expiry = exp.Time
		}
	}

	r.mu.Lock()
	r.accessToken = token
	r.tokenExpiry = expiry
	r.mu.Unlock()
}

// Authenticated reports whether a non-expired access token is held.
func (r *HTTPRemote) Authenticated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accessToken == "" {
		return false
	}
	if !r.tokenExpiry.IsZero() && time.Now().After(r.tokenExpiry) {
		r.accessToken = ""
		return false
	}
	return true
}

// SignUp creates an account on the remote backend.
func (r *HTTPRemote) SignUp(ctx context.Context, email, password string) error {
	resp, err := r.postJSON(ctx, "/auth/v1/signup", credentialsBody{Email: email, Password: password})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %s", ErrRemoteUnavailable, resp.Status)
	default:
		return fmt.Errorf("%w: status %s", ErrRemoteAuth, resp.Status)
	}
}

// Ping probes the remote auth health endpoint.
func (r *HTTPRemote) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/auth/v1/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %s", ErrRemoteUnavailable, resp.Status)
	}
	return nil
}

// Close releases idle connections.
func (r *HTTPRemote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
