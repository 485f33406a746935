// Package backend routes every storage operation to the remote backend or
// the local engine, with automatic fallback to local when a remote call
// fails. The coordinator owns no state of its own.
package backend

import (
	"context"
	"time"

	"github.com/betjuliano/sefa-dashboard/internal/auth"
	"github.com/betjuliano/sefa-dashboard/internal/config"
	"github.com/betjuliano/sefa-dashboard/internal/local"
	"github.com/betjuliano/sefa-dashboard/internal/logging"
	"github.com/betjuliano/sefa-dashboard/internal/metrics"
	"github.com/betjuliano/sefa-dashboard/internal/prefs"
	"github.com/betjuliano/sefa-dashboard/internal/tabular"
	"github.com/betjuliano/sefa-dashboard/internal/uploads"
)

// Status describes which backend is active and whether the remote one is
// reachable right now.
type Status struct {
	CurrentBackend   string `json:"current_backend"`
	ForceLocal       bool   `json:"force_local"`
	LocalAvailable   bool   `json:"local_available"`
	RemoteConfigured bool   `json:"remote_configured"`
	RemoteConnected  bool   `json:"remote_connected"`
}

// Coordinator pairs every public operation with a remote and a local
// implementation. The backend choice is made once at construction; a failed
// startup probe silently downgrades to local for the process lifetime.
type Coordinator struct {
	local  *local.Engine
	remote Remote
	log    logging.Logger

	useRemote    bool
	forceLocal   bool
	probeTimeout time.Duration
}

// Option adjusts coordinator construction.
type Option func(*Coordinator)

// WithBackendOverride forces the backend choice, bypassing credential-based
// auto-detection. The force-local configuration flag still wins.
func WithBackendOverride(useRemote bool) Option {
	return func(c *Coordinator) {
		c.useRemote = useRemote && c.remote != nil
	}
}

// NewCoordinator decides the backend strategy and probes the remote when it
// was selected. remote may be nil, which always means local-only.
func NewCoordinator(cfg *config.Config, engine *local.Engine, remote Remote, log logging.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		local:        engine,
		remote:       remote,
		log:          log.With("component", "coordinator"),
		forceLocal:   cfg.ForceLocal,
		probeTimeout: cfg.ProbeTimeout,
	}

	c.useRemote = remote != nil && cfg.RemoteConfigured()
	for _, opt := range opts {
		opt(c)
	}
	if c.forceLocal {
		c.useRemote = false
	}

	if c.useRemote && !c.probe(context.Background()) {
		c.log.Warn(context.Background(), "remote probe failed, using local storage")
		c.useRemote = false
	}

	backendName := "local"
	if c.useRemote {
		backendName = "remote"
	}
	c.log.Info(context.Background(), "storage coordinator initialized", "backend", backendName)

	return c
}

func (c *Coordinator) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	if err := c.remote.Ping(probeCtx); err != nil {
		c.log.Warn(ctx, "remote connectivity probe failed", "error", err)
		return false
	}
	return true
}

// UsingRemote reports whether operations currently target the remote backend.
func (c *Coordinator) UsingRemote() bool {
	return c.useRemote
}

// execute runs one logical operation: remote first when remote mode is
// active, retrying against local on any remote error. A double failure is
// surfaced as a single BackendError carrying both causes.
func execute[T any](ctx context.Context, c *Coordinator, op string, remoteFn, localFn func(context.Context) (T, error)) (T, error) {
	if c.useRemote {
		v, err := remoteFn(ctx)
		metrics.ObserveOperation(op, "remote", err)
		if err == nil {
			return v, nil
		}

		c.log.Warn(ctx, "remote operation failed, falling back to local", "operation", op, "error", err)
		metrics.ObserveFallback(op)

		v, lerr := localFn(ctx)
		metrics.ObserveOperation(op, "local", lerr)
		if lerr != nil {
			var zero T
			return zero, &BackendError{Op: op, RemoteErr: err, LocalErr: lerr}
		}
		return v, nil
	}

	v, err := localFn(ctx)
	metrics.ObserveOperation(op, "local", err)
	return v, err
}

// Authenticate verifies credentials. A remote rejection falls back to local
// verification, so locally registered users stay reachable while the remote
// is down.
func (c *Coordinator) Authenticate(ctx context.Context, email, password string) (bool, error) {
	return execute(ctx, c, "authenticate",
		func(ctx context.Context) (bool, error) {
			if err := c.remote.SignIn(ctx, email, password); err != nil {
				return false, err
			}
			return true, nil
		},
		func(ctx context.Context) (bool, error) {
			return c.local.Authenticate(ctx, email, password)
		},
	)
}

// Register creates the account on the active backend.
func (c *Coordinator) Register(ctx context.Context, email, password string) error {
	_, err := execute(ctx, c, "register",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.remote.SignUp(ctx, email, password)
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.local.Register(ctx, email, password)
		},
	)
	return err
}

// Session returns the local account view; session state lives in local
// storage on both backends.
func (c *Coordinator) Session(ctx context.Context, email string) (*auth.Session, error) {
	return c.local.Session(ctx, email)
}

// ListUsers enumerates registered users from local storage.
func (c *Coordinator) ListUsers(ctx context.Context) ([]auth.UserInfo, error) {
	return c.local.ListUsers(ctx)
}

// SaveUpload archives a dataset. Upload persistence always lives in local
// storage, so both arms delegate to the engine.
func (c *Coordinator) SaveUpload(ctx context.Context, email string, data *tabular.Dataset, originalName string) (*uploads.Record, error) {
	fn := func(ctx context.Context) (*uploads.Record, error) {
		return c.local.SaveUpload(ctx, email, data, originalName)
	}
	return execute(ctx, c, "save_upload", fn, fn)
}

// ListUploads returns the user's upload records, newest first.
func (c *Coordinator) ListUploads(ctx context.Context, email string) ([]uploads.Record, error) {
	fn := func(ctx context.Context) ([]uploads.Record, error) {
		return c.local.ListUploads(ctx, email)
	}
	return execute(ctx, c, "list_uploads", fn, fn)
}

// LoadUpload reads back an archived dataset, or nil if unknown.
func (c *Coordinator) LoadUpload(ctx context.Context, email, id string) (*tabular.Dataset, error) {
	fn := func(ctx context.Context) (*tabular.Dataset, error) {
		return c.local.LoadUpload(ctx, email, id)
	}
	return execute(ctx, c, "load_upload", fn, fn)
}

// LatestUpload returns the most recent upload record, or nil without uploads.
func (c *Coordinator) LatestUpload(ctx context.Context, email string) (*uploads.Record, error) {
	fn := func(ctx context.Context) (*uploads.Record, error) {
		return c.local.LatestUpload(ctx, email)
	}
	return execute(ctx, c, "latest_upload", fn, fn)
}

// DeleteUpload removes an upload; false means the id was not present.
func (c *Coordinator) DeleteUpload(ctx context.Context, email, id string) (bool, error) {
	fn := func(ctx context.Context) (bool, error) {
		return c.local.DeleteUpload(ctx, email, id)
	}
	return execute(ctx, c, "delete_upload", fn, fn)
}

// GetPreferences returns the user's preferences with defaults merged in.
func (c *Coordinator) GetPreferences(ctx context.Context, email string) (prefs.Document, error) {
	fn := func(ctx context.Context) (prefs.Document, error) {
		return c.local.GetPreferences(ctx, email)
	}
	return execute(ctx, c, "get_preferences", fn, fn)
}

// SavePreferences persists the user's preference document.
func (c *Coordinator) SavePreferences(ctx context.Context, email string, doc prefs.Document) error {
	fn := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.local.SavePreferences(ctx, email, doc)
	}
	_, err := execute(ctx, c, "save_preferences", fn, fn)
	return err
}

// Status reports the backend selection and a live remote connectivity check.
func (c *Coordinator) Status(ctx context.Context) Status {
	s := Status{
		CurrentBackend:   "local",
		ForceLocal:       c.forceLocal,
		LocalAvailable:   true,
		RemoteConfigured: c.remote != nil,
	}
	if c.useRemote {
		s.CurrentBackend = "remote"
	}
	if c.remote != nil {
		s.RemoteConnected = c.probe(ctx)
	}
	return s
}

// SwitchBackend changes the active backend at runtime. Switching to remote
// is refused when force-local is set, when no remote is configured, or when
// the remote does not answer the probe.
func (c *Coordinator) SwitchBackend(ctx context.Context, useRemote bool) bool {
	if !useRemote {
		c.useRemote = false
		c.log.Info(ctx, "switched to local backend")
		return true
	}

	if c.forceLocal {
		c.log.Warn(ctx, "cannot switch to remote: local-only mode is forced")
		return false
	}
	if c.remote == nil {
		c.log.Warn(ctx, "cannot switch to remote: no remote configured")
		return false
	}
	if !c.probe(ctx) {
		c.log.Warn(ctx, "cannot switch to remote: probe failed")
		return false
	}

	c.useRemote = true
	c.log.Info(ctx, "switched to remote backend")
	return true
}
