package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betjuliano/sefa-dashboard/internal/auth"
	"github.com/betjuliano/sefa-dashboard/internal/config"
	"github.com/betjuliano/sefa-dashboard/internal/local"
	"github.com/betjuliano/sefa-dashboard/internal/logging"
	"github.com/betjuliano/sefa-dashboard/internal/prefs"
	"github.com/betjuliano/sefa-dashboard/internal/tabular"
)

type stubRemote struct {
	signInErr error
	signUpErr error
	pingErr   error

	signInCalls int
	signUpCalls int
}

func (s *stubRemote) SignIn(ctx context.Context, email, password string) error {
	s.signInCalls++
	return s.signInErr
}

func (s *stubRemote) SignUp(ctx context.Context, email, password string) error {
	s.signUpCalls++
	return s.signUpErr
}

func (s *stubRemote) Ping(ctx context.Context) error { return s.pingErr }
func (s *stubRemote) Close() error                   { return nil }

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig(t *testing.T, remote bool) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StorageRoot = t.TempDir()
	if remote {
		cfg.RemoteURL = "https://remote.test"
		cfg.RemoteKey = "anon-key"
	}
	return cfg
}

func newLocalEngine(t *testing.T, cfg *config.Config) *local.Engine {
	t.Helper()
	engine, err := local.NewEngine(cfg, testLogger())
	require.NoError(t, err)
	return engine
}

func TestNewCoordinator_LocalWithoutRemoteCredentials(t *testing.T) {
	cfg := testConfig(t, false)
	c := NewCoordinator(cfg, newLocalEngine(t, cfg), nil, testLogger())
	assert.False(t, c.UsingRemote())
}

func TestNewCoordinator_RemoteWhenConfiguredAndReachable(t *testing.T) {
	cfg := testConfig(t, true)
	c := NewCoordinator(cfg, newLocalEngine(t, cfg), &stubRemote{}, testLogger())
	assert.True(t, c.UsingRemote())
}

func TestNewCoordinator_ForceLocalWins(t *testing.T) {
	cfg := testConfig(t, true)
	cfg.ForceLocal = true
	c := NewCoordinator(cfg, newLocalEngine(t, cfg), &stubRemote{}, testLogger(),
		WithBackendOverride(true))
	assert.False(t, c.UsingRemote())
}

func TestNewCoordinator_ProbeFailureDowngrades(t *testing.T) {
	cfg := testConfig(t, true)
	remote := &stubRemote{pingErr: errors.New("connection refused")}
	c := NewCoordinator(cfg, newLocalEngine(t, cfg), remote, testLogger())
	assert.False(t, c.UsingRemote())
}

func TestAuthenticate_RemoteFailureFallsBackToLocal(t *testing.T) {
	cfg := testConfig(t, true)
	engine := newLocalEngine(t, cfg)
	ctx := context.Background()

	// Credentials only exist in local storage.
	require.NoError(t, engine.Register(ctx, "u@test.io", "pw123"))

	remote := &stubRemote{signInErr: errors.New("remote down")}
	c := NewCoordinator(cfg, engine, remote, testLogger(), WithBackendOverride(true))
	require.True(t, c.UsingRemote())

	ok, err := c.Authenticate(ctx, "u@test.io", "pw123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remote.signInCalls)
}

func TestAuthenticate_BothBackendsFail(t *testing.T) {
	cfg := testConfig(t, true)
	engine := newLocalEngine(t, cfg)

	remote := &stubRemote{signInErr: errors.New("remote down")}
	c := NewCoordinator(cfg, engine, remote, testLogger(), WithBackendOverride(true))

	// Empty email fails locally too, so both causes aggregate.
	_, err := c.Authenticate(context.Background(), "", "pw")
	require.Error(t, err)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "authenticate", be.Op)
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
	assert.EqualError(t, be.RemoteErr, "remote down")
}

func TestRegister_RemoteMode(t *testing.T) {
	cfg := testConfig(t, true)
	engine := newLocalEngine(t, cfg)
	ctx := context.Background()

	remote := &stubRemote{}
	c := NewCoordinator(cfg, engine, remote, testLogger(), WithBackendOverride(true))

	require.NoError(t, c.Register(ctx, "u@test.io", "pw123"))
	assert.Equal(t, 1, remote.signUpCalls)
}

func TestRegister_RemoteFailureFallsBackToLocal(t *testing.T) {
	cfg := testConfig(t, true)
	engine := newLocalEngine(t, cfg)
	ctx := context.Background()

	remote := &stubRemote{signUpErr: errors.New("remote down")}
	c := NewCoordinator(cfg, engine, remote, testLogger(), WithBackendOverride(true))

	require.NoError(t, c.Register(ctx, "u@test.io", "pw123"))

	// The account landed in local storage.
	ok, err := engine.Authenticate(ctx, "u@test.io", "pw123")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalOnly_EndToEnd(t *testing.T) {
	cfg := testConfig(t, false)
	engine := newLocalEngine(t, cfg)
	c := NewCoordinator(cfg, engine, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "u@test.io", "pw123"))

	ok, err := c.Authenticate(ctx, "u@test.io", "pw123")
	require.NoError(t, err)
	require.True(t, ok)

	ds := &tabular.Dataset{
		Columns: []string{"a", "b", "c"},
		Rows:    [][]string{{"1", "2", "3"}, {"4", "5", "6"}, {"7", "8", "9"}, {"0", "0", "0"}, {"1", "1", "1"}},
	}
	rec, err := c.SaveUpload(ctx, "u@test.io", ds, "data.csv")
	require.NoError(t, err)

	records, err := c.ListUploads(ctx, "u@test.io")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 5, records[0].Rows)
	assert.Equal(t, 3, records[0].Columns)

	latest, err := c.LatestUpload(ctx, "u@test.io")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, rec.ID, latest.ID)

	loaded, err := c.LoadUpload(ctx, "u@test.io", rec.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, ds.Rows, loaded.Rows)

	require.NoError(t, c.SavePreferences(ctx, "u@test.io", prefs.Document{"goal": 4.2}))
	doc, err := c.GetPreferences(ctx, "u@test.io")
	require.NoError(t, err)
	assert.Equal(t, 4.2, doc["goal"])
	assert.Contains(t, doc, "default_filters")

	ok, err = c.DeleteUpload(ctx, "u@test.io", rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	records, err = c.ListUploads(ctx, "u@test.io")
	require.NoError(t, err)
	assert.Empty(t, records)

	sess, err := c.Session(ctx, "u@test.io")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.LoggedIn)
}

func TestStatus(t *testing.T) {
	cfg := testConfig(t, true)
	engine := newLocalEngine(t, cfg)
	remote := &stubRemote{}
	c := NewCoordinator(cfg, engine, remote, testLogger())

	s := c.Status(context.Background())
	assert.Equal(t, "remote", s.CurrentBackend)
	assert.True(t, s.LocalAvailable)
	assert.True(t, s.RemoteConfigured)
	assert.True(t, s.RemoteConnected)

	remote.pingErr = errors.New("down")
	s = c.Status(context.Background())
	assert.False(t, s.RemoteConnected)
}

func TestSwitchBackend(t *testing.T) {
	cfg := testConfig(t, true)
	engine := newLocalEngine(t, cfg)
	remote := &stubRemote{}
	c := NewCoordinator(cfg, engine, remote, testLogger())
	ctx := context.Background()

	require.True(t, c.UsingRemote())

	assert.True(t, c.SwitchBackend(ctx, false))
	assert.False(t, c.UsingRemote())

	remote.pingErr = errors.New("down")
	assert.False(t, c.SwitchBackend(ctx, true))
	assert.False(t, c.UsingRemote())

	remote.pingErr = nil
	assert.True(t, c.SwitchBackend(ctx, true))
	assert.True(t, c.UsingRemote())
}

func TestSwitchBackend_ForceLocalRefusesRemote(t *testing.T) {
	cfg := testConfig(t, true)
	cfg.ForceLocal = true
	engine := newLocalEngine(t, cfg)
	c := NewCoordinator(cfg, engine, &stubRemote{}, testLogger())

	assert.False(t, c.SwitchBackend(context.Background(), true))
	assert.False(t, c.UsingRemote())
}
