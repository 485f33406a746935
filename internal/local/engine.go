// Package local composes path resolution, the credential vault, the upload
// archive and the preference store into one cohesive storage engine: the
// backend that is always available.
package local

import (
	"context"
	"time"

	"github.com/betjuliano/sefa-dashboard/internal/auth"
	"github.com/betjuliano/sefa-dashboard/internal/config"
	"github.com/betjuliano/sefa-dashboard/internal/identity"
	"github.com/betjuliano/sefa-dashboard/internal/logging"
	"github.com/betjuliano/sefa-dashboard/internal/prefs"
	"github.com/betjuliano/sefa-dashboard/internal/storage"
	"github.com/betjuliano/sefa-dashboard/internal/tabular"
	"github.com/betjuliano/sefa-dashboard/internal/uploads"
)

// systemConfig is the process-wide document seeded under shared/ on first
// start. Informational; nothing in this layer reads it back.
type systemConfig struct {
	Version           string    `json:"version"`
	StorageFormat     string    `json:"storage_format"`
	BackupEnabled     bool      `json:"backup_enabled"`
	MaxFileSizeMB     int       `json:"max_file_size_mb"`
	AllowedExtensions []string  `json:"allowed_extensions"`
	CreatedAt         time.Time `json:"created_at"`
}

// Engine is the local storage backend. All operations take the user's email;
// the engine derives the identity key internally so callers never handle
// filesystem paths or keys.
type Engine struct {
	resolver *storage.Resolver
	vault    *auth.Vault
	archive  *uploads.Archive
	prefs    *prefs.Store
	log      logging.Logger
}

// NewEngine builds the engine rooted at cfg.StorageRoot, scaffolding the
// directory layout and seeding the shared documents on first run.
func NewEngine(cfg *config.Config, log logging.Logger) (*Engine, error) {
	resolver, err := storage.NewResolver(cfg.StorageRoot)
	if err != nil {
		return nil, err
	}
	if err := resolver.EnsureLayout(); err != nil {
		return nil, err
	}

	store := storage.NewJSONStore()
	e := &Engine{
		resolver: resolver,
		vault:    auth.NewVault(resolver, store, log),
		archive:  uploads.NewArchive(resolver, store, log),
		prefs:    prefs.NewStore(resolver, store, log, cfg.DefaultGoal),
		log:      log.With("backend", "local"),
	}

	if err := e.seedSharedConfig(store); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Engine) seedSharedConfig(store *storage.JSONStore) error {
	path := e.resolver.SharedConfigPath()

	var existing systemConfig
	found, err := store.Read(path, &existing)
	if err != nil || found {
		return err
	}

	return store.Write(path, systemConfig{
		Version:           "1.0",
		StorageFormat:     "local",
		BackupEnabled:     true,
		MaxFileSizeMB:     100,
		AllowedExtensions: []string{".csv", ".xlsx", ".xls"},
		CreatedAt:         time.Now().UTC(),
	})
}

// Root returns the absolute storage root directory.
func (e *Engine) Root() string {
	return e.resolver.Root()
}

// Register stores credentials for a new or existing user.
func (e *Engine) Register(ctx context.Context, email, password string) error {
	return e.vault.SaveCredentials(ctx, email, password)
}

// Authenticate verifies credentials; wrong password and unknown user are both
// a plain false.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (bool, error) {
	return e.vault.VerifyCredentials(ctx, email, password)
}

// Session returns the account view for email, or nil if unregistered.
func (e *Engine) Session(ctx context.Context, email string) (*auth.Session, error) {
	return e.vault.Session(ctx, email)
}

// ListUsers enumerates registered users without password digests.
func (e *Engine) ListUsers(ctx context.Context) ([]auth.UserInfo, error) {
	return e.vault.ListUsers(ctx)
}

// SaveUpload archives a dataset for the given user.
func (e *Engine) SaveUpload(ctx context.Context, email string, data *tabular.Dataset, originalName string) (*uploads.Record, error) {
	key, err := identity.Key(email)
	if err != nil {
		return nil, err
	}
	return e.archive.Save(ctx, key, data, originalName)
}

// ListUploads returns the user's upload records, newest first.
func (e *Engine) ListUploads(ctx context.Context, email string) ([]uploads.Record, error) {
	key, err := identity.Key(email)
	if err != nil {
		return nil, err
	}
	return e.archive.List(ctx, key)
}

// LoadUpload reads back an archived dataset, or nil if unknown.
func (e *Engine) LoadUpload(ctx context.Context, email, id string) (*tabular.Dataset, error) {
	key, err := identity.Key(email)
	if err != nil {
		return nil, err
	}
	return e.archive.Load(ctx, key, id)
}

// LatestUpload returns the most recent upload record, or nil without uploads.
func (e *Engine) LatestUpload(ctx context.Context, email string) (*uploads.Record, error) {
	key, err := identity.Key(email)
	if err != nil {
		return nil, err
	}
	return e.archive.Latest(ctx, key)
}

// DeleteUpload removes an upload; false means the id was not present.
func (e *Engine) DeleteUpload(ctx context.Context, email, id string) (bool, error) {
	key, err := identity.Key(email)
	if err != nil {
		return false, err
	}
	return e.archive.Delete(ctx, key, id)
}

// GetPreferences returns the user's preferences with defaults merged in.
func (e *Engine) GetPreferences(ctx context.Context, email string) (prefs.Document, error) {
	key, err := identity.Key(email)
	if err != nil {
		return nil, err
	}
	return e.prefs.Get(ctx, key)
}

// SavePreferences persists the user's preference document.
func (e *Engine) SavePreferences(ctx context.Context, email string, doc prefs.Document) error {
	key, err := identity.Key(email)
	if err != nil {
		return err
	}
	return e.prefs.Save(ctx, key, doc)
}
