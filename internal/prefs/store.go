// Package prefs persists per-user settings documents. Documents are
// schema-less at this boundary; stored values win over built-in defaults,
// and default keys added in later releases automatically appear for
// existing users.
package prefs

import (
	"context"
	"time"

	"github.com/betjuliano/sefa-dashboard/internal/logging"
	"github.com/betjuliano/sefa-dashboard/internal/storage"
)

// Document is an arbitrary nested settings map. Consumers must validate the
// fields they read instead of assuming shape.
type Document = map[string]any

// Store reads and writes one preference document per user.
type Store struct {
	resolver    *storage.Resolver
	store       *storage.JSONStore
	log         logging.Logger
	defaultGoal float64

	now func() time.Time // test seam
}

// NewStore constructs a preference store. defaultGoal seeds the built-in
// default document for users who never saved preferences.
func NewStore(resolver *storage.Resolver, store *storage.JSONStore, log logging.Logger, defaultGoal float64) *Store {
	return &Store{
		resolver:    resolver,
		store:       store,
		log:         log.With("component", "prefs"),
		defaultGoal: defaultGoal,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Defaults returns a fresh copy of the built-in default document.
func (s *Store) Defaults() Document {
	return Document{
		"goal": s.defaultGoal,
		"default_filters": map[string]any{
			"age_range":      []any{18.0, 65.0},
			"sex":            "Todos",
			"education":      "Todos",
			"public_servant": "Todos",
		},
		"ui_preferences": map[string]any{
			"theme":        "default",
			"chart_colors": []any{"#1f77b4", "#ff7f0e", "#2ca02c"},
		},
	}
}

// merge overlays stored values on top of defaults, recursing into nested
// maps. Keys present in both take the stored value; default-only keys are
// filled in.
func merge(defaults, stored Document) Document {
	out := Document{}
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range stored {
		if storedMap, ok := v.(map[string]any); ok {
			if defaultMap, ok := out[k].(map[string]any); ok {
				out[k] = merge(defaultMap, storedMap)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Get returns the user's preferences with defaults merged underneath. A user
// who never saved anything gets exactly the default document.
func (s *Store) Get(ctx context.Context, ownerKey string) (Document, error) {
	userDir, err := s.resolver.UserDir(ownerKey)
	if err != nil {
		return nil, err
	}

	stored := Document{}
	if _, err := s.store.Read(s.resolver.PreferencesPath(userDir), &stored); err != nil {
		return nil, err
	}

	return merge(s.Defaults(), stored), nil
}

// Save stamps the document with the current time and persists it atomically.
// Values are not range-validated here; that is the dashboard layer's job.
func (s *Store) Save(ctx context.Context, ownerKey string, doc Document) error {
	userDir, err := s.resolver.UserDir(ownerKey)
	if err != nil {
		return err
	}

	path := s.resolver.PreferencesPath(userDir)
	if !s.resolver.Validate(path) {
		return storage.ErrUnsafePath
	}

	stamped := Document{}
	for k, v := range doc {
		stamped[k] = v
	}
	stamped["last_updated"] = s.now().Format(time.RFC3339)

	if err := s.store.Write(path, stamped); err != nil {
		return err
	}

	s.log.Debug(ctx, "preferences saved", "owner", ownerKey)
	return nil
}
