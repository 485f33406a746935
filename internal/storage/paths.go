package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	usersDirName   = "users"
	sharedDirName  = "shared"
	backupsDirName = "backups"

	uploadsDirName     = "uploads"
	uploadFilesDirName = "files"
	prefsDirName       = "preferences"

	usersIndexFile   = "index.json"
	uploadsIndexFile = "index.json"
	prefsFile        = "settings.json"
)

// Resolver derives per-user filesystem paths under a single storage root and
// guards every derived path against directory traversal.
type Resolver struct {
	root string
}

// NewResolver returns a Resolver anchored at root. The root is resolved to an
// absolute path once so later prefix checks are stable regardless of the
// process working directory.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving root %q: %v", ErrStorage, root, err)
	}
	return &Resolver{root: abs}, nil
}

// Root returns the absolute storage root.
func (r *Resolver) Root() string {
	return r.root
}

// EnsureLayout creates the top-level directory structure (users, shared,
// backups). Safe to call repeatedly.
func (r *Resolver) EnsureLayout() error {
	for _, dir := range []string{
		r.root,
		filepath.Join(r.root, usersDirName),
		filepath.Join(r.root, sharedDirName),
		filepath.Join(r.root, backupsDirName),
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", ErrStorage, dir, err)
		}
	}
	return nil
}

// UserDir ensures the per-user subtree (uploads/files and preferences) exists
// and returns its path. Fails with ErrInvalidIdentity for an empty key.
func (r *Resolver) UserDir(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidIdentity
	}

	dir := filepath.Join(r.root, usersDirName, key)

	for _, sub := range []string{
		dir,
		filepath.Join(dir, uploadsDirName),
		filepath.Join(dir, uploadsDirName, uploadFilesDirName),
		filepath.Join(dir, prefsDirName),
	} {
		if err := os.MkdirAll(sub, 0o750); err != nil {
			return "", fmt.Errorf("%w: mkdir %s: %v", ErrStorage, sub, err)
		}
	}

	return dir, nil
}

// UsersIndexPath returns the path of the shared credential index document.
func (r *Resolver) UsersIndexPath() string {
	return filepath.Join(r.root, usersDirName, usersIndexFile)
}

// UploadsIndexPath returns the per-user upload index document path.
func (r *Resolver) UploadsIndexPath(userDir string) string {
	return filepath.Join(userDir, uploadsDirName, uploadsIndexFile)
}

// UploadFilePath returns the path for a stored upload file inside userDir.
func (r *Resolver) UploadFilePath(userDir, filename string) string {
	return filepath.Join(userDir, uploadsDirName, uploadFilesDirName, filename)
}

// UploadRelPath returns the root-relative location recorded in the index for
// a stored upload file (relative to the user directory).
func (r *Resolver) UploadRelPath(filename string) string {
	return filepath.Join(uploadsDirName, uploadFilesDirName, filename)
}

// PreferencesPath returns the per-user preference document path.
func (r *Resolver) PreferencesPath(userDir string) string {
	return filepath.Join(userDir, prefsDirName, prefsFile)
}

// SharedConfigPath returns the process-wide config document path.
func (r *Resolver) SharedConfigPath() string {
	return filepath.Join(r.root, sharedDirName, "system_config.json")
}

// Validate reports whether path stays inside the storage root once resolved
// to an absolute path. It never returns an error: any failure to resolve
// counts as unsafe. This is the sole defense against traversal from
// malicious filenames, so every derived file write must pass through it.
func (r *Resolver) Validate(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
