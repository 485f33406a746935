// Package uploads manages archived per-user datasets: the stored CSV files
// and the per-user index document describing them. Index history is bounded;
// once the retention cap is exceeded the oldest records are evicted.
package uploads

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/betjuliano/sefa-dashboard/internal/logging"
	"github.com/betjuliano/sefa-dashboard/internal/storage"
	"github.com/betjuliano/sefa-dashboard/internal/tabular"
)

// RetentionLimit is the maximum number of upload records kept per user.
const RetentionLimit = 50

// defaultExt is assumed when the original filename carries no extension.
const defaultExt = ".csv"

// Record describes one archived dataset. Immutable once created, except for
// removal.
type Record struct {
	ID               string    `json:"id"`
	StoredFilename   string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	UploadedAt       time.Time `json:"upload_date"`
	Rows             int       `json:"n_rows"`
	Columns          int       `json:"n_cols"`
	FilePath         string    `json:"file_path"` // relative to the user directory
	OwnerKey         string    `json:"user_hash"`
}

type index struct {
	Uploads []Record `json:"uploads"`
}

// Archive owns the uploads subtree of every user directory.
type Archive struct {
	resolver *storage.Resolver
	store    *storage.JSONStore
	log      logging.Logger

	now   func() time.Time // test seam
	newID func() string    // test seam
}

// NewArchive constructs an Archive over the given resolver and document store.
func NewArchive(resolver *storage.Resolver, store *storage.JSONStore, log logging.Logger) *Archive {
	return &Archive{
		resolver: resolver,
		store:    store,
		log:      log.With("component", "uploads"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
	}
}

// storedFilename builds a collision-resistant name from the upload timestamp
// and a sanitized version of the original name. A stem with no characters
// left after sanitizing falls back to "upload"; a missing extension defaults
// to CSV.
func storedFilename(original string, ts time.Time) string {
	ext := filepath.Ext(original)
	stem := strings.TrimSuffix(filepath.Base(original), ext)
	if ext == "" {
		ext = defaultExt
	}

	var clean strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			clean.WriteRune(r)
		}
	}
	name := clean.String()
	if name == "" {
		name = "upload"
	}

	return fmt.Sprintf("%s_%s%s", ts.Format("2006-01-02_150405"), name, ext)
}

func (a *Archive) readIndex(userDir string) (*index, error) {
	idx := &index{}
	if _, err := a.store.Read(a.resolver.UploadsIndexPath(userDir), idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (a *Archive) writeIndex(userDir string, idx *index) error {
	path := a.resolver.UploadsIndexPath(userDir)
	if !a.resolver.Validate(path) {
		return storage.ErrUnsafePath
	}
	return a.store.Write(path, idx)
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UploadedAt.After(records[j].UploadedAt)
	})
}

// Save persists the dataset under a fresh stored filename and appends its
// record to the owner's index. The index write is the operation of record: if
// it fails after the data file was written, the orphaned file is tolerated
// but the index is never left corrupted. Inserting past the retention cap
// evicts the oldest records before persisting.
func (a *Archive) Save(ctx context.Context, ownerKey string, data *tabular.Dataset, originalName string) (*Record, error) {
	userDir, err := a.resolver.UserDir(ownerKey)
	if err != nil {
		return nil, err
	}

	ts := a.now()
	filename := storedFilename(originalName, ts)
	path := a.resolver.UploadFilePath(userDir, filename)

	if !a.resolver.Validate(path) {
		return nil, storage.ErrUnsafePath
	}

	if err := data.WriteFile(path); err != nil {
		return nil, fmt.Errorf("%w: writing dataset %s: %v", storage.ErrStorage, filename, err)
	}

	record := Record{
		ID:               a.newID(),
		StoredFilename:   filename,
		OriginalFilename: originalName,
		UploadedAt:       ts,
		Rows:             data.RowCount(),
		Columns:          data.ColumnCount(),
		FilePath:         a.resolver.UploadRelPath(filename),
		OwnerKey:         ownerKey,
	}

	idx, err := a.readIndex(userDir)
	if err != nil {
		return nil, err
	}

	idx.Uploads = append(idx.Uploads, record)
	if len(idx.Uploads) > RetentionLimit {
		sortNewestFirst(idx.Uploads)
		idx.Uploads = idx.Uploads[:RetentionLimit]
	}

	if err := a.writeIndex(userDir, idx); err != nil {
		return nil, err
	}

	a.log.Info(ctx, "upload archived",
		"owner", ownerKey, "file", filename, "rows", record.Rows, "cols", record.Columns)
	return &record, nil
}

// List returns the owner's upload records, newest first. A user with no
// uploads (or no index yet) gets an empty slice, not an error.
func (a *Archive) List(ctx context.Context, ownerKey string) ([]Record, error) {
	userDir, err := a.resolver.UserDir(ownerKey)
	if err != nil {
		return nil, err
	}

	idx, err := a.readIndex(userDir)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(idx.Uploads))
	copy(records, idx.Uploads)
	sortNewestFirst(records)
	return records, nil
}

// Load reads back the dataset of the given upload. Returns (nil, nil) when
// the id is unknown or the backing file has gone missing; the latter means
// external tampering and degrades gracefully instead of failing.
func (a *Archive) Load(ctx context.Context, ownerKey, id string) (*tabular.Dataset, error) {
	userDir, err := a.resolver.UserDir(ownerKey)
	if err != nil {
		return nil, err
	}

	idx, err := a.readIndex(userDir)
	if err != nil {
		return nil, err
	}

	var target *Record
	for i := range idx.Uploads {
		if idx.Uploads[i].ID == id {
			target = &idx.Uploads[i]
			break
		}
	}
	if target == nil {
		return nil, nil
	}

	path := filepath.Join(userDir, target.FilePath)
	if !a.resolver.Validate(path) {
		return nil, storage.ErrUnsafePath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			a.log.Warn(ctx, "upload file missing on disk", "owner", ownerKey, "id", id, "path", target.FilePath)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: stat %s: %v", storage.ErrStorage, path, err)
	}

	ds, err := tabular.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading dataset %s: %v", storage.ErrStorage, target.StoredFilename, err)
	}
	return ds, nil
}

// Latest returns the most recent upload record, or nil without uploads.
func (a *Archive) Latest(ctx context.Context, ownerKey string) (*Record, error) {
	records, err := a.List(ctx, ownerKey)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Delete removes the record from the index and best-effort removes its
// backing file. Returns false for an unknown id; deleting twice is not an
// error.
func (a *Archive) Delete(ctx context.Context, ownerKey, id string) (bool, error) {
	userDir, err := a.resolver.UserDir(ownerKey)
	if err != nil {
		return false, err
	}

	idx, err := a.readIndex(userDir)
	if err != nil {
		return false, err
	}

	var target *Record
	kept := idx.Uploads[:0]
	for i := range idx.Uploads {
		if idx.Uploads[i].ID == id {
			record := idx.Uploads[i]
			target = &record
		} else {
			kept = append(kept, idx.Uploads[i])
		}
	}
	if target == nil {
		return false, nil
	}

	idx.Uploads = kept
	if err := a.writeIndex(userDir, idx); err != nil {
		return false, err
	}

	path := filepath.Join(userDir, target.FilePath)
	if a.resolver.Validate(path) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			a.log.Warn(ctx, "could not remove upload file", "owner", ownerKey, "id", id, "error", err)
		}
	}

	a.log.Info(ctx, "upload deleted", "owner", ownerKey, "id", id)
	return true, nil
}
