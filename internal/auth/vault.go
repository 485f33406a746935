// Package auth manages per-user password digests and login bookkeeping over
// the shared credential index document.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/betjuliano/sefa-dashboard/internal/identity"
	"github.com/betjuliano/sefa-dashboard/internal/logging"
	"github.com/betjuliano/sefa-dashboard/internal/storage"
)

var (
	// ErrInvalidInput covers structurally invalid credentials (empty email
	// or password). Wrong passwords are a boolean outcome, never an error.
	ErrInvalidInput  = errors.New("invalid auth input")
	ErrEmptyEmail    = fmt.Errorf("%w: empty email", ErrInvalidInput)
	ErrEmptyPassword = fmt.Errorf("%w: empty password", ErrInvalidInput)
)

// bcryptCost is fixed; changing it only affects newly stored digests.
const bcryptCost = bcrypt.DefaultCost

// User is one entry of the shared credential index. The map key of the index
// is the identity key, so the email here is kept for display only.
type User struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login"`
}

// UserInfo is a listing view of a registered user, without the digest.
type UserInfo struct {
	Key       string    `json:"user_hash"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login"`
}

// Session is a read-only view of a user's account state.
type Session struct {
	Email     string
	Key       string
	LoggedIn  bool
	CreatedAt time.Time
}

type userIndex struct {
	Users map[string]User `json:"users"`
}

// Vault stores credentials in a single shared index document. All index
// mutations are serialized with an in-process mutex; concurrent processes
// can still race on the document (last rename wins).
type Vault struct {
	resolver *storage.Resolver
	store    *storage.JSONStore
	log      logging.Logger

	mu sync.Mutex

	now func() time.Time // test seam
}

// NewVault constructs a Vault over the given resolver and document store.
func NewVault(resolver *storage.Resolver, store *storage.JSONStore, log logging.Logger) *Vault {
	return &Vault{
		resolver: resolver,
		store:    store,
		log:      log.With("component", "vault"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (v *Vault) readIndex() (*userIndex, error) {
	idx := &userIndex{Users: map[string]User{}}
	if _, err := v.store.Read(v.resolver.UsersIndexPath(), idx); err != nil {
		return nil, err
	}
	if idx.Users == nil {
		idx.Users = map[string]User{}
	}
	return idx, nil
}

func (v *Vault) writeIndex(idx *userIndex) error {
	path := v.resolver.UsersIndexPath()
	if !v.resolver.Validate(path) {
		return storage.ErrUnsafePath
	}
	return v.store.Write(path, idx)
}

func validateInput(email, password string) error {
	if identity.Normalize(email) == "" {
		return ErrEmptyEmail
	}
	if password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// SaveCredentials upserts the user record keyed by the identity key of email,
// storing a salted bcrypt digest of the password. An existing record keeps
// its creation time; last_login is refreshed either way.
func (v *Vault) SaveCredentials(ctx context.Context, email, password string) error {
	if err := validateInput(email, password); err != nil {
		return err
	}

	key, err := identity.Key(email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := v.resolver.UserDir(key); err != nil {
		return err
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("%w: hashing password: %v", storage.ErrStorage, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	idx, err := v.readIndex()
	if err != nil {
		return err
	}

	now := v.now()
	user := User{
		Email:        identity.Normalize(email),
		PasswordHash: string(digest),
		CreatedAt:    now,
		LastLogin:    now,
	}
	if existing, ok := idx.Users[key]; ok {
		user.CreatedAt = existing.CreatedAt
	}
	idx.Users[key] = user

	if err := v.writeIndex(idx); err != nil {
		return err
	}

	v.log.Info(ctx, "credentials saved", "key", key)
	return nil
}

// VerifyCredentials checks the password against the stored digest. Unknown
// users and mismatched passwords both return (false, nil); errors are
// reserved for malformed input and storage failures. A successful match
// refreshes last_login.
func (v *Vault) VerifyCredentials(ctx context.Context, email, password string) (bool, error) {
	if err := validateInput(email, password); err != nil {
		return false, err
	}

	key, err := identity.Key(email)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	idx, err := v.readIndex()
	if err != nil {
		return false, err
	}

	user, ok := idx.Users[key]
	if !ok {
		return false, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		// Mismatch and unparseable digests are both a plain "no".
		return false, nil
	}

	user.LastLogin = v.now()
	idx.Users[key] = user
	if err := v.writeIndex(idx); err != nil {
		return false, err
	}

	v.log.Debug(ctx, "credentials verified", "key", key)
	return true, nil
}

// Session returns the account view for email, or nil if unregistered.
// Purely a read; nothing is mutated.
func (v *Vault) Session(ctx context.Context, email string) (*Session, error) {
	key, err := identity.Key(email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	idx, err := v.readIndex()
	if err != nil {
		return nil, err
	}

	user, ok := idx.Users[key]
	if !ok {
		return nil, nil
	}

	return &Session{
		Email:     user.Email,
		Key:       key,
		LoggedIn:  true,
		CreatedAt: user.CreatedAt,
	}, nil
}

// ListUsers enumerates registered users without their password digests.
func (v *Vault) ListUsers(ctx context.Context) ([]UserInfo, error) {
	idx, err := v.readIndex()
	if err != nil {
		return nil, err
	}

	users := make([]UserInfo, 0, len(idx.Users))
	for key, user := range idx.Users {
		users = append(users, UserInfo{
			Key:       key,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
			LastLogin: user.LastLogin,
		})
	}
	return users, nil
}
