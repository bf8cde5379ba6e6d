// Package app holds the application services and business logic.
package app

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"cura/internal/domain"
	"cura/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// AccountDirectory is the local user registry.
type AccountDirectory struct {
	mu    sync.Mutex
	store *store.Store
	log   *slog.Logger
	users []domain.User
}

// NewAccountDirectory loads the persisted user directory from st.
func NewAccountDirectory(ctx context.Context, st *store.Store, logger *slog.Logger) *AccountDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountDirectory{
		store: st,
		log:   logger,
		users: store.Get(ctx, st, domain.KeyUsers, []domain.User{}),
	}
}

// Register creates a new account. Usernames are matched exactly.
func (d *AccountDirectory) Register(ctx context.Context, username, password string) (domain.User, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return domain.User{}, domain.ErrMissingCredentials
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.indexOf(username) >= 0 {
		return domain.User{}, domain.ErrDuplicateUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{Username: username, PasswordHash: string(hash)}
	d.save(ctx, append(slices.Clone(d.users), u))
	return u, nil
}

// Login verifies the credentials of an existing account.
func (d *AccountDirectory) Login(ctx context.Context, username, password string) (domain.User, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return domain.User{}, domain.ErrMissingCredentials
	}

	d.mu.Lock()
	idx := d.indexOf(username)
	var u domain.User
	if idx >= 0 {
		u = d.users[idx]
	}
	d.mu.Unlock()

	if idx < 0 || u.PasswordHash == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return u, nil
}

// Provision returns the account for username, creating a password-less one
// if it does not exist yet (e.g. after single sign-on).
func (d *AccountDirectory) Provision(ctx context.Context, username string) (domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return domain.User{}, domain.ErrMissingCredentials
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if idx := d.indexOf(username); idx >= 0 {
		return d.users[idx], nil
	}
	u := domain.User{Username: username}
	d.save(ctx, append(slices.Clone(d.users), u))
	d.log.Info("accounts: provisioned user", "username", username)
	return u, nil
}

// Exists reports whether username is registered.
func (d *AccountDirectory) Exists(username string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indexOf(username) >= 0
}

// Delete removes the account. Deleting an unknown account is a no-op.
func (d *AccountDirectory) Delete(ctx context.Context, username string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.indexOf(username)
	if idx < 0 {
		return
	}
	d.save(ctx, slices.Delete(slices.Clone(d.users), idx, idx+1))
}

func (d *AccountDirectory) indexOf(username string) int {
	return slices.IndexFunc(d.users, func(u domain.User) bool { return u.Username == username })
}

func (d *AccountDirectory) save(ctx context.Context, users []domain.User) {
	d.users = users
	store.Set(ctx, d.store, domain.KeyUsers, users)
}
