package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JustynLim/SoC-SMS/internal/fsatomic"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// User mirrors the original USERS table: the password is an argon2id PHC
// string, and the TOTP secret is only stored once the owner has verified a
// code against it.
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	PasswordHash   string `json:"password_hash"`
	IsAdmin        bool   `json:"is_admin"`
	TOTPSecret     string `json:"totp_secret,omitempty"`
	HasVerified2FA bool   `json:"has_verified_2fa"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	LastLoginAt    string `json:"last_login_at,omitempty"`
}

type dbFile struct {
	Version int    `json:"version"`
	Users   []User `json:"users"`
}

// Store is a JSON-file-backed user registry keyed by lowercased email.
type Store struct {
	path  string
	mu    sync.RWMutex
	users map[string]User
}

func New(path string) (*Store, error) {
	s := &Store{path: path, users: map[string]User{}}
	var f dbFile
	ok, err := fsatomic.LoadJSON(path, &f)
	if err != nil || !ok {
		// Missing or unreadable files start empty: a deleted users file
		// returns the deployment to first-run state.
		return s, nil
	}
	for _, u := range f.Users {
		s.users[normalize(u.Email)] = u
	}
	return s, nil
}

// Count returns the number of registered users.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// HasAdmin reports whether any admin account exists.
func (s *Store) HasAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.IsAdmin {
			return true
		}
	}
	return false
}

// OldestAdmin returns the earliest-created admin account, which is the one
// the setup-status check inspects for 2FA verification.
func (s *Store) OldestAdmin() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var admins []User
	for _, u := range s.users {
		if u.IsAdmin {
			admins = append(admins, u)
		}
	}
	if len(admins) == 0 {
		return User{}, false
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].CreatedAt < admins[j].CreatedAt })
	return admins[0], true
}

func (s *Store) FindByEmail(email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[normalize(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// Create inserts a new user; the email must be unused.
func (s *Store) Create(u User) (User, error) {
	s.mu.Lock()
	key := normalize(u.Email)
	if _, exists := s.users[key]; exists {
		s.mu.Unlock()
		return User{}, ErrUserExists
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = key
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[key] = u
	list := s.snapshotLocked()
	s.mu.Unlock()
	return u, s.persist(list)
}

// Update replaces an existing user record.
func (s *Store) Update(u User) error {
	s.mu.Lock()
	key := normalize(u.Email)
	if _, exists := s.users[key]; !exists {
		s.mu.Unlock()
		return ErrUserNotFound
	}
	u.Email = key
	u.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	s.users[key] = u
	list := s.snapshotLocked()
	s.mu.Unlock()
	return s.persist(list)
}

func (s *Store) snapshotLocked() []User {
	list := make([]User, 0, len(s.users))
	for _, u := range s.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt < list[j].CreatedAt })
	return list
}

// persist writes a snapshot without holding the in-memory lock.
func (s *Store) persist(list []User) error {
	return fsatomic.WithLock(s.path, func() error {
		return fsatomic.SaveJSON(context.Background(), s.path, dbFile{Version: 1, Users: list}, 0o600)
	})
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
