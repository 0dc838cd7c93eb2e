package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// seededUsers are the accounts every fresh directory starts with.
var seededUsers = []struct {
	id       string
	email    string
	password string
	name     string
}{
	{"1", "user@example.com", "password123", "John Doe"},
	{"2", "admin@example.com", "admin123", "Admin User"},
}

type account struct {
	user User
	hash []byte
}

// MockDirectory is an in-memory Provider with bcrypt-hashed passwords.
// It ships pre-seeded demo accounts and accepts registrations for the
// lifetime of the process.
type MockDirectory struct {
	mu       sync.RWMutex
	accounts map[string]*account
}

// NewMockDirectory creates a directory holding the seeded demo accounts.
func NewMockDirectory() *MockDirectory {
	d := &MockDirectory{accounts: make(map[string]*account)}
	for _, s := range seededUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			// bcrypt only fails on oversized input; the seeds are fixed.
			panic(err)
		}
		d.accounts[normalizeEmail(s.email)] = &account{
			user: User{ID: s.id, Email: s.email, Name: s.name},
			hash: hash,
		}
	}
	return d
}

// Authenticate implements Provider.
func (d *MockDirectory) Authenticate(ctx context.Context, email, password string) (*User, error) {
	d.mu.RLock()
	acc, ok := d.accounts[normalizeEmail(email)]
	d.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user := acc.user
	return &user, nil
}

// Register implements Provider.
func (d *MockDirectory) Register(ctx context.Context, email, password, name string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := normalizeEmail(email)
	if _, ok := d.accounts[key]; ok {
		return nil, ErrAlreadyExists
	}

	user := User{ID: uuid.New().String(), Email: email, Name: name}
	d.accounts[key] = &account{user: user, hash: hash}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
