// Package identity abstracts the user directory behind the session store.
// The mock directory is one implementation; a real identity backend can
// replace it without touching session logic.
package identity

import (
	"context"
	"errors"
)

// User is the authenticated identity of a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Credentials is the credential material persisted for biometric replay.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ErrInvalidCredentials is returned by Authenticate when the email/password
// pair matches no account.
var ErrInvalidCredentials = errors.New("identity: invalid credentials")

// ErrAlreadyExists is returned by Register when the email already has an
// account.
var ErrAlreadyExists = errors.New("identity: account already exists")

// Provider is the pluggable user directory.
type Provider interface {
	// Authenticate checks an email/password pair and returns the matching
	// user, or ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*User, error)

	// Register creates a new account and returns its user, or
	// ErrAlreadyExists when the email is taken.
	Register(ctx context.Context, email, password, name string) (*User, error)
}
