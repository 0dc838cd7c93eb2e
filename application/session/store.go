// Package session owns the single active authentication session: login,
// signup, biometric unlock, logout, and rehydration of persisted state on
// startup.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"citypulse/application/identity"
	"citypulse/infrastructure/biometric"
	"citypulse/infrastructure/securestore"
	apperrors "citypulse/pkg/errors"
)

// Fixed secure-storage keys owned by the session store.
const (
	keyUser             = "user"
	keyCredentials      = "credentials"
	keyBiometricEnabled = "biometricEnabled"
)

// biometricEnabledSentinel marks the persisted flag; absence means disabled.
const biometricEnabledSentinel = "true"

const unlockPrompt = "Authenticate to access City Pulse"

// ErrAuthInFlight is returned when an auth operation starts while another
// one is still running. Auth operations are serialized, never interleaved,
// so persisted state cannot tear.
var ErrAuthInFlight = apperrors.NewAuthError("another authentication operation is in flight")

// Store holds the current session. Construct one per process with NewStore;
// consumers read state and dispatch operations, never mutate directly.
type Store struct {
	identity identity.Provider
	storage  securestore.Store
	bio      biometric.Authenticator
	logger   *zap.Logger

	mu               sync.RWMutex
	user             *identity.User
	authenticated    bool
	biometricEnabled bool
	loading          bool
	busy             bool
}

// NewStore creates a session store over the given collaborators.
func NewStore(provider identity.Provider, storage securestore.Store, bio biometric.Authenticator, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		identity: provider,
		storage:  storage,
		bio:      bio,
		logger:   logger,
	}
}

// Login checks credentials against the identity provider and, on success,
// persists the session and credential material. Bad credentials yield
// (false, nil); errors are reserved for persistence and serialization
// failures.
func (s *Store) Login(ctx context.Context, email, password string) (bool, error) {
	if err := s.beginAuth("login"); err != nil {
		return false, err
	}
	defer s.endAuth()

	return s.login(ctx, email, password)
}

// Signup registers a new account and establishes its session, with the
// same post-condition as Login. A taken email yields (false, nil).
func (s *Store) Signup(ctx context.Context, email, password, name string) (bool, error) {
	if err := s.beginAuth("signup"); err != nil {
		return false, err
	}
	defer s.endAuth()

	user, err := s.identity.Register(ctx, email, password, name)
	if err != nil {
		if errors.Is(err, identity.ErrAlreadyExists) {
			s.logger.Info("signup rejected, email already registered", zap.String("email", email))
			return false, nil
		}
		return false, err
	}

	if err := s.persistSession(ctx, user, email, password); err != nil {
		return false, err
	}

	s.setAuthenticated(user)
	s.logger.Info("signup succeeded", zap.String("user_id", user.ID))
	return true, nil
}

// LoginWithBiometric replays the stored credentials after a successful
// biometric challenge. It fails when biometric is disabled, the challenge
// fails, or no credentials are stored.
func (s *Store) LoginWithBiometric(ctx context.Context) (bool, error) {
	if !s.BiometricEnabled() {
		return false, nil
	}

	if err := s.beginAuth("biometric login"); err != nil {
		return false, err
	}
	defer s.endAuth()

	ok, err := s.bio.Challenge(ctx, unlockPrompt)
	if err != nil {
		s.logger.Warn("biometric challenge errored", zap.Error(err))
		return false, nil
	}
	if !ok {
		return false, nil
	}

	raw, err := s.storage.Get(ctx, keyCredentials)
	if err != nil {
		if !errors.Is(err, securestore.ErrNotFound) {
			s.logger.Warn("stored credentials unreadable", zap.Error(err))
		}
		return false, nil
	}

	var creds identity.Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		s.logger.Warn("stored credentials corrupt", zap.Error(err))
		return false, nil
	}

	return s.login(ctx, creds.Email, creds.Password)
}

// EnableBiometric requires available, enrolled hardware and a successful
// challenge before persisting the flag.
func (s *Store) EnableBiometric(ctx context.Context) (bool, error) {
	if !s.bio.Available(ctx) {
		return false, nil
	}

	ok, err := s.bio.Challenge(ctx, "Enable biometric authentication")
	if err != nil {
		s.logger.Warn("biometric challenge errored", zap.Error(err))
		return false, nil
	}
	if !ok {
		return false, nil
	}

	if err := s.storage.Set(ctx, keyBiometricEnabled, biometricEnabledSentinel); err != nil {
		return false, err
	}

	s.mu.Lock()
	s.biometricEnabled = true
	s.mu.Unlock()
	return true, nil
}

// DisableBiometric clears the persisted flag unconditionally.
func (s *Store) DisableBiometric(ctx context.Context) error {
	if err := s.storage.Delete(ctx, keyBiometricEnabled); err != nil {
		return err
	}

	s.mu.Lock()
	s.biometricEnabled = false
	s.mu.Unlock()
	return nil
}

// Logout deletes persisted session and credential material and clears all
// in-memory state, including the biometric flag. It holds the auth slot so
// a login settling afterwards cannot resurrect the cleared session.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.beginAuth("logout"); err != nil {
		return err
	}
	defer s.endAuth()

	if err := s.storage.Delete(ctx, keyUser); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, keyCredentials); err != nil {
		return err
	}

	s.mu.Lock()
	s.user = nil
	s.authenticated = false
	s.biometricEnabled = false
	s.mu.Unlock()

	s.logger.Info("session cleared")
	return nil
}

// CheckAuthStatus rehydrates persisted session state on startup. It never
// fails: any storage problem degrades to the unauthenticated state.
func (s *Store) CheckAuthStatus(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	raw, err := s.storage.Get(ctx, keyUser)
	if err != nil {
		if !errors.Is(err, securestore.ErrNotFound) {
			s.logger.Warn("session rehydration failed, treating as unauthenticated", zap.Error(err))
		}
		s.clearState()
		return
	}

	var user identity.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn("persisted session corrupt, treating as unauthenticated", zap.Error(err))
		s.clearState()
		return
	}

	bioFlag, err := s.storage.Get(ctx, keyBiometricEnabled)
	bioEnabled := err == nil && bioFlag == biometricEnabledSentinel

	s.mu.Lock()
	s.user = &user
	s.authenticated = true
	s.biometricEnabled = bioEnabled
	s.mu.Unlock()

	s.logger.Info("session restored", zap.String("user_id", user.ID))
}

// CurrentUser returns the authenticated user, or nil.
func (s *Store) CurrentUser() *identity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// IsAuthenticated reports whether a session is active.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// IsLoading reports whether an auth operation or rehydration is running.
// The route guard defers navigation decisions while this holds.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// BiometricEnabled reports whether biometric unlock is enabled.
func (s *Store) BiometricEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.biometricEnabled
}

// login authenticates and persists a session. Callers must hold the auth
// slot via beginAuth.
func (s *Store) login(ctx context.Context, email, password string) (bool, error) {
	user, err := s.identity.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			s.logger.Info("login rejected", zap.String("email", email))
			return false, nil
		}
		return false, err
	}

	if err := s.persistSession(ctx, user, email, password); err != nil {
		return false, err
	}

	s.setAuthenticated(user)
	s.logger.Info("login succeeded", zap.String("user_id", user.ID))
	return true, nil
}

func (s *Store) persistSession(ctx context.Context, user *identity.User, email, password string) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return err
	}
	credsJSON, err := json.Marshal(identity.Credentials{Email: email, Password: password})
	if err != nil {
		return err
	}

	if err := s.storage.Set(ctx, keyUser, string(userJSON)); err != nil {
		return err
	}
	return s.storage.Set(ctx, keyCredentials, string(credsJSON))
}

func (s *Store) setAuthenticated(user *identity.User) {
	s.mu.Lock()
	s.user = user
	s.authenticated = true
	s.mu.Unlock()
}

func (s *Store) clearState() {
	s.mu.Lock()
	s.user = nil
	s.authenticated = false
	s.biometricEnabled = false
	s.mu.Unlock()
}

func (s *Store) beginAuth(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		s.logger.Warn("auth operation rejected, another is in flight", zap.String("operation", op))
		return ErrAuthInFlight
	}
	s.busy = true
	s.loading = true
	return nil
}

func (s *Store) endAuth() {
	s.mu.Lock()
	s.busy = false
	s.loading = false
	s.mu.Unlock()
}
