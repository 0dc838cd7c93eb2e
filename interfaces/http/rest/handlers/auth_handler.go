package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"citypulse/application/session"
	"citypulse/interfaces/http/rest/middleware"
	"citypulse/pkg/auth"
	"citypulse/pkg/common"
	"citypulse/pkg/utils"
)

const maxAuthBody = 1 << 16

// AuthHandler exposes the session store over HTTP.
type AuthHandler struct {
	sessions *session.Store
	tokens   *auth.TokenManager
	logger   *zap.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(sessions *session.Store, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

type sessionResponse struct {
	User             *userPayload `json:"user,omitempty"`
	Token            string       `json:"token,omitempty"`
	BiometricEnabled bool         `json:"biometricEnabled"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Login authenticates with email and password and establishes a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := common.ParseJSONBody(r, &req, maxAuthBody); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	ok, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAuthErr(w, err, "login")
		return
	}
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "email or password is incorrect")
		return
	}

	h.respondSession(w, http.StatusOK)
}

// Signup registers a new account and establishes a session.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := common.ParseJSONBody(r, &req, maxAuthBody); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	ok, err := h.sessions.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.respondAuthErr(w, err, "signup")
		return
	}
	if !ok {
		common.RespondError(w, http.StatusConflict, "EMAIL_TAKEN", "an account with this email already exists")
		return
	}

	h.respondSession(w, http.StatusCreated)
}

// BiometricLogin re-establishes a session from stored credentials after a
// successful biometric challenge.
func (h *AuthHandler) BiometricLogin(w http.ResponseWriter, r *http.Request) {
	ok, err := h.sessions.LoginWithBiometric(r.Context())
	if err != nil {
		h.respondAuthErr(w, err, "biometric login")
		return
	}
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "BIOMETRIC_FAILED", "biometric authentication did not succeed")
		return
	}

	h.respondSession(w, http.StatusOK)
}

// EnableBiometric runs a biometric challenge and, on success, opts the
// current session into biometric login.
func (h *AuthHandler) EnableBiometric(w http.ResponseWriter, r *http.Request) {
	ok, err := h.sessions.EnableBiometric(r.Context())
	if err != nil {
		h.respondAuthErr(w, err, "enable biometric")
		return
	}
	if !ok {
		common.RespondError(w, http.StatusUnprocessableEntity, "BIOMETRIC_UNAVAILABLE", "biometric hardware is unavailable or the challenge failed")
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]bool{"biometricEnabled": true})
}

// DisableBiometric opts the current session out of biometric login.
func (h *AuthHandler) DisableBiometric(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.DisableBiometric(r.Context()); err != nil {
		h.respondAuthErr(w, err, "disable biometric")
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]bool{"biometricEnabled": false})
}

// Logout clears the session and expires the auth cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		h.respondAuthErr(w, err, "logout")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	common.RespondJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

// Me reports the current session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := h.sessions.CurrentUser()
	if user == nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "no active session")
		return
	}
	common.RespondJSON(w, http.StatusOK, sessionResponse{
		User:             &userPayload{ID: user.ID, Email: user.Email, Name: user.Name},
		BiometricEnabled: h.sessions.BiometricEnabled(),
	})
}

func (h *AuthHandler) respondSession(w http.ResponseWriter, status int) {
	user := h.sessions.CurrentUser()
	if user == nil {
		common.RespondError(w, http.StatusInternalServerError, "SESSION_LOST", "session was not established")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		common.RespondError(w, http.StatusInternalServerError, "TOKEN_ISSUE_FAILED", "could not issue a session token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.tokens.Expiry()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	common.RespondJSON(w, status, sessionResponse{
		User:             &userPayload{ID: user.ID, Email: user.Email, Name: user.Name},
		Token:            token,
		BiometricEnabled: h.sessions.BiometricEnabled(),
	})
}

func (h *AuthHandler) respondAuthErr(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, session.ErrAuthInFlight) {
		common.RespondError(w, http.StatusConflict, "AUTH_IN_FLIGHT", "another authentication operation is in progress")
		return
	}
	h.logger.Error("auth operation failed", zap.String("operation", op), zap.Error(err))
	common.RespondAppError(w, err)
}
