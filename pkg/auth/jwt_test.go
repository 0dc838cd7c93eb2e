package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	m := NewTokenManager("test-secret", "citypulse", time.Hour)

	token, err := m.Issue("user-1", "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "citypulse", claims.Issuer)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issued, err := NewTokenManager("right", "citypulse", time.Hour).Issue("user-1", "u@example.com")
	require.NoError(t, err)

	_, err = NewTokenManager("wrong", "citypulse", time.Hour).Validate(issued)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	issued, err := NewTokenManager("secret", "someone-else", time.Hour).Issue("user-1", "u@example.com")
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "citypulse", time.Hour).Validate(issued)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewTokenManager("secret", "citypulse", -time.Minute)

	issued, err := m.Issue("user-1", "u@example.com")
	require.NoError(t, err)

	_, err = m.Validate(issued)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := NewTokenManager("secret", "citypulse", time.Hour)
	_, err := m.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
