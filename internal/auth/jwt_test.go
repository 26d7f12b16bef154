package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	mgr := NewManager(&Config{
		Secret: "test-secret-key-at-least-32-bytes-long",
		Issuer: "watchparty-test",
	})

	token, err := mgr.GenerateToken("user-1", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "watchparty-test", claims.Issuer)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	mgr1 := NewManager(&Config{Secret: "secret-one-0123456789-0123456789"})
	mgr2 := NewManager(&Config{Secret: "secret-two-0123456789-0123456789"})

	token, err := mgr1.GenerateToken("user-1", "alice")
	require.NoError(t, err)

	_, err = mgr2.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	mgr := NewManager(&Config{Secret: "test-secret-key-at-least-32-bytes"})

	_, err := mgr.ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = mgr.ValidateToken("")
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	mgr := NewManager(&Config{
		Secret:      "test-secret-key-at-least-32-bytes",
		TokenExpiry: -time.Hour,
	})

	token, err := mgr.GenerateToken("user-1", "alice")
	require.NoError(t, err)

	_, err = mgr.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDefaultExpiry(t *testing.T) {
	mgr := NewManager(&Config{Secret: "s"})
	assert.Equal(t, 24*time.Hour, mgr.tokenExpiry)
}
