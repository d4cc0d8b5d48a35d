package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(t *testing.T, ttl time.Duration) Authenticator {
	t.Helper()
	a, err := New(&Config{Secret: "test-secret", TokenTTL: ttl})
	require.NoError(t, err)
	return a
}

// TestNewValidation 测试构造参数校验
func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrConfigNil)

	_, err = New(&Config{})
	assert.ErrorIs(t, err, ErrSecretEmpty)
}

// TestGenerateAndValidate 测试签发与校验往返
func TestGenerateAndValidate(t *testing.T) {
	a := newTestAuthenticator(t, time.Hour)

	token, err := a.GenerateToken("u1", "ada@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "cartmesh", claims.Issuer)
}

// TestValidateGarbage 测试非法令牌
func TestValidateGarbage(t *testing.T) {
	a := newTestAuthenticator(t, time.Hour)

	_, err := a.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestValidateWrongSecret 测试密钥不匹配
func TestValidateWrongSecret(t *testing.T) {
	a := newTestAuthenticator(t, time.Hour)
	token, err := a.GenerateToken("u1", "ada@example.com")
	require.NoError(t, err)

	other, err := New(&Config{Secret: "other-secret"})
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestValidateExpired 测试过期令牌
func TestValidateExpired(t *testing.T) {
	a := newTestAuthenticator(t, time.Millisecond)
	token, err := a.GenerateToken("u1", "ada@example.com")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = a.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
