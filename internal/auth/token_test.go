package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("secret", 30)

	token, exp, err := tm.GenerateToken(42, domain.RoleTechnician)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, domain.RoleTechnician, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestParseTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	issuer := NewTokenManager("secret", 1)
	token, _, err := issuer.GenerateToken(1, domain.RoleUser)
	require.NoError(t, err)

	_, err = NewTokenManager("other", 1).ParseToken(token)
	assert.Error(t, err)

	later := NewTokenManager("secret", 1)
	later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = later.ParseToken(token)
	assert.Error(t, err)
}

func TestMemoryDenylist(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()

	require.NoError(t, d.Revoke(ctx, "abc", time.Now().Add(time.Minute)))
	revoked, err := d.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "old", time.Now().Add(-time.Minute)))
	revoked, err = d.IsRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, revoked, "already expired tokens need no entry")
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("admin123", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "admin123"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

func TestHashPasswordClampsCost(t *testing.T) {
	hash, err := HashPassword("admin123", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)

	CompareDecoy("anything")
}
