package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/worklist-service/internal/config"
	"github.com/spec-kit/worklist-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	token, exp, err := tm.GenerateToken(domain.Actor{ID: "DP", Role: domain.RoleCrew})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: "DP", Role: domain.RoleCrew}, claims.Actor())
	assert.NotEmpty(t, claims.ID)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", time.Hour).GenerateToken(domain.Actor{ID: "admin", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken(domain.Actor{ID: "DP", Role: domain.RoleCrew})
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, _, err := tm.GenerateToken(domain.Actor{ID: "DP", Role: "captain"})
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestCredentials(t *testing.T) {
	creds, err := NewCredentials(config.AuthConfig{
		CrewPassword:  "crew350",
		AdminUsername: "admin",
		AdminPassword: "admin350",
		BcryptCost:    bcrypt.MinCost,
	})
	require.NoError(t, err)

	assert.True(t, creds.CheckCrew("crew350"))
	assert.False(t, creds.CheckCrew("admin350"))
	assert.True(t, creds.CheckAdmin("admin", "admin350"))
	assert.False(t, creds.CheckAdmin("Admin", "admin350"))
	assert.False(t, creds.CheckAdmin("admin", "crew350"))
}
