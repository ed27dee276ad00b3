package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/worklist-service/internal/auth"
	"github.com/spec-kit/worklist-service/internal/config"
	"github.com/spec-kit/worklist-service/internal/domain"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	creds, err := auth.NewCredentials(config.AuthConfig{
		CrewPassword:  "crew350",
		AdminUsername: "admin",
		AdminPassword: "admin350",
		BcryptCost:    bcrypt.MinCost,
	})
	require.NoError(t, err)
	return NewAuthService(creds, auth.NewTokenManager("test-secret", time.Hour),
		config.WorkflowConfig{Crew: []domain.CrewMember{{Name: "DP"}, {Name: "AL"}}}, nil)
}

func TestLoginCrew(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	session, err := svc.LoginCrew(ctx, " DP ", "crew350")
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: "DP", Role: domain.RoleCrew}, session.Actor)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	claims, err := svc.TokenManager().ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Actor, claims.Actor())

	_, err = svc.LoginCrew(ctx, "DP", "wrong")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = svc.LoginCrew(ctx, "Stranger", "crew350")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestLoginAdmin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	session, err := svc.LoginAdmin(ctx, "admin", "admin350")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, session.Actor.Role)

	for _, tc := range []struct{ user, pass string }{
		{"admin", "crew350"},
		{"root", "admin350"},
		{"", ""},
	} {
		_, err := svc.LoginAdmin(ctx, tc.user, tc.pass)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "user=%q", tc.user)
	}
}
