package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/worklist-service/internal/auth"
	"github.com/spec-kit/worklist-service/internal/config"
	"github.com/spec-kit/worklist-service/internal/domain"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

// Session is the result of a successful login.
type Session struct {
	Actor     domain.Actor
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates crew and admin login flows.
type AuthService struct {
	credentials *auth.Credentials
	tokenMgr    *auth.TokenManager
	workflow    config.WorkflowConfig
	logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(credentials *auth.Credentials, tokens *auth.TokenManager, workflow config.WorkflowConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		credentials: credentials,
		tokenMgr:    tokens,
		workflow:    workflow,
		logger:      logger,
	}
}

// LoginCrew authenticates a crew member by roster name and the shared crew password.
func (s *AuthService) LoginCrew(_ context.Context, name, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	if _, ok := s.workflow.Member(name); !ok {
		return nil, apperrors.NewValidationError("please select a valid crew member", nil)
	}
	if !s.credentials.CheckCrew(password) {
		s.logger.Info("crew login rejected", zap.String("crew_member", name))
		return nil, apperrors.NewUnauthorized("invalid password")
	}
	return s.issue(domain.Actor{ID: name, Role: domain.RoleCrew})
}

// LoginAdmin authenticates the admin account.
func (s *AuthService) LoginAdmin(_ context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if !s.credentials.CheckAdmin(username, password) {
		s.logger.Info("admin login rejected", zap.String("username", username))
		return nil, apperrors.NewUnauthorized("invalid username or password")
	}
	return s.issue(domain.Actor{ID: username, Role: domain.RoleAdmin})
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(actor domain.Actor) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(actor)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("login succeeded", zap.String("actor", actor.ID), zap.String("role", string(actor.Role)))
	return &Session{Actor: actor, Token: token, ExpiresAt: exp}, nil
}
