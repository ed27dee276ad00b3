package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/worklist-service/internal/api/dto"
	"github.com/spec-kit/worklist-service/internal/service"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

// AuthHandler exposes the login endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// CrewLogin POST /auth/crew/login.
func (h *AuthHandler) CrewLogin(c *fiber.Ctx) error {
	var req dto.CrewLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.service.LoginCrew(c.UserContext(), req.CrewName, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(session)})
}

// AdminLogin POST /auth/admin/login.
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.service.LoginAdmin(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(session)})
}

func authResponse(s *service.Session) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		ActorID:   s.Actor.ID,
		Role:      string(s.Actor.Role),
	}
}
