package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/meditrack/staffcore/internal/api/dto"
	"github.com/meditrack/staffcore/internal/auth"
	"github.com/meditrack/staffcore/internal/domain"
	"github.com/meditrack/staffcore/internal/service"
	apperrors "github.com/meditrack/staffcore/pkg/util"
)

// AuthService is the subset of service.AuthService used by the handler.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Register(ctx context.Context, in service.RegisterInput) (*domain.StaffProfile, error)
	GetProfile(ctx context.Context, id int64) (*domain.StaffProfile, error)
	UpdatePassword(ctx context.Context, id int64, currentPassword, newPassword string) error
	Logout(ctx context.Context, identity domain.Identity) error
}

// AuthHandler exposes staff authentication endpoints.
type AuthHandler struct {
	auth     AuthService
	validate *RequestValidator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService AuthService, validate *RequestValidator) *AuthHandler {
	return &AuthHandler{auth: authService, validate: validate}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := h.validate.Bind(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.Response{
		Success: true,
		Message: "Login successful",
		Data:    dto.NewLoginResponse(session),
	})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := h.validate.Bind(c, &req); err != nil {
		return err
	}

	profile, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.Response{
		Success: true,
		Message: "Staff registered successfully",
		Data:    profile,
	})
}

// Profile handles GET /api/auth/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	profile, err := h.auth.GetProfile(c.UserContext(), identity.ID)
	if err != nil {
		return err
	}
	return c.JSON(dto.Response{Success: true, Data: profile})
}

// UpdatePassword handles PUT /api/auth/password.
func (h *AuthHandler) UpdatePassword(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req dto.UpdatePasswordRequest
	if err := h.validate.Bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.UpdatePassword(c.UserContext(), identity.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(dto.Response{Success: true, Message: "Password updated successfully"})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	if err := h.auth.Logout(c.UserContext(), identity); err != nil {
		return err
	}
	return c.JSON(dto.Response{Success: true, Message: "Logged out successfully"})
}

func requireIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return identity, nil
}
