package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/claimdesk/claims-service/internal/api/dto"
	"github.com/claimdesk/claims-service/internal/auth"
	"github.com/claimdesk/claims-service/internal/service"
	apperrors "github.com/claimdesk/claims-service/pkg/errorutil"
)

// AuthHandler exposes registration, login and password flows.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// RegisterClient POST /auth/clients/register.
func (h *AuthHandler) RegisterClient(c *fiber.Ctx) error {
	var req dto.RegisterClientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewInvalidArgument("name, email, password required", nil)
	}
	client, token, exp, err := h.service.RegisterClient(c.Context(), req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		SubjectID: client.ID,
	}})
}

// LoginClient POST /auth/clients/login.
func (h *AuthHandler) LoginClient(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	client, token, exp, err := h.service.LoginClient(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		SubjectID: client.ID,
	}})
}

// LoginAgent POST /auth/agents/login.
func (h *AuthHandler) LoginAgent(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	agent, token, exp, err := h.service.LoginAgent(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		SubjectID: agent.ID,
	}})
}

// RequestPasswordReset POST /auth/password/reset/request. Always
// responds 202 so the endpoint does not reveal which emails exist.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	if _, err := h.service.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return err
	}
	return c.SendStatus(http.StatusAccepted)
}

// ConfirmPasswordReset POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirm
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	if req.Token == "" || req.NewPassword == "" {
		return apperrors.NewInvalidArgument("token and new_password required", nil)
	}
	if err := h.service.ConfirmPasswordReset(c.Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangePassword POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	if req.NewPassword == "" {
		return apperrors.NewInvalidArgument("new_password required", nil)
	}

	subjectID := ""
	if principal.Client != nil {
		subjectID = principal.Client.ID
	} else if principal.Agent != nil {
		subjectID = principal.Agent.ID
	}
	if err := h.service.ChangePassword(c.Context(), principal.SubjectType, subjectID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListClients GET /agent/clients. Supervisor and admin only; the
// router enforces the role.
func (h *AuthHandler) ListClients(c *fiber.Ctx) error {
	limit, offset := parsePageQuery(c)
	clients, err := h.service.ListClients(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.ClientSummary, 0, len(clients))
	for _, client := range clients {
		items = append(items, dto.ClientSummary{
			ID:        client.ID,
			Name:      client.Name,
			Email:     client.Email,
			Phone:     client.Phone,
			Status:    string(client.Status),
			CreatedAt: client.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
