package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/claimdesk/claims-service/internal/api/dto"
	"github.com/claimdesk/claims-service/internal/auth"
	"github.com/claimdesk/claims-service/internal/domain"
	"github.com/claimdesk/claims-service/internal/service"
	apperrors "github.com/claimdesk/claims-service/pkg/errorutil"
)

// AgentClaimsHandler manages agent-facing claim endpoints, including
// the lifecycle operations.
type AgentClaimsHandler struct {
	claims    *service.ClaimService
	lifecycle *service.ClaimLifecycleService
}

// NewAgentClaimsHandler constructs the handler.
func NewAgentClaimsHandler(claims *service.ClaimService, lifecycle *service.ClaimLifecycleService) *AgentClaimsHandler {
	return &AgentClaimsHandler{claims: claims, lifecycle: lifecycle}
}

// ListClaims GET /agent/claims.
func (h *AgentClaimsHandler) ListClaims(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	claims, err := h.claims.ListAgentClaims(c.Context(), principal.Agent, parseClaimQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.ClaimSummary, 0, len(claims))
	for i := range claims {
		items = append(items, claimSummary(&claims[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetClaim GET /agent/claims/:id.
func (h *AgentClaimsHandler) GetClaim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	claim, comments, err := h.claims.GetClaimForAgent(c.Context(), principal.Agent, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimDetail(claim, comments)})
}

// ChangeState POST /agent/claims/:id/state.
func (h *AgentClaimsHandler) ChangeState(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.ChangeStateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	if req.TargetState == "" {
		return apperrors.NewInvalidArgument("target_state required", nil)
	}
	actingID := principal.Agent.ID
	claim, err := h.lifecycle.ChangeState(c.Context(), c.Params("id"), service.ChangeStateRequest{
		TargetState:       req.TargetState,
		Area:              req.Area,
		ResponsibleID:     req.ResponsibleID,
		Note:              req.Note,
		ChangeReason:      req.ChangeReason,
		ResolutionSummary: req.ResolutionSummary,
		ActingUserID:      &actingID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimSummary(claim)})
}

// AssignClaim POST /agent/claims/:id/assign.
func (h *AgentClaimsHandler) AssignClaim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.AssignClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	if req.Area == "" || req.ResponsibleID == "" {
		return apperrors.NewInvalidArgument("area and responsible_agent_id required", nil)
	}
	actingID := principal.Agent.ID
	claim, err := h.lifecycle.AssignAreaAndResponsible(c.Context(), c.Params("id"), req.Area, req.ResponsibleID, &actingID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimSummary(claim)})
}

// GetHistory GET /agent/claims/:id/history.
func (h *AgentClaimsHandler) GetHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if _, _, err := h.claims.GetClaimForAgent(c.Context(), principal.Agent, c.Params("id")); err != nil {
		return err
	}
	entries, err := h.lifecycle.GetHistory(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

// AddComment POST /agent/claims/:id/comments.
func (h *AgentClaimsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	comment, err := h.claims.AddComment(c.Context(), domain.SubjectTypeAgent, principal.Agent.ID, c.Params("id"), req.Body, req.Internal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// Stats GET /agent/claims/stats.
func (h *AgentClaimsHandler) Stats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	stats, err := h.claims.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
