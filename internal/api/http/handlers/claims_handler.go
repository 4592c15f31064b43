package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/claimdesk/claims-service/internal/api/dto"
	"github.com/claimdesk/claims-service/internal/auth"
	"github.com/claimdesk/claims-service/internal/domain"
	"github.com/claimdesk/claims-service/internal/repository"
	"github.com/claimdesk/claims-service/internal/service"
	apperrors "github.com/claimdesk/claims-service/pkg/errorutil"
)

// ClaimsHandler manages client-facing claim endpoints.
type ClaimsHandler struct {
	claims    *service.ClaimService
	lifecycle *service.ClaimLifecycleService
}

// NewClaimsHandler constructs the handler.
func NewClaimsHandler(claims *service.ClaimService, lifecycle *service.ClaimLifecycleService) *ClaimsHandler {
	return &ClaimsHandler{claims: claims, lifecycle: lifecycle}
}

// CreateClaim POST /claims.
func (h *ClaimsHandler) CreateClaim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Client == nil {
		return apperrors.NewUnauthorized("client required")
	}
	var req dto.CreateClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		return apperrors.NewInvalidArgument("title and description required", nil)
	}

	claim, err := h.claims.CreateClaim(c.Context(), principal.Client.ID, service.ClaimCreateInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Area:        req.Area,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": claimSummary(claim)})
}

// ListClaims GET /claims.
func (h *ClaimsHandler) ListClaims(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Client == nil {
		return apperrors.NewUnauthorized("client required")
	}
	claims, err := h.claims.ListClientClaims(c.Context(), principal.Client.ID, parseClaimQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.ClaimSummary, 0, len(claims))
	for i := range claims {
		items = append(items, claimSummary(&claims[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetClaim GET /claims/:id.
func (h *ClaimsHandler) GetClaim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Client == nil {
		return apperrors.NewUnauthorized("client required")
	}
	claim, comments, err := h.claims.GetClaimForClient(c.Context(), principal.Client.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimDetail(claim, comments)})
}

// UpdateClaim PATCH /claims/:id.
func (h *ClaimsHandler) UpdateClaim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Client == nil {
		return apperrors.NewUnauthorized("client required")
	}
	var req dto.UpdateClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	claim, err := h.claims.UpdateClaim(c.Context(), principal.Client.ID, c.Params("id"), service.ClaimUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": claimSummary(claim)})
}

// DeleteClaim DELETE /claims/:id.
func (h *ClaimsHandler) DeleteClaim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Client == nil {
		return apperrors.NewUnauthorized("client required")
	}
	if err := h.claims.DeleteClaim(c.Context(), principal.Client.ID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddComment POST /claims/:id/comments.
func (h *ClaimsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Client == nil {
		return apperrors.NewUnauthorized("client required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	comment, err := h.claims.AddComment(c.Context(), domain.SubjectTypeClient, principal.Client.ID, c.Params("id"), req.Body, false)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// GetHistory GET /claims/:id/history.
func (h *ClaimsHandler) GetHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Client == nil {
		return apperrors.NewUnauthorized("client required")
	}
	// Ownership check happens through the claim fetch.
	claim, _, err := h.claims.GetClaimForClient(c.Context(), principal.Client.ID, c.Params("id"))
	if err != nil {
		return err
	}
	entries, err := h.lifecycle.GetHistory(c.Context(), claim.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

// DescribeStates GET /claims/states.
func (h *ClaimsHandler) DescribeStates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.lifecycle.DescribeAllStates()})
}

func parseClaimQuery(c *fiber.Ctx) repository.ClaimFilter {
	filter := repository.ClaimFilter{}
	if raw := c.Query("states"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			filter.States = append(filter.States, domain.ClaimState(strings.TrimSpace(part)))
		}
	}
	if raw := c.Query("area"); raw != "" {
		area := domain.ClaimArea(raw)
		filter.Area = &area
	}
	if raw := c.Query("project_id"); raw != "" {
		filter.ProjectID = &raw
	}
	if raw := c.Query("search"); raw != "" {
		filter.SearchTerm = &raw
	}
	if raw := c.Query("created_from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.CreatedFrom = &ts
		}
	}
	if raw := c.Query("created_to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.CreatedTo = &ts
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Limit = n
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Offset = n
		}
	}
	return filter
}

func claimSummary(claim *domain.Claim) dto.ClaimSummary {
	return dto.ClaimSummary{
		ID:            claim.ID,
		ExternalKey:   claim.ExternalKey,
		ClientID:      claim.ClientID,
		ProjectID:     claim.ProjectID,
		Title:         claim.Title,
		State:         claim.State,
		Area:          claim.Area,
		ResponsibleID: claim.ResponsibleID,
		CanModify:     claim.CanModify,
		CanReassign:   claim.CanReassign,
		CreatedAt:     claim.CreatedAt,
		UpdatedAt:     claim.UpdatedAt,
	}
}

func claimDetail(claim *domain.Claim, comments []domain.ClaimComment) dto.ClaimDetailResponse {
	resp := dto.ClaimDetailResponse{
		ClaimSummary:      claimSummary(claim),
		Description:       claim.Description,
		ResolutionSummary: claim.ResolutionSummary,
		ResolvedAt:        claim.ResolvedAt,
		ClosedAt:          claim.ClosedAt,
		Comments:          make([]dto.CommentResponse, 0, len(comments)),
	}
	for i := range comments {
		resp.Comments = append(resp.Comments, commentResponse(&comments[i]))
	}
	return resp
}

func commentResponse(comment *domain.ClaimComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		AuthorType: comment.AuthorType,
		AuthorID:   comment.AuthorID,
		Body:       comment.Body,
		Internal:   comment.Internal,
		CreatedAt:  comment.CreatedAt,
	}
}

func historyResponses(entries []domain.ClaimHistory) []dto.HistoryEntryResponse {
	out := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.HistoryEntryResponse{
			ID:                    entry.ID,
			Kind:                  entry.Kind,
			PreviousState:         entry.PreviousState,
			NewState:              entry.NewState,
			PreviousArea:          entry.PreviousArea,
			NewArea:               entry.NewArea,
			PreviousResponsibleID: entry.PreviousResponsibleID,
			NewResponsibleID:      entry.NewResponsibleID,
			AreaAtChange:          entry.AreaAtChange,
			ActingUserID:          entry.ActingUserID,
			Note:                  entry.Note,
			ChangeReason:          entry.ChangeReason,
			Timestamp:             entry.CreatedAt,
		})
	}
	return out
}
