package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claimdesk/claims-service/internal/domain"
	"github.com/claimdesk/claims-service/internal/events"
	"github.com/claimdesk/claims-service/internal/lifecycle"
	"github.com/claimdesk/claims-service/internal/persistence"
	"github.com/claimdesk/claims-service/internal/repository"
	apperrors "github.com/claimdesk/claims-service/pkg/errorutil"
)

// ClaimService handles claim CRUD, comments and reporting. State is
// never touched here; anything that moves a claim through its
// lifecycle belongs to ClaimLifecycleService.
type ClaimService struct {
	claims     repository.ClaimRepository
	comments   repository.ClaimCommentRepository
	projects   repository.ProjectRepository
	clients    repository.ClientRepository
	dispatcher events.Dispatcher
	cache      *persistence.ClaimCache
}

// ClaimDependencies bundles repositories for the claim service.
type ClaimDependencies struct {
	ClaimRepo   repository.ClaimRepository
	CommentRepo repository.ClaimCommentRepository
	ProjectRepo repository.ProjectRepository
	ClientRepo  repository.ClientRepository
	Dispatcher  events.Dispatcher
	Cache       *persistence.ClaimCache
}

// ClaimCreateInput describes claim creation payload.
type ClaimCreateInput struct {
	ProjectID   *string
	Title       string
	Description string
	Area        *domain.ClaimArea
}

// ClaimUpdateInput describes editable claim fields. Nil fields are
// left untouched.
type ClaimUpdateInput struct {
	Title       *string
	Description *string
	ProjectID   *string
}

// ClaimStats aggregates counts for the reporting endpoint.
type ClaimStats struct {
	ByState map[domain.ClaimState]int64 `json:"by_state"`
	ByArea  map[domain.ClaimArea]int64  `json:"by_area"`
}

// NewClaimService constructs the service.
func NewClaimService(deps ClaimDependencies) *ClaimService {
	return &ClaimService{
		claims:     deps.ClaimRepo,
		comments:   deps.CommentRepo,
		projects:   deps.ProjectRepo,
		clients:    deps.ClientRepo,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
	}
}

// CreateClaim registers a new claim for a client. Claims always start
// in PENDIENTE with the flags that state derives.
func (s *ClaimService) CreateClaim(ctx context.Context, clientID string, input ClaimCreateInput) (*domain.Claim, error) {
	if input.ProjectID != nil {
		project, err := s.projects.GetByID(ctx, *input.ProjectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("project", map[string]any{"project_id": *input.ProjectID})
			}
			return nil, apperrors.MapError(err)
		}
		if !project.Active {
			return nil, apperrors.NewConflict("project inactive", map[string]any{"project_id": project.ID})
		}
		if project.ClientID != clientID {
			return nil, apperrors.NewForbidden("project belongs to another client")
		}
	}
	if input.Area != nil && !domain.ValidArea(*input.Area) {
		return nil, apperrors.NewInvalidArgument("unknown area: "+string(*input.Area), nil)
	}

	initial, err := lifecycle.Get(domain.ClaimStatePendiente)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	claim := &domain.Claim{
		ExternalKey: generateClaimKey(),
		ClientID:    clientID,
		ProjectID:   input.ProjectID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		State:       domain.ClaimStatePendiente,
		Area:        input.Area,
		CanModify:   initial.CanModify(),
		CanReassign: initial.CanReassign(),
		Active:      true,
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventClaimCreated,
		ClaimID: claim.ID,
		Actor:   clientActor(clientID),
		Payload: events.ClaimCreatedPayload{
			ClientID:  claim.ClientID,
			ProjectID: claim.ProjectID,
			Area:      claim.Area,
			Title:     claim.Title,
		},
	})
	return claim, nil
}

// GetClaim fetches one claim, serving from the cache when possible.
// Soft-deleted claims read as absent no matter which source answers.
func (s *ClaimService) GetClaim(ctx context.Context, claimID string) (*domain.Claim, error) {
	if cached, err := s.cache.Get(ctx, claimID); err == nil {
		if !cached.Active {
			return nil, apperrors.NewNotFound("claim", map[string]any{"claim_id": claimID})
		}
		return cached, nil
	}
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("claim", map[string]any{"claim_id": claimID})
		}
		return nil, apperrors.MapError(err)
	}
	if !claim.Active {
		return nil, apperrors.NewNotFound("claim", map[string]any{"claim_id": claimID})
	}
	_ = s.cache.Set(ctx, claim)
	return claim, nil
}

// GetClaimForClient fetches a claim ensuring ownership.
func (s *ClaimService) GetClaimForClient(ctx context.Context, clientID, claimID string) (*domain.Claim, []domain.ClaimComment, error) {
	claim, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return nil, nil, err
	}
	if claim.ClientID != clientID {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	comments, err := s.visibleCommentsForClient(ctx, claim.ID)
	if err != nil {
		return nil, nil, err
	}
	return claim, comments, nil
}

// GetClaimForAgent fetches a claim ensuring the agent's area scope.
func (s *ClaimService) GetClaimForAgent(ctx context.Context, agent *domain.Agent, claimID string) (*domain.Claim, []domain.ClaimComment, error) {
	if agent == nil {
		return nil, nil, apperrors.NewUnauthorized("agent required")
	}
	claim, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return nil, nil, err
	}
	if !agentCanAccessClaim(agent, claim) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	comments, err := s.comments.ListByClaim(ctx, claim.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return claim, comments, nil
}

// ListClientClaims returns a client's claims.
func (s *ClaimService) ListClientClaims(ctx context.Context, clientID string, filter repository.ClaimFilter) ([]domain.Claim, error) {
	filter.ClientID = &clientID
	claims, err := s.claims.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return claims, nil
}

// ListAgentClaims returns claims visible to an agent. Non-admin agents
// only see their own area.
func (s *ClaimService) ListAgentClaims(ctx context.Context, agent *domain.Agent, filter repository.ClaimFilter) ([]domain.Claim, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if agent.Role != domain.AgentRoleAdmin && agent.Area != nil {
		filter.Area = agent.Area
	}
	claims, err := s.claims.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return claims, nil
}

// UpdateClaim edits claim fields. The edit is gated by the claim's
// denormalized modify flag; the state and its derived flags are not
// reachable from here.
func (s *ClaimService) UpdateClaim(ctx context.Context, clientID, claimID string, input ClaimUpdateInput) (*domain.Claim, error) {
	claim, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.ClientID != clientID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if !claim.CanModify {
		return nil, apperrors.NewForbidden("claim cannot be modified in state " + string(claim.State))
	}
	if input.Title != nil {
		claim.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		claim.Description = strings.TrimSpace(*input.Description)
	}
	if input.ProjectID != nil {
		project, err := s.projects.GetByID(ctx, *input.ProjectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("project", map[string]any{"project_id": *input.ProjectID})
			}
			return nil, apperrors.MapError(err)
		}
		if project.ClientID != clientID {
			return nil, apperrors.NewForbidden("project belongs to another client")
		}
		claim.ProjectID = input.ProjectID
	}
	if err := s.claims.Update(ctx, claim); err != nil {
		return nil, apperrors.MapError(err)
	}
	_ = s.cache.Invalidate(ctx, claim.ID)
	return claim, nil
}

// DeleteClaim soft-deletes a claim, gated by the modify flag.
func (s *ClaimService) DeleteClaim(ctx context.Context, clientID, claimID string) error {
	claim, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.ClientID != clientID {
		return apperrors.NewForbidden("access denied")
	}
	if !claim.CanModify {
		return apperrors.NewForbidden("claim cannot be modified in state " + string(claim.State))
	}
	claim.Active = false
	if err := s.claims.Update(ctx, claim); err != nil {
		return apperrors.MapError(err)
	}
	return s.cache.Invalidate(ctx, claim.ID)
}

// AddComment appends a comment to a claim's thread.
func (s *ClaimService) AddComment(ctx context.Context, author domain.SubjectType, authorID string, claimID, body string, internal bool) (*domain.ClaimComment, error) {
	claim, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewInvalidArgument("comment body required", nil)
	}

	comment := &domain.ClaimComment{
		ClaimID:  claim.ID,
		Body:     body,
		Internal: internal,
	}
	switch author {
	case domain.SubjectTypeClient:
		if claim.ClientID != authorID {
			return nil, apperrors.NewForbidden("access denied")
		}
		if internal {
			return nil, apperrors.NewForbidden("clients cannot post internal notes")
		}
		comment.AuthorType = domain.AuthorTypeClient
		id := authorID
		comment.AuthorID = &id
	case domain.SubjectTypeAgent:
		comment.AuthorType = domain.AuthorTypeAgent
		id := authorID
		comment.AuthorID = &id
	default:
		return nil, apperrors.NewInvalidArgument("unknown author", nil)
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventClaimCommentAdded,
		ClaimID: claim.ID,
		Actor:   actorFromSubject(author, authorID),
		Payload: events.ClaimCommentAddedPayload{
			CommentID:   comment.ID,
			AuthorType:  comment.AuthorType,
			AuthorID:    comment.AuthorID,
			BodyPreview: stringPreview(comment.Body, 120),
		},
	})
	return comment, nil
}

// Stats aggregates active claims per state and per area.
func (s *ClaimService) Stats(ctx context.Context) (*ClaimStats, error) {
	byState, err := s.claims.CountByState(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byArea, err := s.claims.CountByArea(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &ClaimStats{ByState: byState, ByArea: byArea}, nil
}

func (s *ClaimService) visibleCommentsForClient(ctx context.Context, claimID string) ([]domain.ClaimComment, error) {
	comments, err := s.comments.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	filtered := make([]domain.ClaimComment, 0, len(comments))
	for _, comment := range comments {
		if comment.Internal {
			continue
		}
		filtered = append(filtered, comment)
	}
	return filtered, nil
}

func agentCanAccessClaim(agent *domain.Agent, claim *domain.Claim) bool {
	if agent == nil {
		return false
	}
	if agent.Role == domain.AgentRoleAdmin || agent.Role == domain.AgentRoleSupervisor {
		return true
	}
	if agent.Area != nil && claim.Area != nil && *agent.Area == *claim.Area {
		return true
	}
	if agent.Area == nil && claim.Area == nil {
		return true
	}
	return false
}

func (s *ClaimService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func clientActor(clientID string) events.Actor {
	return events.Actor{
		Type:     domain.SubjectTypeClient,
		ClientID: &clientID,
	}
}

func actorFromSubject(subject domain.SubjectType, id string) events.Actor {
	switch subject {
	case domain.SubjectTypeAgent:
		return agentActor(&id)
	default:
		return clientActor(id)
	}
}

func generateClaimKey() string {
	return "RCL-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
