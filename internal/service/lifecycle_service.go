package service

import (
	"context"
	"errors"
	"fmt"
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

// historyStep separates the timestamps of history entries written from
// one logical operation, so a chronological read reproduces write
// order even when all entries land within the same wall-clock instant.
const historyStep = 100 * time.Millisecond

// ClaimLifecycleService orchestrates claim state changes and
// reassignment. Every mutation of claim state goes through here; the
// plain CRUD layer never touches State, CanModify or CanReassign.
//
// Concurrent calls against the same claim are not serialized by this
// service; the storage layer is expected to allow at most one in-flight
// mutation per claim.
type ClaimLifecycleService struct {
	claims     repository.ClaimRepository
	history    repository.ClaimHistoryRepository
	agents     repository.AgentRepository
	dispatcher events.Dispatcher
	cache      *persistence.ClaimCache

	now func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	ClaimRepo   repository.ClaimRepository
	HistoryRepo repository.ClaimHistoryRepository
	AgentRepo   repository.AgentRepository
	Dispatcher  events.Dispatcher
	Cache       *persistence.ClaimCache
}

// NewClaimLifecycleService constructs the service.
func NewClaimLifecycleService(deps LifecycleDependencies) *ClaimLifecycleService {
	return &ClaimLifecycleService{
		claims:     deps.ClaimRepo,
		history:    deps.HistoryRepo,
		agents:     deps.AgentRepo,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		now:        time.Now,
	}
}

// ChangeStateRequest describes a requested state transition.
type ChangeStateRequest struct {
	TargetState       domain.ClaimState
	Area              *domain.ClaimArea
	ResponsibleID     *string
	Note              *string
	ChangeReason      *string
	ResolutionSummary *string
	ActingUserID      *string
}

// ChangeState moves a claim to a new lifecycle state. On success the
// ledger receives entries in the fixed order area, responsible, state
// (skipping area/responsible when unchanged) with strictly increasing
// timestamps, and the claim is persisted with flags recomputed from
// the new state.
func (s *ClaimLifecycleService) ChangeState(ctx context.Context, claimID string, req ChangeStateRequest) (*domain.Claim, error) {
	claim, err := s.loadClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if req.TargetState == claim.State {
		return nil, apperrors.NewInvalidArgument(
			fmt.Sprintf("claim is already in state %s", claim.State),
			map[string]any{"claim_id": claimID})
	}

	if req.Area != nil && !domain.ValidArea(*req.Area) {
		return nil, apperrors.NewInvalidArgument(
			fmt.Sprintf("unknown area: %s", *req.Area),
			map[string]any{"claim_id": claimID})
	}

	guardCtx := lifecycle.Context{
		Area:              req.Area,
		ResponsibleID:     req.ResponsibleID,
		Note:              req.Note,
		ChangeReason:      req.ChangeReason,
		ResolutionSummary: req.ResolutionSummary,
	}
	if guardCtx.Area == nil {
		guardCtx.Area = claim.Area
	}
	if err := lifecycle.ValidateTransition(claim.State, req.TargetState, guardCtx); err != nil {
		return nil, apperrors.NewInvalidArgument(err.Error(), map[string]any{
			"claim_id": claimID,
			"state":    claim.State,
			"target":   req.TargetState,
		})
	}

	newDef, err := lifecycle.Get(req.TargetState)
	if err != nil {
		return nil, apperrors.NewInvalidArgument(err.Error(), nil)
	}

	// Assemble every pending entry before the first write so the
	// ledger never records a partial ordering.
	pending := s.collectChangeEntries(claim, req)
	if err := s.flushHistory(ctx, pending); err != nil {
		return nil, apperrors.MapError(err)
	}

	oldState := claim.State
	claim.State = req.TargetState
	claim.CanModify = newDef.CanModify()
	claim.CanReassign = newDef.CanReassign()
	if req.Area != nil {
		claim.Area = req.Area
	}
	if req.ResponsibleID != nil {
		claim.ResponsibleID = req.ResponsibleID
	}
	if req.ResolutionSummary != nil {
		claim.ResolutionSummary = req.ResolutionSummary
	}
	now := s.now()
	if req.TargetState == domain.ClaimStateResuelto && claim.ResolvedAt == nil {
		claim.ResolvedAt = &now
	}
	if req.TargetState == domain.ClaimStateCancelado && claim.ClosedAt == nil {
		claim.ClosedAt = &now
	}

	if err := s.claims.Update(ctx, claim); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx, claim.ID)

	s.publish(ctx, events.Event{
		Type:    events.EventClaimStateChanged,
		ClaimID: claim.ID,
		Actor:   agentActor(req.ActingUserID),
		Payload: events.ClaimStateChangedPayload{
			OldState: oldState,
			NewState: claim.State,
			Reason:   derefOrEmpty(req.ChangeReason),
		},
	})
	return claim, nil
}

// AssignAreaAndResponsible routes a claim to an area and hands it to
// an agent without changing state. It does not consult transition
// guards; the gate is the claim's reassign flag plus the requirement
// that the proposed responsible is an active agent of the target area.
func (s *ClaimLifecycleService) AssignAreaAndResponsible(ctx context.Context, claimID string, area domain.ClaimArea, responsibleID string, actingUserID *string) (*domain.Claim, error) {
	claim, err := s.loadClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !claim.CanReassign {
		return nil, apperrors.NewForbidden(
			fmt.Sprintf("claim in state %s cannot be reassigned", claim.State))
	}
	if !domain.ValidArea(area) {
		return nil, apperrors.NewInvalidArgument(
			fmt.Sprintf("unknown area: %s", area),
			map[string]any{"claim_id": claimID})
	}
	ok, err := s.agents.IsActiveAgentOfArea(ctx, responsibleID, area)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		return nil, apperrors.NewInvalidArgument(
			fmt.Sprintf("agent %s is not an active agent of area %s", responsibleID, area),
			map[string]any{"claim_id": claimID})
	}

	pending := make([]domain.ClaimHistory, 0, 2)
	base := s.now()
	if claim.Area == nil || *claim.Area != area {
		pending = append(pending, s.areaEntry(claim, area, actingUserID, base.Add(time.Duration(len(pending))*historyStep)))
	}
	if claim.ResponsibleID == nil || *claim.ResponsibleID != responsibleID {
		pending = append(pending, s.responsibleEntry(claim, responsibleID, &area, actingUserID, base.Add(time.Duration(len(pending))*historyStep)))
	}
	if err := s.flushHistory(ctx, pending); err != nil {
		return nil, apperrors.MapError(err)
	}

	claim.Area = &area
	claim.ResponsibleID = &responsibleID
	if err := s.claims.Update(ctx, claim); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx, claim.ID)

	s.publish(ctx, events.Event{
		Type:    events.EventClaimAssigned,
		ClaimID: claim.ID,
		Actor:   agentActor(actingUserID),
		Payload: events.ClaimAssignedPayload{
			Area:          claim.Area,
			ResponsibleID: claim.ResponsibleID,
		},
	})
	return claim, nil
}

// GetHistory returns the claim's ledger in chronological order.
func (s *ClaimLifecycleService) GetHistory(ctx context.Context, claimID string) ([]domain.ClaimHistory, error) {
	if _, err := s.loadClaim(ctx, claimID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// CanModify reads the claim's denormalized modify flag.
func (s *ClaimLifecycleService) CanModify(ctx context.Context, claimID string) (bool, error) {
	claim, err := s.loadClaim(ctx, claimID)
	if err != nil {
		return false, err
	}
	return claim.CanModify, nil
}

// CanReassign reads the claim's denormalized reassign flag.
func (s *ClaimLifecycleService) CanReassign(ctx context.Context, claimID string) (bool, error) {
	claim, err := s.loadClaim(ctx, claimID)
	if err != nil {
		return false, err
	}
	return claim.CanReassign, nil
}

// DescribeAllStates lists every lifecycle state with its transitions
// and flags, for informational endpoints.
func (s *ClaimLifecycleService) DescribeAllStates() []lifecycle.StateInfo {
	return lifecycle.DescribeAll()
}

// collectChangeEntries builds the pending ledger entries for a state
// change in their fixed order: area first, responsible second, state
// last. Offsets from one base time keep the timestamps strictly
// increasing.
func (s *ClaimLifecycleService) collectChangeEntries(claim *domain.Claim, req ChangeStateRequest) []domain.ClaimHistory {
	pending := make([]domain.ClaimHistory, 0, 3)
	base := s.now()

	// All entries of one operation record the same area context: the
	// area the claim holds once the request's area (if any) applies.
	areaAtChange := claim.Area
	if req.Area != nil {
		areaAtChange = req.Area
	}

	if req.Area != nil && (claim.Area == nil || *claim.Area != *req.Area) {
		pending = append(pending, s.areaEntry(claim, *req.Area, req.ActingUserID, base.Add(time.Duration(len(pending))*historyStep)))
	}
	if req.ResponsibleID != nil && (claim.ResponsibleID == nil || *claim.ResponsibleID != *req.ResponsibleID) {
		pending = append(pending, s.responsibleEntry(claim, *req.ResponsibleID, areaAtChange, req.ActingUserID, base.Add(time.Duration(len(pending))*historyStep)))
	}

	previous := claim.State
	target := req.TargetState
	pending = append(pending, domain.ClaimHistory{
		ClaimID:       claim.ID,
		Kind:          domain.ChangeKindState,
		PreviousState: &previous,
		NewState:      &target,
		AreaAtChange:  areaAtChange,
		ActingUserID:  req.ActingUserID,
		Note:          req.Note,
		ChangeReason:  req.ChangeReason,
		CreatedAt:     base.Add(time.Duration(len(pending)) * historyStep),
	})
	return pending
}

func (s *ClaimLifecycleService) areaEntry(claim *domain.Claim, newArea domain.ClaimArea, actingUserID *string, ts time.Time) domain.ClaimHistory {
	area := newArea
	return domain.ClaimHistory{
		ClaimID:      claim.ID,
		Kind:         domain.ChangeKindArea,
		PreviousArea: claim.Area,
		NewArea:      &area,
		AreaAtChange: &area,
		ActingUserID: actingUserID,
		CreatedAt:    ts,
	}
}

func (s *ClaimLifecycleService) responsibleEntry(claim *domain.Claim, newResponsible string, areaAtChange *domain.ClaimArea, actingUserID *string, ts time.Time) domain.ClaimHistory {
	responsible := newResponsible
	return domain.ClaimHistory{
		ClaimID:               claim.ID,
		Kind:                  domain.ChangeKindResponsible,
		PreviousResponsibleID: claim.ResponsibleID,
		NewResponsibleID:      &responsible,
		AreaAtChange:          areaAtChange,
		ActingUserID:          actingUserID,
		CreatedAt:             ts,
	}
}

// flushHistory writes pending entries one at a time, in order. Any
// failure aborts the whole operation before the claim row is touched,
// so the denormalized state never runs ahead of the ledger.
func (s *ClaimLifecycleService) flushHistory(ctx context.Context, pending []domain.ClaimHistory) error {
	for i := range pending {
		if err := s.history.Create(ctx, &pending[i]); err != nil {
			return err
		}
	}
	return nil
}

// loadClaim resolves a claim by id. Soft-deleted claims are treated as
// absent: no lifecycle operation may touch them.
func (s *ClaimLifecycleService) loadClaim(ctx context.Context, claimID string) (*domain.Claim, error) {
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
	return claim, nil
}

func (s *ClaimLifecycleService) invalidate(ctx context.Context, claimID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, claimID)
}

func (s *ClaimLifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func agentActor(agentID *string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeAgent,
		AgentID: agentID,
	}
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
