package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/claimdesk/claims-service/internal/domain"
	"github.com/claimdesk/claims-service/internal/events"
	"github.com/claimdesk/claims-service/internal/repository"
	apperrors "github.com/claimdesk/claims-service/pkg/errorutil"
)

type fakeClaimRepo struct {
	claims    map[string]*domain.Claim
	updateErr error
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{claims: map[string]*domain.Claim{}}
}

func (r *fakeClaimRepo) Create(_ context.Context, claim *domain.Claim) error {
	stored := *claim
	r.claims[claim.ID] = &stored
	return nil
}

func (r *fakeClaimRepo) Update(_ context.Context, claim *domain.Claim) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	stored := *claim
	r.claims[claim.ID] = &stored
	return nil
}

func (r *fakeClaimRepo) GetByID(_ context.Context, id string) (*domain.Claim, error) {
	claim, ok := r.claims[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *claim
	return &copied, nil
}

func (r *fakeClaimRepo) GetByExternalKey(_ context.Context, key string) (*domain.Claim, error) {
	for _, claim := range r.claims {
		if claim.ExternalKey == key {
			copied := *claim
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeClaimRepo) ListWithFilter(_ context.Context, _ repository.ClaimFilter) ([]domain.Claim, error) {
	out := make([]domain.Claim, 0, len(r.claims))
	for _, claim := range r.claims {
		out = append(out, *claim)
	}
	return out, nil
}

func (r *fakeClaimRepo) CountByState(_ context.Context) (map[domain.ClaimState]int64, error) {
	out := map[domain.ClaimState]int64{}
	for _, claim := range r.claims {
		out[claim.State]++
	}
	return out, nil
}

func (r *fakeClaimRepo) CountByArea(_ context.Context) (map[domain.ClaimArea]int64, error) {
	out := map[domain.ClaimArea]int64{}
	for _, claim := range r.claims {
		if claim.Area != nil {
			out[*claim.Area]++
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	entries   []domain.ClaimHistory
	createErr error
	failAfter int // fail on the nth Create when createErr set; -1 fails immediately
	calls     int
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.ClaimHistory) error {
	r.calls++
	if r.createErr != nil && (r.failAfter < 0 || r.calls > r.failAfter) {
		return r.createErr
	}
	entry.ID = fmt.Sprintf("hist-%d", len(r.entries)+1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByClaim(_ context.Context, claimID string) ([]domain.ClaimHistory, error) {
	out := make([]domain.ClaimHistory, 0)
	for _, entry := range r.entries {
		if entry.ClaimID == claimID {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type fakeAgentRepo struct {
	activeByArea map[string]domain.ClaimArea
}

func (r *fakeAgentRepo) Create(_ context.Context, _ *domain.Agent) error { return nil }
func (r *fakeAgentRepo) Update(_ context.Context, _ *domain.Agent) error { return nil }
func (r *fakeAgentRepo) GetByID(_ context.Context, _ string) (*domain.Agent, error) {
	return nil, pgx.ErrNoRows
}
func (r *fakeAgentRepo) GetByEmail(_ context.Context, _ string) (*domain.Agent, error) {
	return nil, pgx.ErrNoRows
}
func (r *fakeAgentRepo) List(_ context.Context, _ repository.AgentFilter) ([]domain.Agent, error) {
	return nil, nil
}
func (r *fakeAgentRepo) IsActiveAgentOfArea(_ context.Context, agentID string, area domain.ClaimArea) (bool, error) {
	got, ok := r.activeByArea[agentID]
	return ok && got == area, nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(_ events.EventType, _ events.EventHandler) {}

type lifecycleFixture struct {
	svc        *ClaimLifecycleService
	claims     *fakeClaimRepo
	history    *fakeHistoryRepo
	agents     *fakeAgentRepo
	dispatcher *recordingDispatcher
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	claims := newFakeClaimRepo()
	history := &fakeHistoryRepo{}
	agents := &fakeAgentRepo{activeByArea: map[string]domain.ClaimArea{}}
	dispatcher := &recordingDispatcher{}

	svc := NewClaimLifecycleService(LifecycleDependencies{
		ClaimRepo:   claims,
		HistoryRepo: history,
		AgentRepo:   agents,
		Dispatcher:  dispatcher,
	})
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	calls := 0
	svc.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}

	return &lifecycleFixture{svc: svc, claims: claims, history: history, agents: agents, dispatcher: dispatcher}
}

func (f *lifecycleFixture) seedClaim(state domain.ClaimState, mutate func(*domain.Claim)) *domain.Claim {
	claim := &domain.Claim{
		ID:          "claim-1",
		ExternalKey: "RCL-TEST0001",
		ClientID:    "client-1",
		Title:       "Pantalla en blanco",
		Description: "La aplicacion no carga despues de iniciar sesion",
		State:       state,
		Active:      true,
		CreatedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	claim.CanModify = state == domain.ClaimStatePendiente || state == domain.ClaimStateEnProceso
	claim.CanReassign = claim.CanModify
	if mutate != nil {
		mutate(claim)
	}
	_ = f.claims.Create(context.Background(), claim)
	return claim
}

func assertInvalidArgument(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected INVALID_ARGUMENT error, got nil")
	}
	if !apperrors.IsCode(err, "INVALID_ARGUMENT") {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestChangeStateNotFound(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.svc.ChangeState(context.Background(), "missing", ChangeStateRequest{
		TargetState: domain.ClaimStateEnProceso,
	})
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestChangeStateSameStateRejected(t *testing.T) {
	for _, state := range []domain.ClaimState{
		domain.ClaimStatePendiente,
		domain.ClaimStateEnProceso,
		domain.ClaimStateEnRevision,
		domain.ClaimStateResuelto,
		domain.ClaimStateCancelado,
	} {
		t.Run(string(state), func(t *testing.T) {
			f := newLifecycleFixture(t)
			f.seedClaim(state, nil)
			_, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{TargetState: state})
			assertInvalidArgument(t, err)
			if !strings.Contains(err.Error(), fmt.Sprintf("claim is already in state %s", state)) {
				t.Fatalf("unexpected message %v", err)
			}
			if len(f.history.entries) != 0 {
				t.Fatal("no history should be written")
			}
		})
	}
}

func TestChangeStatePendienteToEnProcesoWithArea(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStatePendiente, nil)

	area := domain.AreaSoporteTecnico
	claim, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateEnProceso,
		Area:        &area,
	})
	if err != nil {
		t.Fatalf("ChangeState: %v", err)
	}

	if claim.State != domain.ClaimStateEnProceso {
		t.Fatalf("state = %s", claim.State)
	}
	if !claim.CanModify || !claim.CanReassign {
		t.Fatalf("flags = %v/%v, want true/true", claim.CanModify, claim.CanReassign)
	}
	if claim.Area == nil || *claim.Area != area {
		t.Fatalf("area = %v", claim.Area)
	}

	entries, _ := f.history.ListByClaim(context.Background(), "claim-1")
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (area + state), got %d", len(entries))
	}
	if entries[0].Kind != domain.ChangeKindArea {
		t.Fatalf("first entry kind = %s, want AREA", entries[0].Kind)
	}
	if entries[0].PreviousArea != nil || entries[0].NewArea == nil || *entries[0].NewArea != area {
		t.Fatalf("area entry payload: prev=%v new=%v", entries[0].PreviousArea, entries[0].NewArea)
	}
	if entries[1].Kind != domain.ChangeKindState {
		t.Fatalf("second entry kind = %s, want STATE", entries[1].Kind)
	}
	if *entries[1].PreviousState != domain.ClaimStatePendiente || *entries[1].NewState != domain.ClaimStateEnProceso {
		t.Fatalf("state entry payload: %v -> %v", entries[1].PreviousState, entries[1].NewState)
	}
	if !entries[0].CreatedAt.Before(entries[1].CreatedAt) {
		t.Fatal("timestamps must strictly increase in write order")
	}
}

func TestChangeStatePendienteToEnProcesoGuard(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStatePendiente, nil)

	_, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateEnProceso,
	})
	assertInvalidArgument(t, err)
	if !strings.Contains(err.Error(), "requires an area or a responsible agent") {
		t.Fatalf("unexpected message %v", err)
	}
	if len(f.history.entries) != 0 {
		t.Fatal("rejected transition must not write history")
	}

	responsible := "agent-1"
	if _, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState:   domain.ClaimStateEnProceso,
		ResponsibleID: &responsible,
	}); err != nil {
		t.Fatalf("with responsible: %v", err)
	}
}

func TestChangeStateGuardFallsBackToCurrentArea(t *testing.T) {
	f := newLifecycleFixture(t)
	area := domain.AreaFacturacion
	f.seedClaim(domain.ClaimStatePendiente, func(c *domain.Claim) { c.Area = &area })

	// No area or responsible in the request; the claim's existing area
	// satisfies the guard.
	claim, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateEnProceso,
	})
	if err != nil {
		t.Fatalf("ChangeState: %v", err)
	}
	if claim.State != domain.ClaimStateEnProceso {
		t.Fatalf("state = %s", claim.State)
	}

	// Area unchanged, so only the state entry is written.
	entries, _ := f.history.ListByClaim(context.Background(), "claim-1")
	if len(entries) != 1 || entries[0].Kind != domain.ChangeKindState {
		t.Fatalf("expected single STATE entry, got %v", entries)
	}
}

func TestChangeStateThreeEntryOrdering(t *testing.T) {
	f := newLifecycleFixture(t)
	oldArea := domain.AreaVentas
	oldResponsible := "agent-old"
	f.seedClaim(domain.ClaimStateEnProceso, func(c *domain.Claim) {
		c.Area = &oldArea
		c.ResponsibleID = &oldResponsible
	})

	newArea := domain.AreaSoporteTecnico
	newResponsible := "agent-new"
	note := "se escala al equipo de soporte"
	_, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState:   domain.ClaimStateEnRevision,
		Area:          &newArea,
		ResponsibleID: &newResponsible,
		Note:          &note,
	})
	if err != nil {
		t.Fatalf("ChangeState: %v", err)
	}

	entries, _ := f.history.ListByClaim(context.Background(), "claim-1")
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantKinds := []domain.ClaimChangeKind{domain.ChangeKindArea, domain.ChangeKindResponsible, domain.ChangeKindState}
	for i, kind := range wantKinds {
		if entries[i].Kind != kind {
			t.Fatalf("entry %d kind = %s, want %s", i, entries[i].Kind, kind)
		}
	}
	for i := 1; i < len(entries); i++ {
		if !entries[i-1].CreatedAt.Before(entries[i].CreatedAt) {
			t.Fatalf("timestamps not strictly increasing at %d", i)
		}
	}
	if *entries[0].PreviousArea != oldArea || *entries[0].NewArea != newArea {
		t.Fatalf("area payload: %v -> %v", entries[0].PreviousArea, entries[0].NewArea)
	}
	if *entries[1].PreviousResponsibleID != oldResponsible || *entries[1].NewResponsibleID != newResponsible {
		t.Fatalf("responsible payload: %v -> %v", entries[1].PreviousResponsibleID, entries[1].NewResponsibleID)
	}
	// The area entry comes first, so the whole operation happened under
	// the new area; every entry records it.
	for i, entry := range entries {
		if entry.AreaAtChange == nil || *entry.AreaAtChange != newArea {
			t.Fatalf("entry %d AreaAtChange = %v, want %s", i, entry.AreaAtChange, newArea)
		}
	}
}

func TestChangeStateNoSpuriousEntries(t *testing.T) {
	f := newLifecycleFixture(t)
	area := domain.AreaSoporteTecnico
	responsible := "agent-1"
	f.seedClaim(domain.ClaimStateEnProceso, func(c *domain.Claim) {
		c.Area = &area
		c.ResponsibleID = &responsible
	})

	// Same area and responsible restated in the request: only the
	// state entry may be written.
	note := "listo para revision"
	_, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState:   domain.ClaimStateEnRevision,
		Area:          &area,
		ResponsibleID: &responsible,
		Note:          &note,
	})
	if err != nil {
		t.Fatalf("ChangeState: %v", err)
	}
	entries, _ := f.history.ListByClaim(context.Background(), "claim-1")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Kind != domain.ChangeKindState {
		t.Fatalf("kind = %s, want STATE", entries[0].Kind)
	}
	if entries[0].Note == nil || *entries[0].Note != note {
		t.Fatalf("note = %v", entries[0].Note)
	}
}

func TestChangeStateResueltoSetsResolvedAtOnce(t *testing.T) {
	f := newLifecycleFixture(t)
	summary := "se corrigio la configuracion"
	f.seedClaim(domain.ClaimStateEnRevision, nil)

	claim, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState:       domain.ClaimStateResuelto,
		ResolutionSummary: &summary,
	})
	if err != nil {
		t.Fatalf("to RESUELTO: %v", err)
	}
	if claim.ResolvedAt == nil {
		t.Fatal("ResolvedAt should be set")
	}
	if claim.ResolutionSummary == nil || *claim.ResolutionSummary != summary {
		t.Fatalf("summary = %v", claim.ResolutionSummary)
	}
	if claim.CanModify || claim.CanReassign {
		t.Fatal("RESUELTO flags must be false/false")
	}
	firstResolved := *claim.ResolvedAt

	// Reopen, then resolve again: the original timestamp survives.
	reason := "el cliente reporta que persiste"
	longNote := "El error volvio a aparecer al dia siguiente del cierre"
	if _, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState:  domain.ClaimStateEnProceso,
		ChangeReason: &reason,
		Note:         &longNote,
	}); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	note := "validado de nuevo"
	if _, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateEnRevision,
		Note:        &note,
	}); err != nil {
		t.Fatalf("back to review: %v", err)
	}
	claim, err = f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState:       domain.ClaimStateResuelto,
		ResolutionSummary: &summary,
	})
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !claim.ResolvedAt.Equal(firstResolved) {
		t.Fatalf("ResolvedAt changed: %v -> %v", firstResolved, claim.ResolvedAt)
	}
}

func TestChangeStateReopenNoteLength(t *testing.T) {
	reason := "regresion"

	t.Run("short note rejected", func(t *testing.T) {
		f := newLifecycleFixture(t)
		f.seedClaim(domain.ClaimStateResuelto, nil)
		short := "Corto"
		_, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
			TargetState:  domain.ClaimStateEnProceso,
			ChangeReason: &reason,
			Note:         &short,
		})
		assertInvalidArgument(t, err)
		if !strings.Contains(err.Error(), "note of at least 20 characters") {
			t.Fatalf("unexpected message %v", err)
		}
	})

	t.Run("long note accepted", func(t *testing.T) {
		f := newLifecycleFixture(t)
		f.seedClaim(domain.ClaimStateResuelto, nil)
		long := "El problema persiste despues de la solucion aplicada"
		claim, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
			TargetState:  domain.ClaimStateEnProceso,
			ChangeReason: &reason,
			Note:         &long,
		})
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		if claim.State != domain.ClaimStateEnProceso {
			t.Fatalf("state = %s", claim.State)
		}
		if !claim.CanModify || !claim.CanReassign {
			t.Fatal("reopened claim must be modifiable and reassignable")
		}
	})
}

func TestChangeStateCancelacion(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStatePendiente, nil)

	claim, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateCancelado,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if claim.ClosedAt == nil {
		t.Fatal("ClosedAt should be set")
	}
	if claim.CanModify || claim.CanReassign {
		t.Fatal("CANCELADO flags must be false/false")
	}

	// Terminal: every further transition is rejected.
	_, err = f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateEnProceso,
	})
	assertInvalidArgument(t, err)
	if !strings.Contains(err.Error(), "terminal state") {
		t.Fatalf("unexpected message %v", err)
	}
}

func TestChangeStateUnknownAreaRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStatePendiente, nil)

	bogus := domain.ClaimArea("RECURSOS_HUMANOS")
	_, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateEnProceso,
		Area:        &bogus,
	})
	assertInvalidArgument(t, err)
	if !strings.Contains(err.Error(), "unknown area") {
		t.Fatalf("unexpected message %v", err)
	}
}

func TestChangeStateHistoryFailureAborts(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStatePendiente, nil)
	f.history.createErr = errors.New("ledger unavailable")
	f.history.failAfter = -1

	area := domain.AreaSoporteTecnico
	_, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateEnProceso,
		Area:        &area,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	stored, _ := f.claims.GetByID(context.Background(), "claim-1")
	if stored.State != domain.ClaimStatePendiente {
		t.Fatalf("claim state mutated to %s despite ledger failure", stored.State)
	}
	if len(f.dispatcher.published) != 0 {
		t.Fatal("no event should be published on failure")
	}
}

func TestChangeStateHistoryPartialFailureAborts(t *testing.T) {
	f := newLifecycleFixture(t)
	oldArea := domain.AreaVentas
	oldResponsible := "agent-old"
	f.seedClaim(domain.ClaimStateEnProceso, func(c *domain.Claim) {
		c.Area = &oldArea
		c.ResponsibleID = &oldResponsible
	})
	// First write lands, second fails: the claim row must still be
	// untouched.
	f.history.createErr = errors.New("ledger unavailable")
	f.history.failAfter = 1

	newArea := domain.AreaSoporteTecnico
	newResponsible := "agent-new"
	note := "se escala"
	_, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState:   domain.ClaimStateEnRevision,
		Area:          &newArea,
		ResponsibleID: &newResponsible,
		Note:          &note,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	stored, _ := f.claims.GetByID(context.Background(), "claim-1")
	if stored.State != domain.ClaimStateEnProceso {
		t.Fatalf("claim state mutated to %s despite ledger failure", stored.State)
	}
	if stored.Area == nil || *stored.Area != oldArea {
		t.Fatalf("claim area mutated to %v despite ledger failure", stored.Area)
	}
	if stored.ResponsibleID == nil || *stored.ResponsibleID != oldResponsible {
		t.Fatalf("claim responsible mutated to %v despite ledger failure", stored.ResponsibleID)
	}
	if len(f.dispatcher.published) != 0 {
		t.Fatal("no event should be published on failure")
	}
}

func TestChangeStateSoftDeletedClaim(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStatePendiente, func(c *domain.Claim) { c.Active = false })

	area := domain.AreaSoporteTecnico
	_, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateEnProceso,
		Area:        &area,
	})
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND for soft-deleted claim, got %v", err)
	}
	if len(f.history.entries) != 0 {
		t.Fatalf("no history may be written, got %d entries", len(f.history.entries))
	}
	stored, _ := f.claims.GetByID(context.Background(), "claim-1")
	if stored.State != domain.ClaimStatePendiente {
		t.Fatalf("state mutated to %s", stored.State)
	}

	f.agents.activeByArea["agent-1"] = domain.AreaSoporteTecnico
	_, err = f.svc.AssignAreaAndResponsible(context.Background(), "claim-1", domain.AreaSoporteTecnico, "agent-1", nil)
	if !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND on assignment, got %v", err)
	}
}

func TestChangeStatePublishesEvent(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStatePendiente, nil)

	area := domain.AreaVentas
	actor := "agent-7"
	_, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState:  domain.ClaimStateEnProceso,
		Area:         &area,
		ActingUserID: &actor,
	})
	if err != nil {
		t.Fatalf("ChangeState: %v", err)
	}

	if len(f.dispatcher.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.dispatcher.published))
	}
	event := f.dispatcher.published[0]
	if event.Type != events.EventClaimStateChanged {
		t.Fatalf("event type = %s", event.Type)
	}
	payload, ok := event.Payload.(events.ClaimStateChangedPayload)
	if !ok {
		t.Fatalf("payload type %T", event.Payload)
	}
	if payload.OldState != domain.ClaimStatePendiente || payload.NewState != domain.ClaimStateEnProceso {
		t.Fatalf("payload states %s -> %s", payload.OldState, payload.NewState)
	}
}

func TestAssignAreaAndResponsible(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStatePendiente, nil)
	f.agents.activeByArea["agent-1"] = domain.AreaSoporteTecnico

	claim, err := f.svc.AssignAreaAndResponsible(context.Background(), "claim-1", domain.AreaSoporteTecnico, "agent-1", nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if claim.Area == nil || *claim.Area != domain.AreaSoporteTecnico {
		t.Fatalf("area = %v", claim.Area)
	}
	if claim.ResponsibleID == nil || *claim.ResponsibleID != "agent-1" {
		t.Fatalf("responsible = %v", claim.ResponsibleID)
	}
	if claim.State != domain.ClaimStatePendiente {
		t.Fatalf("assignment must not change state, got %s", claim.State)
	}

	entries, _ := f.history.ListByClaim(context.Background(), "claim-1")
	if len(entries) != 2 {
		t.Fatalf("expected area + responsible entries, got %d", len(entries))
	}
	if entries[0].Kind != domain.ChangeKindArea || entries[1].Kind != domain.ChangeKindResponsible {
		t.Fatalf("order = %s, %s", entries[0].Kind, entries[1].Kind)
	}
	if !entries[0].CreatedAt.Before(entries[1].CreatedAt) {
		t.Fatal("timestamps must strictly increase")
	}
	for i, entry := range entries {
		if entry.AreaAtChange == nil || *entry.AreaAtChange != domain.AreaSoporteTecnico {
			t.Fatalf("entry %d AreaAtChange = %v, want the assigned area", i, entry.AreaAtChange)
		}
	}
}

func TestAssignRejectedWhenReassignFlagFalse(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStateEnRevision, nil)
	f.agents.activeByArea["agent-1"] = domain.AreaSoporteTecnico

	_, err := f.svc.AssignAreaAndResponsible(context.Background(), "claim-1", domain.AreaSoporteTecnico, "agent-1", nil)
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if len(f.history.entries) != 0 {
		t.Fatal("rejected assignment must not write history")
	}
}

func TestAssignRejectsInactiveOrWrongAreaAgent(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStatePendiente, nil)
	f.agents.activeByArea["agent-1"] = domain.AreaVentas

	_, err := f.svc.AssignAreaAndResponsible(context.Background(), "claim-1", domain.AreaSoporteTecnico, "agent-1", nil)
	assertInvalidArgument(t, err)
	if !strings.Contains(err.Error(), "is not an active agent of area") {
		t.Fatalf("unexpected message %v", err)
	}
}

func TestAssignSkipsUnchangedDimensions(t *testing.T) {
	f := newLifecycleFixture(t)
	area := domain.AreaFacturacion
	f.seedClaim(domain.ClaimStatePendiente, func(c *domain.Claim) { c.Area = &area })
	f.agents.activeByArea["agent-2"] = area

	_, err := f.svc.AssignAreaAndResponsible(context.Background(), "claim-1", area, "agent-2", nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	entries, _ := f.history.ListByClaim(context.Background(), "claim-1")
	if len(entries) != 1 || entries[0].Kind != domain.ChangeKindResponsible {
		t.Fatalf("expected single RESPONSIBLE entry, got %v", entries)
	}
}

func TestGetHistoryChronological(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStatePendiente, nil)

	area := domain.AreaSoporteTecnico
	if _, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateEnProceso,
		Area:        &area,
	}); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	note := "diagnostico completo"
	if _, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateEnRevision,
		Note:        &note,
	}); err != nil {
		t.Fatalf("step 2: %v", err)
	}

	entries, err := f.svc.GetHistory(context.Background(), "claim-1")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries across both calls, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if !entries[i-1].CreatedAt.Before(entries[i].CreatedAt) {
			t.Fatalf("entries out of order at %d", i)
		}
	}
}

func TestCanModifyAndCanReassignFollowState(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seedClaim(domain.ClaimStateEnProceso, nil)

	canModify, err := f.svc.CanModify(context.Background(), "claim-1")
	if err != nil || !canModify {
		t.Fatalf("CanModify = %v, %v", canModify, err)
	}

	note := "propuesta lista"
	if _, err := f.svc.ChangeState(context.Background(), "claim-1", ChangeStateRequest{
		TargetState: domain.ClaimStateEnRevision,
		Note:        &note,
	}); err != nil {
		t.Fatalf("ChangeState: %v", err)
	}

	canModify, _ = f.svc.CanModify(context.Background(), "claim-1")
	canReassign, _ := f.svc.CanReassign(context.Background(), "claim-1")
	if canModify || canReassign {
		t.Fatalf("EN_REVISION flags = %v/%v, want false/false", canModify, canReassign)
	}
}

func TestDescribeAllStates(t *testing.T) {
	f := newLifecycleFixture(t)
	infos := f.svc.DescribeAllStates()
	if len(infos) != 5 {
		t.Fatalf("expected 5 states, got %d", len(infos))
	}
	if infos[0].State != domain.ClaimStatePendiente {
		t.Fatalf("first state = %s", infos[0].State)
	}
}
