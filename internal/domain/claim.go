package domain

import "time"

// ClaimState enumerates lifecycle states for claims.
type ClaimState string

const (
	ClaimStatePendiente  ClaimState = "PENDIENTE"
	ClaimStateEnProceso  ClaimState = "EN_PROCESO"
	ClaimStateEnRevision ClaimState = "EN_REVISION"
	ClaimStateResuelto   ClaimState = "RESUELTO"
	ClaimStateCancelado  ClaimState = "CANCELADO"
)

// ClaimArea enumerates the organizational areas a claim can be routed to.
type ClaimArea string

const (
	AreaSoporteTecnico ClaimArea = "SOPORTE_TECNICO"
	AreaFacturacion    ClaimArea = "FACTURACION"
	AreaVentas         ClaimArea = "VENTAS"
)

// ValidArea reports whether the given area is one of the fixed categories.
func ValidArea(area ClaimArea) bool {
	switch area {
	case AreaSoporteTecnico, AreaFacturacion, AreaVentas:
		return true
	}
	return false
}

// Claim is the aggregate for client complaints.
//
// CanModify and CanReassign are derived from State via the lifecycle
// tables and denormalized here for fast reads; they are recomputed on
// every state change and must never be set by hand.
type Claim struct {
	ID                string
	ExternalKey       string
	ClientID          string
	ProjectID         *string
	Title             string
	Description       string
	State             ClaimState
	Area              *ClaimArea
	ResponsibleID     *string
	CanModify         bool
	CanReassign       bool
	ResolutionSummary *string
	ResolvedAt        *time.Time
	ClosedAt          *time.Time
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
