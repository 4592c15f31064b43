package dto

import (
	"time"

	"github.com/claimdesk/claims-service/internal/domain"
)

// CreateClaimRequest payload.
type CreateClaimRequest struct {
	ProjectID   *string           `json:"project_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Area        *domain.ClaimArea `json:"area"`
}

// UpdateClaimRequest payload for field edits.
type UpdateClaimRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ProjectID   *string `json:"project_id"`
}

// ChangeStateRequest payload for lifecycle transitions.
type ChangeStateRequest struct {
	TargetState       domain.ClaimState `json:"target_state"`
	Area              *domain.ClaimArea `json:"area"`
	ResponsibleID     *string           `json:"responsible_agent_id"`
	Note              *string           `json:"note"`
	ChangeReason      *string           `json:"change_reason"`
	ResolutionSummary *string           `json:"resolution_summary"`
}

// AssignClaimRequest payload for area/responsible reassignment.
type AssignClaimRequest struct {
	Area          domain.ClaimArea `json:"area"`
	ResponsibleID string           `json:"responsible_agent_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// ClaimSummary response.
type ClaimSummary struct {
	ID            string            `json:"id"`
	ExternalKey   string            `json:"external_key"`
	ClientID      string            `json:"client_id"`
	ProjectID     *string           `json:"project_id,omitempty"`
	Title         string            `json:"title"`
	State         domain.ClaimState `json:"state"`
	Area          *domain.ClaimArea `json:"area,omitempty"`
	ResponsibleID *string           `json:"responsible_agent_id,omitempty"`
	CanModify     bool              `json:"can_modify"`
	CanReassign   bool              `json:"can_reassign"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ClaimDetailResponse provides full claim info.
type ClaimDetailResponse struct {
	ClaimSummary
	Description       string            `json:"description"`
	ResolutionSummary *string           `json:"resolution_summary,omitempty"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
	ClosedAt          *time.Time        `json:"closed_at,omitempty"`
	Comments          []CommentResponse `json:"comments"`
}

// CommentResponse represents one thread comment.
type CommentResponse struct {
	ID         string                   `json:"id"`
	AuthorType domain.CommentAuthorType `json:"author_type"`
	AuthorID   *string                  `json:"author_id,omitempty"`
	Body       string                   `json:"body"`
	Internal   bool                     `json:"internal"`
	CreatedAt  time.Time                `json:"created_at"`
}

// HistoryEntryResponse represents one ledger entry.
type HistoryEntryResponse struct {
	ID                    string                 `json:"id"`
	Kind                  domain.ClaimChangeKind `json:"kind"`
	PreviousState         *domain.ClaimState     `json:"previous_state,omitempty"`
	NewState              *domain.ClaimState     `json:"new_state,omitempty"`
	PreviousArea          *domain.ClaimArea      `json:"previous_area,omitempty"`
	NewArea               *domain.ClaimArea      `json:"new_area,omitempty"`
	PreviousResponsibleID *string                `json:"previous_responsible_id,omitempty"`
	NewResponsibleID      *string                `json:"new_responsible_id,omitempty"`
	AreaAtChange          *domain.ClaimArea      `json:"area_at_change,omitempty"`
	ActingUserID          *string                `json:"acting_user_id,omitempty"`
	Note                  *string                `json:"note,omitempty"`
	ChangeReason          *string                `json:"change_reason,omitempty"`
	Timestamp             time.Time              `json:"timestamp"`
}
