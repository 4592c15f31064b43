package events

import (
	"time"

	"github.com/claimdesk/claims-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventClaimCreated      EventType = "claim_created"
	EventClaimStateChanged EventType = "claim_state_changed"
	EventClaimAssigned     EventType = "claim_assigned"
	EventClaimCommentAdded EventType = "claim_comment_added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type     domain.SubjectType `json:"type"`
	ClientID *string            `json:"client_id,omitempty"`
	AgentID  *string            `json:"agent_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ClaimID   string      `json:"claim_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ClaimCreatedPayload payload.
type ClaimCreatedPayload struct {
	ClientID  string            `json:"client_id"`
	ProjectID *string           `json:"project_id,omitempty"`
	Area      *domain.ClaimArea `json:"area,omitempty"`
	Title     string            `json:"title"`
}

// ClaimStateChangedPayload payload.
type ClaimStateChangedPayload struct {
	OldState domain.ClaimState `json:"old_state"`
	NewState domain.ClaimState `json:"new_state"`
	Reason   string            `json:"reason,omitempty"`
}

// ClaimAssignedPayload payload.
type ClaimAssignedPayload struct {
	Area          *domain.ClaimArea `json:"area,omitempty"`
	ResponsibleID *string           `json:"responsible_agent_id,omitempty"`
}

// ClaimCommentAddedPayload payload.
type ClaimCommentAddedPayload struct {
	CommentID   string                   `json:"comment_id"`
	AuthorType  domain.CommentAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id,omitempty"`
	BodyPreview string                   `json:"body_preview"`
}
