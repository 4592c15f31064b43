package domain

import "time"

// ClaimChangeKind captures what changed in a history entry.
type ClaimChangeKind string

const (
	ChangeKindArea        ClaimChangeKind = "AREA"
	ChangeKindResponsible ClaimChangeKind = "RESPONSIBLE"
	ChangeKindState       ClaimChangeKind = "STATE"
)

// ClaimHistory is an immutable audit trail entry. Exactly one of the
// previous/new pairs is populated, according to Kind. AreaAtChange is
// kept on every entry for area-level reporting. CreatedAt is the
// ordering key: entries produced by one logical operation carry
// strictly increasing timestamps in write order.
type ClaimHistory struct {
	ID                    string
	ClaimID               string
	Kind                  ClaimChangeKind
	PreviousState         *ClaimState
	NewState              *ClaimState
	PreviousArea          *ClaimArea
	NewArea               *ClaimArea
	PreviousResponsibleID *string
	NewResponsibleID      *string
	AreaAtChange          *ClaimArea
	ActingUserID          *string
	Note                  *string
	ChangeReason          *string
	CreatedAt             time.Time
}
