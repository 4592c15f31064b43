package domain

import "time"

// SubjectType differentiates client vs agent tokens.
type SubjectType string

const (
	SubjectTypeClient SubjectType = "CLIENT"
	SubjectTypeAgent  SubjectType = "AGENT"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	Role      *AgentRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// PasswordReset tracks a pending password reset request.
type PasswordReset struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
