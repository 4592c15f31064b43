package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgente     AgentRole = "AGENTE"
	AgentRoleSupervisor AgentRole = "SUPERVISOR"
	AgentRoleAdmin      AgentRole = "ADMIN"
)

// Agent models an internal operator who works claims.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Area         *ClaimArea
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
