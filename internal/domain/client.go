package domain

import "time"

// ClientStatus represents lifecycle states for a client account.
type ClientStatus string

const (
	ClientStatusActive    ClientStatus = "ACTIVE"
	ClientStatusSuspended ClientStatus = "SUSPENDED"
)

// Client is the domain model for customers who file claims.
type Client struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Status       ClientStatus
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
