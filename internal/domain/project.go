package domain

import "time"

// Project groups the claims a client files against one engagement.
type Project struct {
	ID          string
	ClientID    string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
