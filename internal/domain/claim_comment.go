package domain

import "time"

// CommentAuthorType differentiates client vs agent comments.
type CommentAuthorType string

const (
	AuthorTypeClient CommentAuthorType = "CLIENT"
	AuthorTypeAgent  CommentAuthorType = "AGENT"
)

// ClaimComment is a free-text comment in a claim's thread.
type ClaimComment struct {
	ID         string
	ClaimID    string
	AuthorType CommentAuthorType
	AuthorID   *string
	Body       string
	Internal   bool
	CreatedAt  time.Time
}
