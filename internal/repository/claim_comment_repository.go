package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claimdesk/claims-service/internal/domain"
)

// ClaimCommentRepository stores claim thread comments.
type ClaimCommentRepository interface {
	Create(ctx context.Context, comment *domain.ClaimComment) error
	ListByClaim(ctx context.Context, claimID string) ([]domain.ClaimComment, error)
}

type claimCommentRepository struct {
	pool *pgxpool.Pool
}

// NewClaimCommentRepository builds the repository.
func NewClaimCommentRepository(pool *pgxpool.Pool) ClaimCommentRepository {
	return &claimCommentRepository{pool: pool}
}

func (r *claimCommentRepository) Create(ctx context.Context, comment *domain.ClaimComment) error {
	const query = `
        INSERT INTO claim_comments (claim_id, author_type, author_id, body, internal_flag)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.ClaimID,
		comment.AuthorType,
		comment.AuthorID,
		comment.Body,
		comment.Internal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *claimCommentRepository) ListByClaim(ctx context.Context, claimID string) ([]domain.ClaimComment, error) {
	const query = `
        SELECT id, claim_id, author_type, author_id, body, internal_flag, created_at
        FROM claim_comments WHERE claim_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ClaimComment
	for rows.Next() {
		var comment domain.ClaimComment
		if err := rows.Scan(
			&comment.ID,
			&comment.ClaimID,
			&comment.AuthorType,
			&comment.AuthorID,
			&comment.Body,
			&comment.Internal,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
