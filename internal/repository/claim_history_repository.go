package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claimdesk/claims-service/internal/domain"
)

// ClaimHistoryRepository stores the append-only audit ledger. Entries
// carry their own timestamps so that multiple entries written from one
// logical operation keep their assigned ordering; the insert never
// substitutes a database clock.
type ClaimHistoryRepository interface {
	Create(ctx context.Context, entry *domain.ClaimHistory) error
	ListByClaim(ctx context.Context, claimID string) ([]domain.ClaimHistory, error)
}

type claimHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewClaimHistoryRepository builds the repository.
func NewClaimHistoryRepository(pool *pgxpool.Pool) ClaimHistoryRepository {
	return &claimHistoryRepository{pool: pool}
}

func (r *claimHistoryRepository) Create(ctx context.Context, entry *domain.ClaimHistory) error {
	const query = `
        INSERT INTO claim_history (claim_id, change_kind, previous_state, new_state,
            previous_area, new_area, previous_responsible_id, new_responsible_id,
            area_at_change, acting_user_id, note, change_reason, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		entry.ClaimID,
		entry.Kind,
		entry.PreviousState,
		entry.NewState,
		entry.PreviousArea,
		entry.NewArea,
		entry.PreviousResponsibleID,
		entry.NewResponsibleID,
		entry.AreaAtChange,
		entry.ActingUserID,
		entry.Note,
		entry.ChangeReason,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *claimHistoryRepository) ListByClaim(ctx context.Context, claimID string) ([]domain.ClaimHistory, error) {
	const query = `
        SELECT id, claim_id, change_kind, previous_state, new_state, previous_area, new_area,
               previous_responsible_id, new_responsible_id, area_at_change, acting_user_id,
               note, change_reason, created_at
        FROM claim_history WHERE claim_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ClaimHistory
	for rows.Next() {
		var entry domain.ClaimHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.ClaimID,
			&entry.Kind,
			&entry.PreviousState,
			&entry.NewState,
			&entry.PreviousArea,
			&entry.NewArea,
			&entry.PreviousResponsibleID,
			&entry.NewResponsibleID,
			&entry.AreaAtChange,
			&entry.ActingUserID,
			&entry.Note,
			&entry.ChangeReason,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
