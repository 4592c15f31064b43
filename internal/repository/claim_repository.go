package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claimdesk/claims-service/internal/domain"
)

// ClaimFilter captures search parameters for claim listings.
type ClaimFilter struct {
	ClientID        *string
	ProjectID       *string
	ResponsibleID   *string
	Area            *domain.ClaimArea
	States          []domain.ClaimState
	SearchTerm      *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	IncludeInactive bool
	Limit           int
	Offset          int
}

// ClaimRepository encapsulates claim persistence.
type ClaimRepository interface {
	Create(ctx context.Context, claim *domain.Claim) error
	Update(ctx context.Context, claim *domain.Claim) error
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.Claim, error)
	ListWithFilter(ctx context.Context, filter ClaimFilter) ([]domain.Claim, error)
	CountByState(ctx context.Context) (map[domain.ClaimState]int64, error)
	CountByArea(ctx context.Context) (map[domain.ClaimArea]int64, error)
}

type claimRepository struct {
	pool *pgxpool.Pool
}

// NewClaimRepository instantiates the repository.
func NewClaimRepository(pool *pgxpool.Pool) ClaimRepository {
	return &claimRepository{pool: pool}
}

const claimColumns = `id, external_key, client_id, project_id, title, description, state, area,
               responsible_agent_id, can_modify, can_reassign, resolution_summary,
               resolved_at, closed_at, active_flag, created_at, updated_at`

func (r *claimRepository) Create(ctx context.Context, claim *domain.Claim) error {
	const query = `
        INSERT INTO claims (external_key, client_id, project_id, title, description, state, area,
            responsible_agent_id, can_modify, can_reassign, resolution_summary, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		claim.ExternalKey,
		claim.ClientID,
		claim.ProjectID,
		claim.Title,
		claim.Description,
		claim.State,
		claim.Area,
		claim.ResponsibleID,
		claim.CanModify,
		claim.CanReassign,
		claim.ResolutionSummary,
		claim.Active,
	).Scan(&claim.ID, &claim.CreatedAt, &claim.UpdatedAt)
}

func (r *claimRepository) Update(ctx context.Context, claim *domain.Claim) error {
	const query = `
        UPDATE claims SET project_id=$1, title=$2, description=$3, state=$4, area=$5,
            responsible_agent_id=$6, can_modify=$7, can_reassign=$8, resolution_summary=$9,
            resolved_at=$10, closed_at=$11, active_flag=$12, updated_at=NOW()
        WHERE id=$13`
	cmd, err := r.pool.Exec(ctx, query,
		claim.ProjectID,
		claim.Title,
		claim.Description,
		claim.State,
		claim.Area,
		claim.ResponsibleID,
		claim.CanModify,
		claim.CanReassign,
		claim.ResolutionSummary,
		claim.ResolvedAt,
		claim.ClosedAt,
		claim.Active,
		claim.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *claimRepository) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *claimRepository) GetByExternalKey(ctx context.Context, key string) (*domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE external_key=$1`
	return r.fetchSingle(ctx, query, key)
}

func (r *claimRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Claim, error) {
	var claim domain.Claim
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&claim.ID,
		&claim.ExternalKey,
		&claim.ClientID,
		&claim.ProjectID,
		&claim.Title,
		&claim.Description,
		&claim.State,
		&claim.Area,
		&claim.ResponsibleID,
		&claim.CanModify,
		&claim.CanReassign,
		&claim.ResolutionSummary,
		&claim.ResolvedAt,
		&claim.ClosedAt,
		&claim.Active,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *claimRepository) ListWithFilter(ctx context.Context, filter ClaimFilter) ([]domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims`
	args := []any{}
	clauses := []string{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id=$%d", len(args)))
	}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		clauses = append(clauses, fmt.Sprintf("project_id=$%d", len(args)))
	}
	if filter.ResponsibleID != nil {
		args = append(args, *filter.ResponsibleID)
		clauses = append(clauses, fmt.Sprintf("responsible_agent_id=$%d", len(args)))
	}
	if filter.Area != nil {
		args = append(args, *filter.Area)
		clauses = append(clauses, fmt.Sprintf("area=$%d", len(args)))
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, 0, len(filter.States))
		for _, state := range filter.States {
			args = append(args, state)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		clauses = append(clauses, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil {
		args = append(args, "%"+*filter.SearchTerm+"%")
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if !filter.IncludeInactive {
		clauses = append(clauses, "active_flag=TRUE")
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Claim
	for rows.Next() {
		var claim domain.Claim
		if err := rows.Scan(
			&claim.ID,
			&claim.ExternalKey,
			&claim.ClientID,
			&claim.ProjectID,
			&claim.Title,
			&claim.Description,
			&claim.State,
			&claim.Area,
			&claim.ResponsibleID,
			&claim.CanModify,
			&claim.CanReassign,
			&claim.ResolutionSummary,
			&claim.ResolvedAt,
			&claim.ClosedAt,
			&claim.Active,
			&claim.CreatedAt,
			&claim.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, claim)
	}
	return result, rows.Err()
}

func (r *claimRepository) CountByState(ctx context.Context) (map[domain.ClaimState]int64, error) {
	const query = `SELECT state, COUNT(*) FROM claims WHERE active_flag=TRUE GROUP BY state`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.ClaimState]int64)
	for rows.Next() {
		var state domain.ClaimState
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		result[state] = count
	}
	return result, rows.Err()
}

func (r *claimRepository) CountByArea(ctx context.Context) (map[domain.ClaimArea]int64, error) {
	const query = `SELECT area, COUNT(*) FROM claims WHERE active_flag=TRUE AND area IS NOT NULL GROUP BY area`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.ClaimArea]int64)
	for rows.Next() {
		var area domain.ClaimArea
		var count int64
		if err := rows.Scan(&area, &count); err != nil {
			return nil, err
		}
		result[area] = count
	}
	return result, rows.Err()
}
