package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claimdesk/claims-service/internal/auth"
	"github.com/claimdesk/claims-service/internal/config"
	"github.com/claimdesk/claims-service/internal/domain"
	"github.com/claimdesk/claims-service/internal/repository"
	apperrors "github.com/claimdesk/claims-service/pkg/errorutil"
)

// AuthService coordinates registration, login and password reset flows
// for clients and agents.
type AuthService struct {
	clients    repository.ClientRepository
	agents     repository.AgentRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates repo requirements for the auth service.
type AuthDependencies struct {
	ClientRepo        repository.ClientRepository
	AgentRepo         repository.AgentRepository
	PasswordResetRepo repository.PasswordResetRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		clients:    deps.ClientRepo,
		agents:     deps.AgentRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// RegisterClient creates a new client account and logs it in.
func (s *AuthService) RegisterClient(ctx context.Context, name, email, phone, password string) (*domain.Client, string, time.Time, error) {
	if _, err := s.clients.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	client := &domain.Client{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Status:       domain.ClientStatusActive,
		Active:       true,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(client.ID, domain.SubjectTypeClient, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return client, token, exp, nil
}

// LoginClient authenticates a client.
func (s *AuthService) LoginClient(ctx context.Context, email, password string) (*domain.Client, string, time.Time, error) {
	client, err := s.clients.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !client.Active || client.Status != domain.ClientStatusActive {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account suspended")
	}
	if err := auth.ComparePassword(client.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(client.ID, domain.SubjectTypeClient, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return client, token, exp, nil
}

// LoginAgent authenticates an agent and returns a role-bearing token.
func (s *AuthService) LoginAgent(ctx context.Context, email, password string) (*domain.Agent, string, time.Time, error) {
	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !agent.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("agent inactive")
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(agent.ID, domain.SubjectTypeAgent, &agent.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return agent, token, exp, nil
}

// RequestPasswordReset stores a hashed reset token for the account
// matching the email and returns the plaintext token for delivery. A
// miss returns nil without error so the endpoint does not leak which
// emails exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	subjectType := domain.SubjectTypeClient
	subjectID := ""

	if client, err := s.clients.GetByEmail(ctx, email); err == nil {
		subjectID = client.ID
	} else if errors.Is(err, pgx.ErrNoRows) {
		agent, agentErr := s.agents.GetByEmail(ctx, email)
		if agentErr != nil {
			if errors.Is(agentErr, pgx.ErrNoRows) {
				return "", nil
			}
			return "", apperrors.MapError(agentErr)
		}
		subjectType = domain.SubjectTypeAgent
		subjectID = agent.ID
	} else {
		return "", apperrors.MapError(err)
	}

	plaintext := uuid.NewString()
	reset := &domain.PasswordReset{
		Subject:   subjectType,
		SubjectID: subjectID,
		TokenHash: hashResetToken(plaintext),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return "", apperrors.MapError(err)
	}
	return plaintext, nil
}

// ConfirmPasswordReset consumes a reset token and sets a new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	reset, err := s.resets.GetByTokenHash(ctx, hashResetToken(token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewInvalidArgument("invalid or expired reset token", nil)
		}
		return apperrors.MapError(err)
	}
	if reset.UsedAt != nil || time.Now().After(reset.ExpiresAt) {
		return apperrors.NewInvalidArgument("invalid or expired reset token", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}

	switch reset.Subject {
	case domain.SubjectTypeClient:
		client, err := s.clients.GetByID(ctx, reset.SubjectID)
		if err != nil {
			return apperrors.MapError(err)
		}
		client.PasswordHash = hash
		if err := s.clients.Update(ctx, client); err != nil {
			return apperrors.MapError(err)
		}
	case domain.SubjectTypeAgent:
		agent, err := s.agents.GetByID(ctx, reset.SubjectID)
		if err != nil {
			return apperrors.MapError(err)
		}
		agent.PasswordHash = hash
		if err := s.agents.Update(ctx, agent); err != nil {
			return apperrors.MapError(err)
		}
	default:
		return apperrors.NewInvalidArgument("unknown reset subject", nil)
	}

	return apperrors.MapError(s.resets.MarkUsed(ctx, reset.ID))
}

// ChangePassword verifies the current password before replacing it.
func (s *AuthService) ChangePassword(ctx context.Context, subject domain.SubjectType, subjectID, current, next string) error {
	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}

	switch subject {
	case domain.SubjectTypeClient:
		client, err := s.clients.GetByID(ctx, subjectID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if err := auth.ComparePassword(client.PasswordHash, current); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		client.PasswordHash = hash
		return apperrors.MapError(s.clients.Update(ctx, client))
	case domain.SubjectTypeAgent:
		agent, err := s.agents.GetByID(ctx, subjectID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if err := auth.ComparePassword(agent.PasswordHash, current); err != nil {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		agent.PasswordHash = hash
		return apperrors.MapError(s.agents.Update(ctx, agent))
	}
	return apperrors.NewInvalidArgument("unknown subject", nil)
}

// ListClients pages through active client accounts, for the agent-side
// directory.
func (s *AuthService) ListClients(ctx context.Context, limit, offset int) ([]domain.Client, error) {
	clients, err := s.clients.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return clients, nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
