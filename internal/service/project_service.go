package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/claimdesk/claims-service/internal/domain"
	"github.com/claimdesk/claims-service/internal/repository"
	apperrors "github.com/claimdesk/claims-service/pkg/errorutil"
)

// ProjectService manages the projects a client can file claims
// against. Projects are always scoped to the authenticated client;
// cross-client access is never allowed here.
type ProjectService struct {
	projects repository.ProjectRepository
}

// NewProjectService constructs the service.
func NewProjectService(projects repository.ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects}
}

// ProjectCreateInput describes project creation payload.
type ProjectCreateInput struct {
	Name        string
	Description string
}

// ProjectUpdateInput describes editable project fields. Nil fields are
// left untouched. Setting Active to false archives the project; its
// existing claims keep their reference.
type ProjectUpdateInput struct {
	Name        *string
	Description *string
	Active      *bool
}

// CreateProject registers a new active project for the client.
func (s *ProjectService) CreateProject(ctx context.Context, clientID string, input ProjectCreateInput) (*domain.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewInvalidArgument("project name required", nil)
	}
	project := &domain.Project{
		ClientID:    clientID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Active:      true,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, apperrors.MapError(err)
	}
	return project, nil
}

// GetProject fetches one project, enforcing ownership.
func (s *ProjectService) GetProject(ctx context.Context, clientID, projectID string) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("project", map[string]any{"project_id": projectID})
		}
		return nil, apperrors.MapError(err)
	}
	if project.ClientID != clientID {
		return nil, apperrors.NewForbidden("project belongs to another client")
	}
	return project, nil
}

// ListProjects returns the client's active projects.
func (s *ProjectService) ListProjects(ctx context.Context, clientID string) ([]domain.Project, error) {
	projects, err := s.projects.ListActiveByClient(ctx, clientID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return projects, nil
}

// UpdateProject edits project fields, enforcing ownership.
func (s *ProjectService) UpdateProject(ctx context.Context, clientID, projectID string, input ProjectUpdateInput) (*domain.Project, error) {
	project, err := s.GetProject(ctx, clientID, projectID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewInvalidArgument("project name required", nil)
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = strings.TrimSpace(*input.Description)
	}
	if input.Active != nil {
		project.Active = *input.Active
	}
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, apperrors.MapError(err)
	}
	return project, nil
}
