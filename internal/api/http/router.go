package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/claimdesk/claims-service/internal/api/http/handlers"
	"github.com/claimdesk/claims-service/internal/auth"
	"github.com/claimdesk/claims-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Claims         *handlers.ClaimsHandler
	AgentClaims    *handlers.AgentClaimsHandler
	Projects       *handlers.ProjectsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/clients/register", cfg.Auth.RegisterClient)
	authGroup.Post("/clients/login", cfg.Auth.LoginClient)
	authGroup.Post("/agents/login", cfg.Auth.LoginAgent)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Auth.ChangePassword)

	// Informational, no side effects.
	app.Get("/claims/states", cfg.Claims.DescribeStates)

	projectGroup := app.Group("/projects", cfg.AuthMiddleware.Handle, auth.RequireClient())
	projectGroup.Post("", cfg.Projects.CreateProject)
	projectGroup.Get("", cfg.Projects.ListProjects)
	projectGroup.Get("/:id", cfg.Projects.GetProject)
	projectGroup.Patch("/:id", cfg.Projects.UpdateProject)

	clientGroup := app.Group("/claims", cfg.AuthMiddleware.Handle, auth.RequireClient())
	clientGroup.Post("", cfg.Claims.CreateClaim)
	clientGroup.Get("", cfg.Claims.ListClaims)
	clientGroup.Get("/:id", cfg.Claims.GetClaim)
	clientGroup.Patch("/:id", cfg.Claims.UpdateClaim)
	clientGroup.Delete("/:id", cfg.Claims.DeleteClaim)
	clientGroup.Post("/:id/comments", cfg.Claims.AddComment)
	clientGroup.Get("/:id/history", cfg.Claims.GetHistory)

	agentGroup := app.Group("/agent/claims", cfg.AuthMiddleware.Handle, auth.RequireAgentRole())
	agentGroup.Get("", cfg.AgentClaims.ListClaims)
	agentGroup.Get("/stats", cfg.AgentClaims.Stats)
	agentGroup.Get("/:id", cfg.AgentClaims.GetClaim)
	agentGroup.Post("/:id/state", cfg.AgentClaims.ChangeState)
	agentGroup.Post("/:id/assign",
		auth.RequireAgentRole(domain.AgentRoleSupervisor, domain.AgentRoleAdmin),
		cfg.AgentClaims.AssignClaim)
	agentGroup.Get("/:id/history", cfg.AgentClaims.GetHistory)
	agentGroup.Post("/:id/comments", cfg.AgentClaims.AddComment)

	app.Get("/agent/clients", cfg.AuthMiddleware.Handle,
		auth.RequireAgentRole(domain.AgentRoleSupervisor, domain.AgentRoleAdmin),
		cfg.Auth.ListClients)
}
