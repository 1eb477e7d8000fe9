package api

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"launchpad/internal/tasks"
)

type AgentHandler struct {
	repos  *tasks.Repos
	logger *zap.Logger
}

func NewAgentHandler(repos *tasks.Repos, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{repos: repos, logger: logger}
}

// List handles GET /api/agents
func (h *AgentHandler) List(c echo.Context) error {
	agents, err := h.repos.Agents.ListActive(c.Request().Context())
	if err != nil {
		return failure(c, h.logger, err, "Failed to retrieve agents")
	}
	return successResponse(c, "Successful", agents)
}
