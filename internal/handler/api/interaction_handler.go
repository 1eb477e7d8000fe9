package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"launchpad/internal/models"
	"launchpad/internal/tasks"
)

// InteractionHandler serves AI generation endpoints.
type InteractionHandler struct {
	repos  *tasks.Repos
	svc    *tasks.Service
	logger *zap.Logger
}

func NewInteractionHandler(repos *tasks.Repos, svc *tasks.Service, logger *zap.Logger) *InteractionHandler {
	return &InteractionHandler{repos: repos, svc: svc, logger: logger}
}

// Create handles POST /api/interactions
func (h *InteractionHandler) Create(c echo.Context) error {
	var req models.CreateInteractionRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	i, err := h.svc.SubmitGeneration(c.Request().Context(), req)
	if err != nil {
		return failure(c, h.logger, err, "Failed to submit generation")
	}
	return successResponse(c, "Successful", i)
}

// Get handles GET /api/interactions/:id
func (h *InteractionHandler) Get(c echo.Context) error {
	i, err := h.repos.Interactions.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failure(c, h.logger, err, "Failed to retrieve interaction")
	}
	return successResponse(c, "Successful", i)
}

// Batch handles POST /api/interactions/batch
func (h *InteractionHandler) Batch(c echo.Context) error {
	var req models.BatchGenerateRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	items, err := h.svc.BatchGenerate(c.Request().Context(), req)
	if err != nil && items == nil {
		return failure(c, h.logger, err, "Failed to submit batch")
	}
	if err != nil {
		h.logger.Warn("Batch partially submitted", zap.Error(err))
		return c.JSON(http.StatusOK, models.APIResponse{Status: false, Msg: err.Error(), Obj: items})
	}
	return successResponse(c, "Successful", items)
}

// Guidance handles POST /api/agents/guidance
func (h *InteractionHandler) Guidance(c echo.Context) error {
	var req models.LaunchGuidanceRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	i, err := h.svc.LaunchGuidance(c.Request().Context(), req)
	if err != nil {
		return failure(c, h.logger, err, "Failed to request launch guidance")
	}
	return successResponse(c, "Successful", i)
}

// Moderate handles POST /api/agents/moderation
func (h *InteractionHandler) Moderate(c echo.Context) error {
	var req models.ModerationRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	i, err := h.svc.ModerateContent(c.Request().Context(), req)
	if err != nil {
		return failure(c, h.logger, err, "Failed to request moderation")
	}
	return successResponse(c, "Successful", i)
}

// Answer handles POST /api/agents/questions
func (h *InteractionHandler) Answer(c echo.Context) error {
	var req models.QuestionRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	i, err := h.svc.AnswerQuestion(c.Request().Context(), req)
	if err != nil {
		return failure(c, h.logger, err, "Failed to submit question")
	}
	return successResponse(c, "Successful", i)
}
