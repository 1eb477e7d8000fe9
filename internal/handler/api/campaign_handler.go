package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"launchpad/internal/models"
	"launchpad/internal/tasks"
)

// CampaignHandler serves campaign endpoints.
type CampaignHandler struct {
	repos  *tasks.Repos
	svc    *tasks.Service
	logger *zap.Logger
}

func NewCampaignHandler(repos *tasks.Repos, svc *tasks.Service, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{repos: repos, svc: svc, logger: logger}
}

// Create handles POST /api/campaigns
func (h *CampaignHandler) Create(c echo.Context) error {
	var req models.CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return errorResponse(c, http.StatusBadRequest, "name is required")
	}
	for _, p := range req.Platforms {
		if !models.Platform(p).Valid() {
			return errorResponse(c, http.StatusBadRequest, "unsupported platform "+p)
		}
	}

	templates := datatypes.JSONMap{}
	for k, v := range req.ContentTemplates {
		templates[k] = v
	}
	campaign := &models.Campaign{
		UserID:           req.UserID,
		Name:             req.Name,
		Description:      req.Description,
		Platforms:        datatypes.JSONSlice[string](req.Platforms),
		ContentTemplates: templates,
		UseAIContent:     req.UseAIContent,
		AITone:           req.AITone,
		AIGuidelines:     req.AIGuidelines,
	}
	if err := h.repos.Campaigns.Create(c.Request().Context(), campaign); err != nil {
		return failure(c, h.logger, err, "Failed to create campaign")
	}
	return successResponse(c, "Successful", campaign)
}

// Generate handles POST /api/campaigns/:id/generate
func (h *CampaignHandler) Generate(c echo.Context) error {
	items, err := h.svc.GenerateCampaignContent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failure(c, h.logger, err, "Failed to generate campaign content")
	}
	if items == nil {
		items = []*models.AIInteraction{}
	}
	return successResponse(c, "Queued content generation", items)
}
