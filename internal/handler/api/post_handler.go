package api

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"launchpad/internal/models"
	"launchpad/internal/repository"
	"launchpad/internal/tasks"
)

// PostHandler serves social post endpoints.
type PostHandler struct {
	repos  *tasks.Repos
	svc    *tasks.Service
	logger *zap.Logger
}

func NewPostHandler(repos *tasks.Repos, svc *tasks.Service, logger *zap.Logger) *PostHandler {
	return &PostHandler{repos: repos, svc: svc, logger: logger}
}

// Create handles POST /api/posts
func (h *PostHandler) Create(c echo.Context) error {
	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	post, err := h.svc.CreatePost(c.Request().Context(), req)
	if err != nil {
		return failure(c, h.logger, err, "Failed to create post")
	}
	return successResponse(c, "Successful", post)
}

// List handles GET /api/posts
func (h *PostHandler) List(c echo.Context) error {
	var req models.PostsListRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid query")
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = 50
	}

	posts, total, err := h.repos.Posts.List(c.Request().Context(), repository.PostFilter{
		UserID:     req.UserID,
		CampaignID: req.CampaignID,
		Platform:   req.Platform,
		Status:     req.Status,
	}, req.Page, req.Limit)
	if err != nil {
		return failure(c, h.logger, err, "Failed to retrieve posts")
	}
	return successResponse(c, "Successful", paginatedResponse(posts, total, req.Page, req.Limit))
}

type postDetail struct {
	*models.SocialPost
	EngagementRate float64              `json:"engagement_rate"`
	Schedule       *models.PostSchedule `json:"schedule,omitempty"`
}

// Get handles GET /api/posts/:id
func (h *PostHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.repos.Posts.FindByID(ctx, c.Param("id"))
	if err != nil {
		return failure(c, h.logger, err, "Failed to retrieve post")
	}

	detail := postDetail{SocialPost: post, EngagementRate: post.EngagementRate()}
	schedule, err := h.repos.Schedules.FindByPostID(ctx, post.ID)
	switch {
	case err == nil:
		detail.Schedule = schedule
	case !errors.Is(err, repository.ErrNotFound):
		h.logger.Warn("Failed to load post schedule", zap.String("post_id", post.ID), zap.Error(err))
	}
	return successResponse(c, "Successful", detail)
}

// Publish handles POST /api/posts/:id/publish
func (h *PostHandler) Publish(c echo.Context) error {
	post, err := h.svc.SubmitPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failure(c, h.logger, err, "Failed to submit post")
	}
	return successResponse(c, "Post submitted for publishing", post)
}

// Bulk handles POST /api/posts/bulk
func (h *PostHandler) Bulk(c echo.Context) error {
	var req models.BulkScheduleRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	if len(req.Posts) == 0 {
		return errorResponse(c, http.StatusBadRequest, "posts are required")
	}
	results := h.svc.BulkSchedulePosts(c.Request().Context(), req.UserID, req.Posts)
	return successResponse(c, "Successful", results)
}
