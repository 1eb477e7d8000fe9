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

// Response helpers. Every endpoint answers with the same envelope.
func successResponse(c echo.Context, msg string, obj interface{}) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Status: true,
		Msg:    msg,
		Obj:    obj,
	})
}

func errorResponse(c echo.Context, code int, msg string) error {
	return c.JSON(code, models.APIResponse{
		Status: false,
		Msg:    msg,
		Obj:    nil,
	})
}

// failure maps a service error to a status code. Unexpected errors are logged
// and reported with the generic message.
func failure(c echo.Context, logger *zap.Logger, err error, msg string) error {
	switch {
	case errors.Is(err, tasks.ErrInvalid):
		return errorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return errorResponse(c, http.StatusNotFound, "Not found")
	case errors.Is(err, repository.ErrConflict):
		return errorResponse(c, http.StatusConflict, err.Error())
	}
	logger.Error(msg, zap.String("path", c.Path()), zap.Error(err))
	return errorResponse(c, http.StatusInternalServerError, msg)
}

func paginatedResponse(data interface{}, total int64, page, limit int) models.PaginatedResponse {
	return models.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		limit = 50
	}
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return pages
}
