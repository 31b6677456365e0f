package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storepay/internal/models"
	"storepay/internal/repository"
)

// Response helpers for the /api JSON envelope.
func successResponse(c echo.Context, msg string, obj interface{}) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Status: true,
		Msg:    msg,
		Obj:    obj,
	})
}

func errorResponse(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Status: false,
		Msg:    msg,
		Obj:    nil,
	})
}

func paginatedResponse(data interface{}, total int64, page, limit int) models.PaginatedResponse {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return models.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: pages,
	}
}

// Repos bundles the repositories API handlers read from directly.
type Repos struct {
	User    *repository.UserRepository
	Order   *repository.OrderRepository
	Payment *repository.PaymentRepository
	Log     *repository.LogRepository
}
