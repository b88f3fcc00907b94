package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/uma-arai/reservasabores/internal/model"
)

type NotificationService interface {
	ListMine(ctx context.Context) ([]model.NotificationRecord, error)
	MarkAsRead(ctx context.Context, id int) error
}

func (h *Handler) ListNotifications(c echo.Context) error {
	list, err := h.notifications.ListMine(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, list)
}

func (h *Handler) MarkNotificationAsRead(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return model.NewValidationError("id", "must be a number")
	}
	if err := h.notifications.MarkAsRead(c.Request().Context(), id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil)
}
