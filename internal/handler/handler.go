package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/uma-arai/reservasabores/internal/menu"
)

// HealthChecker はデータベースの疎通確認を行います
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// Handler はAPIのハンドラーをまとめたものです
type Handler struct {
	reservations  ReservationService
	users         UserService
	notifications NotificationService
	menu          *menu.Menu
	health        HealthChecker
}

// NewHandler は新しいHandlerを作成します
func NewHandler(reservations ReservationService, users UserService, notifications NotificationService, m *menu.Menu, health HealthChecker) *Handler {
	return &Handler{
		reservations:  reservations,
		users:         users,
		notifications: notifications,
		menu:          m,
		health:        health,
	}
}

// Health はデータベースに接続できる場合に200を返します
func (h *Handler) Health(c echo.Context) error {
	if err := h.health.PingContext(c.Request().Context()); err != nil {
		log.Printf("Health check failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "database unavailable"})
	}
	return respond(c, http.StatusOK, map[string]string{"status": "ok"})
}

// Menu はメニューを返します
func (h *Handler) Menu(c echo.Context) error {
	return respond(c, http.StatusOK, h.menu)
}
