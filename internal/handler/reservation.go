package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/uma-arai/reservasabores/internal/common/models"
	"github.com/uma-arai/reservasabores/internal/model"
	"github.com/uma-arai/reservasabores/internal/service/reservation"
)

// ReservationService は予約のユースケースです
type ReservationService interface {
	AvailableSlots(ctx context.Context, date string, guests int) ([]string, error)
	Create(ctx context.Context, in reservation.CreateInput) (*model.Reservation, error)
	Get(ctx context.Context, id string) (*models.ReservationWithOwner, error)
	Update(ctx context.Context, id string, in reservation.UpdateInput) (*model.Reservation, error)
	Cancel(ctx context.Context, id string) (*model.Reservation, error)
	Delete(ctx context.Context, id string) error
	ListMine(ctx context.Context, view string) ([]model.Reservation, error)
	ListAll(ctx context.Context, filter reservation.ListFilter) ([]models.ReservationWithOwner, error)
}

// AvailableSlots は GET /api/reservations/available-slots?date=YYYY-MM-DD&guests=N
func (h *Handler) AvailableSlots(c echo.Context) error {
	guests, err := strconv.Atoi(c.QueryParam("guests"))
	if err != nil {
		return model.NewValidationError("guests", "must be a positive number")
	}

	slots, err := h.reservations.AvailableSlots(c.Request().Context(), c.QueryParam("date"), guests)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, slots)
}

func (h *Handler) CreateReservation(c echo.Context) error {
	var in reservation.CreateInput
	if err := bind(c, &in); err != nil {
		return err
	}

	r, err := h.reservations.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, r)
}

func (h *Handler) GetReservation(c echo.Context) error {
	r, err := h.reservations.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, r)
}

// UpdateReservation は送られた項目だけを更新します。キャンセルもここで受け付けます
func (h *Handler) UpdateReservation(c echo.Context) error {
	var in reservation.UpdateInput
	if err := bind(c, &in); err != nil {
		return err
	}

	r, err := h.reservations.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, r)
}

func (h *Handler) CancelReservation(c echo.Context) error {
	r, err := h.reservations.Cancel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, r)
}

func (h *Handler) DeleteReservation(c echo.Context) error {
	if err := h.reservations.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil)
}

// ListMyReservations は GET /api/reservations/user?view=upcoming|past|cancelled
func (h *Handler) ListMyReservations(c echo.Context) error {
	list, err := h.reservations.ListMine(c.Request().Context(), c.QueryParam("view"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, list)
}

// ListReservations は管理画面向けの一覧です
func (h *Handler) ListReservations(c echo.Context) error {
	list, err := h.reservations.ListAll(c.Request().Context(), reservation.ListFilter{
		Status: c.QueryParam("status"),
		Date:   c.QueryParam("date"),
		Query:  c.QueryParam("q"),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, list)
}
