package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/uma-arai/reservasabores/internal/common/models"
	"github.com/uma-arai/reservasabores/internal/model"
	"github.com/uma-arai/reservasabores/internal/service/user"
)

// UserService は認証とユーザー管理のユースケースです
type UserService interface {
	Register(ctx context.Context, in user.RegisterInput) (*model.User, error)
	Login(ctx context.Context, in user.LoginInput) (*user.LoginResult, error)
	Me(ctx context.Context) (*model.User, error)
	List(ctx context.Context) ([]models.UserSummary, error)
	Create(ctx context.Context, in user.CreateUserInput) (*model.User, error)
	Get(ctx context.Context, id string) (*models.UserWithReservations, error)
	Update(ctx context.Context, id string, in user.UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

func (h *Handler) Login(c echo.Context) error {
	var in user.LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}

	result, err := h.users.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, result)
}

func (h *Handler) Register(c echo.Context) error {
	var in user.RegisterInput
	if err := bind(c, &in); err != nil {
		return err
	}

	u, err := h.users.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, u)
}

func (h *Handler) Me(c echo.Context) error {
	u, err := h.users.Me(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	list, err := h.users.List(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, list)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var in user.CreateUserInput
	if err := bind(c, &in); err != nil {
		return err
	}

	u, err := h.users.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, u)
}

func (h *Handler) GetUser(c echo.Context) error {
	u, err := h.users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, u)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	var in user.UpdateUserInput
	if err := bind(c, &in); err != nil {
		return err
	}

	u, err := h.users.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, u)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	if err := h.users.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil)
}
