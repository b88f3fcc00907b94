package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/uma-arai/reservasabores/internal/model"
)

// Response は全てのAPIが返す共通のエンベロープです
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

// statusBySentinel はドメインエラーとHTTPステータスの対応です
var statusBySentinel = []struct {
	err    error
	status int
}{
	{model.ErrInvalidCredentials, http.StatusUnauthorized},
	{model.ErrUnauthorized, http.StatusUnauthorized},
	{model.ErrForbidden, http.StatusForbidden},
	{model.ErrReservationNotFound, http.StatusNotFound},
	{model.ErrUserNotFound, http.StatusNotFound},
	{model.ErrNotificationNotFound, http.StatusNotFound},
	{model.ErrEmailTaken, http.StatusConflict},
	{model.ErrSlotFull, http.StatusConflict},
	{model.ErrInvalidStatusTransition, http.StatusConflict},
	{model.ErrReservationClosed, http.StatusConflict},
	{model.ErrSelfModification, http.StatusConflict},
}

// errorStatus はエラーをHTTPステータスとクライアントに返すメッセージに変換します
// 想定外のエラーの詳細はクライアントに返しません
func errorStatus(err error) (int, string) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Error()
	}
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.status, s.err.Error()
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}
	return http.StatusInternalServerError, "internal server error"
}

// ErrorHandler はechoのHTTPErrorHandlerです
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Request %s %s failed: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, Response{Success: false, Error: message})
	}
	if err != nil {
		log.Printf("Failed to write error response: %v", err)
	}
}

// bind はリクエストボディを読み込みます。不正なボディは検証エラーとして扱います
func bind(c echo.Context, v any) error {
	err := c.Bind(v)
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Internal != nil && model.IsValidationError(he.Internal) {
		return he.Internal
	}
	return model.NewValidationError("", "invalid request body")
}
