package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/uma-arai/reservasabores/internal/auth"
	"github.com/uma-arai/reservasabores/internal/model"
)

// TokenValidator はBearerトークンを検証してセッションを返します
type TokenValidator interface {
	Validate(token string) (auth.Session, error)
}

// UserLookup はトークンの利用者を取得します
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Authenticate はAuthorizationヘッダーのBearerトークンを検証し、
// セッションをリクエストのコンテキストに格納します
// ロールはトークンではなく現在のユーザー情報から取得します
func Authenticate(tokens TokenValidator, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return model.ErrUnauthorized
			}

			claims, err := tokens.Validate(strings.TrimSpace(token))
			if err != nil {
				return err
			}

			req := c.Request()
			user, err := users.GetByID(req.Context(), claims.UserID)
			if errors.Is(err, model.ErrUserNotFound) {
				return model.ErrUnauthorized
			}
			if err != nil {
				return err
			}
			session := auth.Session{UserID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}

			c.SetRequest(req.WithContext(auth.WithSession(req.Context(), session)))
			return next(c)
		}
	}
}

// RequireAdmin は管理者以外のリクエストを拒否します
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.RequireAdmin(c.Request().Context()); err != nil {
			return err
		}
		return next(c)
	}
}
