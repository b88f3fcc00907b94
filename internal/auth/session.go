package auth

import (
	"context"

	"github.com/uma-arai/reservasabores/internal/model"
)

// Session は認証済みリクエストの呼び出し元です
// ミドルウェアがトークンから作成し、リクエストのコンテキストに格納します
type Session struct {
	UserID string
	Email  string
	Name   string
	Role   model.Role
}

func (s Session) IsAdmin() bool {
	return s.Role == model.RoleAdmin
}

// CanAccess は呼び出し元が指定ユーザーの所有物にアクセスできるかを判定します
func (s Session) CanAccess(ownerID string) bool {
	return s.IsAdmin() || s.UserID == ownerID
}

type sessionKey struct{}

// WithSession はセッションをコンテキストに格納します
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext はコンテキストからセッションを取り出します
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// RequireSession はセッションを取り出し、存在しない場合はErrUnauthorizedを返します
func RequireSession(ctx context.Context) (Session, error) {
	s, ok := FromContext(ctx)
	if !ok || s.UserID == "" {
		return Session{}, model.ErrUnauthorized
	}
	return s, nil
}

// RequireAdmin は管理者のセッションを要求します
func RequireAdmin(ctx context.Context) (Session, error) {
	s, err := RequireSession(ctx)
	if err != nil {
		return Session{}, err
	}
	if !s.IsAdmin() {
		return Session{}, model.ErrForbidden
	}
	return s, nil
}
