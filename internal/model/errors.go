package model

import (
	"errors"
	"fmt"
)

var (
	// ErrReservationNotFound は予約が存在しない場合のエラーです
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrUserNotFound はユーザーが存在しない場合のエラーです
	ErrUserNotFound = errors.New("user not found")
	// ErrNotificationNotFound は通知が存在しない場合のエラーです
	ErrNotificationNotFound = errors.New("notification not found")

	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken はメールアドレスが既に登録されている場合のエラーです
	ErrEmailTaken = errors.New("email is already registered")
	// ErrSlotFull は時間枠の収容人数を超える場合のエラーです
	ErrSlotFull = errors.New("time slot has no capacity left for this party size")
	// ErrInvalidStatusTransition は許可されていないステータス遷移のエラーです
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	// ErrReservationClosed は確定状態以外の予約を編集しようとした場合のエラーです
	ErrReservationClosed = errors.New("reservation is no longer editable")
	// ErrSelfModification は管理者が自分自身を削除・降格しようとした場合のエラーです
	ErrSelfModification = errors.New("admins cannot delete or demote their own account")
)

// ValidationError は入力値の検証エラーです
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError は検証エラーを作成します
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError はエラーが検証エラーかどうかを判定します
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
