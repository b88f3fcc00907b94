package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ReservationStatus は予約のステータスです
type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// ParseReservationStatus は文字列を予約ステータスに変換します
func ParseReservationStatus(s string) (ReservationStatus, error) {
	status := ReservationStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", NewValidationError("status", fmt.Sprintf("unknown status %q", s))
	}
	return status, nil
}

func (s ReservationStatus) IsValid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsTerminal はキャンセル済み・完了済みのように以降変更できない状態かを返します
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransitionTo はステータス遷移が許可されているかを判定します
// confirmed → cancelled / completed のみ許可し、同じステータスへの遷移は何もしない扱いです
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	return s == StatusConfirmed && next.IsTerminal()
}

const (
	// DefaultOccasion は機会が指定されなかった場合の値です
	DefaultOccasion = "Ninguna"
	// MaxSpecialLength は特別リクエストの最大文字数です
	MaxSpecialLength = 500
)

// Occasions は予約フォームで選択できる機会の一覧です
var Occasions = []string{
	DefaultOccasion,
	"Cumpleaños",
	"Aniversario",
	"Reunión de negocios",
	"Cena romántica",
	"Celebración especial",
}

// Reservation はテーブル予約のドメインモデルです
type Reservation struct {
	ID        string            `json:"id" db:"id"`
	UserID    string            `json:"user_id" db:"user_id"`
	Date      Date              `json:"date" db:"date"`
	Time      string            `json:"time" db:"time_slot"`
	Guests    int               `json:"guests" db:"guests"`
	Occasion  string            `json:"occasion" db:"occasion"`
	Special   string            `json:"special" db:"special"`
	Status    ReservationStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// ApplyDefaults は未指定の項目に既定値を設定します
func (r *Reservation) ApplyDefaults() {
	r.Occasion = strings.TrimSpace(r.Occasion)
	if r.Occasion == "" {
		r.Occasion = DefaultOccasion
	}
	if r.Status == "" {
		r.Status = StatusConfirmed
	}
}

// Validate は予約内容を検証します
func (r *Reservation) Validate() error {
	if r.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	if r.Time == "" {
		return NewValidationError("time", "is required")
	}
	if !IsValidSlot(r.Time) {
		return NewValidationError("time", fmt.Sprintf("%q is not a bookable time slot", r.Time))
	}
	if err := ValidateGuests(r.Guests); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Special) > MaxSpecialLength {
		return NewValidationError("special", fmt.Sprintf("must be at most %d characters", MaxSpecialLength))
	}
	if !r.Status.IsValid() {
		return NewValidationError("status", fmt.Sprintf("unknown status %q", r.Status))
	}
	return nil
}

// ValidateGuests は人数が1以上かつ1枠の収容人数以下であることを検証します
func ValidateGuests(guests int) error {
	if guests <= 0 {
		return NewValidationError("guests", "must be a positive number")
	}
	if guests > MaxCapacityPerSlot {
		return NewValidationError("guests", fmt.Sprintf("must be at most %d", MaxCapacityPerSlot))
	}
	return nil
}

// EventType は予約イベントの種類です
type EventType string

const (
	EventReservationCreated   EventType = "created"
	EventReservationUpdated   EventType = "updated"
	EventReservationCancelled EventType = "cancelled"
	EventReservationCompleted EventType = "completed"
)

// ReservationEvent は予約のライフサイクルで発行されるイベントの構造体
type ReservationEvent struct {
	Type          EventType         `json:"type"`
	ReservationID string            `json:"reservation_id"`
	UserID        string            `json:"user_id"`
	Date          Date              `json:"date"`
	Time          string            `json:"time"`
	Guests        int               `json:"guests"`
	Status        ReservationStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewReservationEvent は予約からイベントを作成します
func NewReservationEvent(eventType EventType, r Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          eventType,
		ReservationID: r.ID,
		UserID:        r.UserID,
		Date:          r.Date,
		Time:          r.Time,
		Guests:        r.Guests,
		Status:        r.Status,
		CreatedAt:     at,
	}
}

// RoutingKey はメッセージブローカーで利用するルーティングキーを返します
func (e ReservationEvent) RoutingKey() string {
	return "reservation." + string(e.Type)
}

// EventTypeForStatus はステータス変更に対応するイベント種別を返します
func EventTypeForStatus(status ReservationStatus) EventType {
	switch status {
	case StatusCancelled:
		return EventReservationCancelled
	case StatusCompleted:
		return EventReservationCompleted
	default:
		return EventReservationUpdated
	}
}
