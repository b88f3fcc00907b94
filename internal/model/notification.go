package model

import (
	"fmt"
	"time"
)

// NotificationType は通知の種類を表します
type NotificationType string

const (
	// NotificationTypeReservation は予約関連の通知を表します
	NotificationTypeReservation NotificationType = "reservation"
	// NotificationTypeCommon は共通の通知を表します
	NotificationTypeCommon NotificationType = "common"
)

// Notification はバッチが受け取る通知の入力です
// アプリケーションサービス層で利用されます
type Notification struct {
	Type      NotificationType  `json:"type"`
	CreatedAt time.Time         `json:"created_at"`
	Event     *ReservationEvent `json:"event,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
}

// NotificationRecord は通知のドメインモデルです
// データベースに永続化される通知レコードと一致しています
type NotificationRecord struct {
	ID        int              `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	Type      NotificationType `json:"type" db:"type"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// RecipientID は通知の宛先ユーザーIDを返します
func (n Notification) RecipientID() string {
	if n.Event != nil {
		return n.Event.UserID
	}
	return n.UserID
}

// ToNotificationRecord は通知を通知レコードに変換します
// userNameMapはユーザーIDから氏名への対応表です
func (n Notification) ToNotificationRecord(userNameMap map[string]string) (*NotificationRecord, error) {
	userID := n.RecipientID()
	if userID == "" {
		return nil, fmt.Errorf("notification has no recipient")
	}

	if n.Type == NotificationTypeReservation {
		if n.Event == nil {
			return nil, fmt.Errorf("reservation notification without event")
		}
		name, ok := userNameMap[userID]
		if !ok {
			return nil, fmt.Errorf("user_id %s not found in userNameMap", userID)
		}

		title, message := reservationMessage(name, *n.Event)
		return &NotificationRecord{
			UserID:    userID,
			Title:     title,
			Message:   message,
			IsRead:    false,
			Type:      NotificationTypeReservation,
			CreatedAt: n.CreatedAt,
			UpdatedAt: n.CreatedAt,
		}, nil
	}

	return &NotificationRecord{
		UserID:    userID,
		Title:     "Tienes un nuevo aviso",
		Message:   "Hay novedades en tu cuenta.",
		IsRead:    false,
		Type:      NotificationTypeCommon,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.CreatedAt,
	}, nil
}

func reservationMessage(name string, e ReservationEvent) (string, string) {
	detail := fmt.Sprintf("Fecha: %s\nHora: %s\nPersonas: %d", e.Date, e.Time, e.Guests)

	switch e.Type {
	case EventReservationCancelled:
		return "Reserva cancelada",
			fmt.Sprintf("Hola %s, tu reserva ha sido cancelada.\n%s", name, detail)
	case EventReservationCompleted:
		return "Gracias por tu visita",
			fmt.Sprintf("Hola %s, esperamos que hayas disfrutado de tu experiencia.\n%s", name, detail)
	case EventReservationUpdated:
		return "Reserva actualizada",
			fmt.Sprintf("Hola %s, tu reserva ha sido actualizada.\n%s", name, detail)
	default:
		return "Reserva confirmada",
			fmt.Sprintf("Hola %s, tu reserva está confirmada.\n%s", name, detail)
	}
}

// NewReservationNotification は予約イベントから通知を作成します
func NewReservationNotification(event ReservationEvent) Notification {
	return Notification{
		Type:      NotificationTypeReservation,
		CreatedAt: event.CreatedAt,
		Event:     &event,
	}
}
