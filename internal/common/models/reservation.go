package models

import (
	"time"

	"github.com/uma-arai/reservasabores/internal/model"
)

// OwnerSummary は予約に付随する予約者の情報です
type OwnerSummary struct {
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// ReservationWithOwner は予約者情報を含む予約の読み取りモデルです
// usersテーブルと結合したクエリの結果をそのまま受け取ります
type ReservationWithOwner struct {
	model.Reservation
	User OwnerSummary `json:"user" db:"user"`
}

// UserSummary はユーザー一覧で返す予約件数付きのユーザー情報です
type UserSummary struct {
	ID               string     `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Email            string     `json:"email" db:"email"`
	Role             model.Role `json:"role" db:"role"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	ReservationCount int        `json:"reservation_count" db:"reservation_count"`
}

// UserWithReservations はユーザー詳細で返す予約一覧付きのユーザー情報です
type UserWithReservations struct {
	model.User
	Reservations []model.Reservation `json:"reservations"`
}

// ReservationFilter は管理画面の予約一覧の絞り込み条件です
type ReservationFilter struct {
	Status model.ReservationStatus
	Date   model.Date
	// Query は予約者の氏名・メールアドレスの部分一致検索です
	Query string
}
