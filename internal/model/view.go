package model

import "fmt"

// ReservationView はマイページで予約を振り分ける区分です
type ReservationView string

const (
	ViewUpcoming  ReservationView = "upcoming"
	ViewPast      ReservationView = "past"
	ViewCancelled ReservationView = "cancelled"
)

// ParseReservationView は区分を表す文字列を変換します。空文字は全件を意味します
func ParseReservationView(s string) (ReservationView, error) {
	switch v := ReservationView(s); v {
	case "", ViewUpcoming, ViewPast, ViewCancelled:
		return v, nil
	default:
		return "", NewValidationError("view", fmt.Sprintf("unknown view %q", s))
	}
}

// ClassifyReservation は予約がどの区分に属するかを返します
// キャンセル済みの予約はcancelledにのみ属し、upcomingには決して含まれません
func ClassifyReservation(r Reservation, today Date) ReservationView {
	switch {
	case r.Status == StatusCancelled:
		return ViewCancelled
	case r.Status == StatusCompleted, r.Date.Before(today):
		return ViewPast
	default:
		return ViewUpcoming
	}
}

// FilterReservations は指定区分の予約だけを返します
func FilterReservations(reservations []Reservation, view ReservationView, today Date) []Reservation {
	if view == "" {
		return reservations
	}
	filtered := make([]Reservation, 0, len(reservations))
	for _, r := range reservations {
		if ClassifyReservation(r, today) == view {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
