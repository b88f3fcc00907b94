package reservation

import (
	"strings"
	"time"

	"github.com/uma-arai/reservasabores/internal/model"
)

// applyUpdate は現在の予約に入力をマージした結果を返します
func applyUpdate(current model.Reservation, in UpdateInput, today model.Date, now time.Time) (model.Reservation, error) {
	next := current

	if in.Date != nil {
		next.Date = *in.Date
	}
	if in.Time != nil {
		next.Time = strings.TrimSpace(*in.Time)
	}
	if in.Guests != nil {
		next.Guests = *in.Guests
	}
	if in.Occasion != nil {
		next.Occasion = *in.Occasion
	}
	if in.Special != nil {
		next.Special = strings.TrimSpace(*in.Special)
	}
	next.ApplyDefaults()

	if detailsChanged(current, next) {
		if current.Status != model.StatusConfirmed {
			return current, model.ErrReservationClosed
		}
		if !next.Date.Equal(current.Date) && next.Date.Before(today) {
			return current, model.NewValidationError("date", "must not be in the past")
		}
	}

	if in.Status != nil {
		status, err := model.ParseReservationStatus(string(*in.Status))
		if err != nil {
			return current, err
		}
		if !current.Status.CanTransitionTo(status) {
			return current, model.ErrInvalidStatusTransition
		}
		next.Status = status
	}

	if err := next.Validate(); err != nil {
		return current, err
	}

	next.UpdatedAt = now
	return next, nil
}

func detailsChanged(a, b model.Reservation) bool {
	return !a.Date.Equal(b.Date) ||
		a.Time != b.Time ||
		a.Guests != b.Guests ||
		a.Occasion != b.Occasion ||
		a.Special != b.Special
}

// changeEvent は更新前後の予約から発行するイベントの種類を決めます
func changeEvent(before, after model.Reservation) (model.EventType, bool) {
	if before.Status != after.Status {
		return model.EventTypeForStatus(after.Status), true
	}
	if detailsChanged(before, after) {
		return model.EventReservationUpdated, true
	}
	return "", false
}
