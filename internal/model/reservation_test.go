package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReservationStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from ReservationStatus
		to   ReservationStatus
		want bool
	}{
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusConfirmed, true},
		{StatusCancelled, StatusCancelled, true},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCompleted, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusConfirmed, ReservationStatus("pending"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseReservationStatus(t *testing.T) {
	got, err := ParseReservationStatus(" Cancelled ")
	if err != nil {
		t.Fatalf("ParseReservationStatus() error = %v", err)
	}
	if got != StatusCancelled {
		t.Errorf("ParseReservationStatus() = %v, want %v", got, StatusCancelled)
	}

	if _, err := ParseReservationStatus("pending"); !IsValidationError(err) {
		t.Errorf("ParseReservationStatus(pending) error = %v, want validation error", err)
	}
}

func TestReservation_Validate(t *testing.T) {
	valid := func() Reservation {
		r := Reservation{
			Date:   NewDate(2025, time.June, 1),
			Time:   "20:00",
			Guests: 2,
		}
		r.ApplyDefaults()
		return r
	}

	tests := []struct {
		name    string
		mutate  func(r *Reservation)
		wantErr string
	}{
		{name: "正常系", mutate: func(r *Reservation) {}},
		{name: "日付なし", mutate: func(r *Reservation) { r.Date = Date{} }, wantErr: "date"},
		{name: "時間なし", mutate: func(r *Reservation) { r.Time = "" }, wantErr: "time"},
		{name: "営業時間外の枠", mutate: func(r *Reservation) { r.Time = "17:00" }, wantErr: "time"},
		{name: "人数0", mutate: func(r *Reservation) { r.Guests = 0 }, wantErr: "guests"},
		{name: "人数がマイナス", mutate: func(r *Reservation) { r.Guests = -3 }, wantErr: "guests"},
		{name: "人数が収容人数超過", mutate: func(r *Reservation) { r.Guests = MaxCapacityPerSlot + 1 }, wantErr: "guests"},
		{name: "特別リクエストが長すぎる", mutate: func(r *Reservation) { r.Special = strings.Repeat("a", MaxSpecialLength+1) }, wantErr: "special"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantErr {
				t.Errorf("Validate() field = %v, want %v", ve.Field, tt.wantErr)
			}
		})
	}
}

func TestReservation_ApplyDefaults(t *testing.T) {
	r := Reservation{Occasion: "   "}
	r.ApplyDefaults()

	if r.Occasion != DefaultOccasion {
		t.Errorf("Occasion = %v, want %v", r.Occasion, DefaultOccasion)
	}
	if r.Status != StatusConfirmed {
		t.Errorf("Status = %v, want %v", r.Status, StatusConfirmed)
	}
	if r.Special != "" {
		t.Errorf("Special = %q, want empty", r.Special)
	}
}

func TestReservationEvent_RoutingKey(t *testing.T) {
	r := Reservation{ID: "res1", UserID: "user1", Status: StatusCancelled}
	event := NewReservationEvent(EventTypeForStatus(r.Status), r, time.Now())

	if event.RoutingKey() != "reservation.cancelled" {
		t.Errorf("RoutingKey() = %v, want reservation.cancelled", event.RoutingKey())
	}
	if EventTypeForStatus(StatusConfirmed) != EventReservationUpdated {
		t.Errorf("EventTypeForStatus(confirmed) = %v, want %v", EventTypeForStatus(StatusConfirmed), EventReservationUpdated)
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `"2025-06-01"` {
		t.Errorf("Marshal() = %s, want \"2025-06-01\"", b)
	}

	var scanned Date
	if err := scanned.Scan(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan(time.Time) error = %v", err)
	}
	if !scanned.Equal(d) {
		t.Errorf("Scan(time.Time) = %v, want %v", scanned, d)
	}
	if err := scanned.Scan("2025-06-01T00:00:00Z"); err != nil || !scanned.Equal(d) {
		t.Errorf("Scan(string) = %v, %v", scanned, err)
	}

	if _, err := ParseDate("01/06/2025"); !IsValidationError(err) {
		t.Errorf("ParseDate(invalid) error = %v, want validation error", err)
	}

	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	lateNightUTC := time.Date(2025, time.May, 31, 23, 30, 0, 0, time.UTC)
	if got := DateOf(lateNightUTC, madrid); !got.Equal(d) {
		t.Errorf("DateOf() = %v, want %v", got, d)
	}
}
