package reservation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uma-arai/reservasabores/internal/auth"
	"github.com/uma-arai/reservasabores/internal/common/models"
	"github.com/uma-arai/reservasabores/internal/common/utils"
	"github.com/uma-arai/reservasabores/internal/messaging"
	"github.com/uma-arai/reservasabores/internal/model"
	"github.com/uma-arai/reservasabores/internal/repository"
)

// Service は予約のライフサイクルと空き枠の計算を担当します
type Service struct {
	repo      repository.ReservationRepository
	publisher messaging.Publisher
	loc       *time.Location
	now       func() time.Time
	newID     func() string
}

// NewService は新しいServiceを作成します
// locは「今日」の判定に使うレストランのタイムゾーンです
func NewService(repo repository.ReservationRepository, publisher messaging.Publisher, loc *time.Location) *Service {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// CreateInput は予約作成の入力です
type CreateInput struct {
	Date     model.Date `json:"date"`
	Time     string     `json:"time"`
	Guests   int        `json:"guests"`
	Occasion string     `json:"occasion"`
	Special  string     `json:"special"`
}

// UpdateInput は予約の部分更新の入力です。nilの項目は変更しません
type UpdateInput struct {
	Date     *model.Date              `json:"date"`
	Time     *string                  `json:"time"`
	Guests   *int                     `json:"guests"`
	Occasion *string                  `json:"occasion"`
	Special  *string                  `json:"special"`
	Status   *model.ReservationStatus `json:"status"`
}

// ListFilter は管理画面の予約一覧の絞り込み条件です
type ListFilter struct {
	Status string
	Date   string
	Query  string
}

func (s *Service) today() model.Date {
	return model.DateOf(s.now(), s.loc)
}

// AvailableSlots は指定日に指定人数を受け入れられる時間枠を返します
// 入力はDBに問い合わせる前に検証します
func (s *Service) AvailableSlots(ctx context.Context, date string, guests int) (slots []string, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationService.AvailableSlots")
	defer func() { done(err) }()

	if strings.TrimSpace(date) == "" {
		return nil, model.NewValidationError("date", "is required")
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if guests <= 0 {
		return nil, model.NewValidationError("guests", "must be a positive number")
	}

	booked, err := s.repo.BookedGuestsBySlot(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked guests: %w", err)
	}
	return model.AvailableSlots(booked, guests), nil
}

// Create は呼び出し元のユーザーとして予約を作成します
func (s *Service) Create(ctx context.Context, in CreateInput) (reservation *model.Reservation, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationService.Create")
	defer func() { done(err) }()

	session, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	r := model.Reservation{
		ID:        s.newID(),
		UserID:    session.UserID,
		Date:      in.Date,
		Time:      strings.TrimSpace(in.Time),
		Guests:    in.Guests,
		Occasion:  in.Occasion,
		Special:   strings.TrimSpace(in.Special),
		Status:    model.StatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.ApplyDefaults()
	if err = r.Validate(); err != nil {
		return nil, err
	}
	if r.Date.Before(s.today()) {
		return nil, model.NewValidationError("date", "must not be in the past")
	}

	if err = s.repo.CreateWithinCapacity(ctx, &r); err != nil {
		return nil, err
	}

	log.Printf("Reservation %s created for user %s on %s %s (%d guests)", r.ID, r.UserID, r.Date, r.Time, r.Guests)
	s.publish(ctx, model.NewReservationEvent(model.EventReservationCreated, r, now))
	return &r, nil
}

// Get は予約者情報付きで予約を取得します。本人か管理者のみ参照できます
func (s *Service) Get(ctx context.Context, id string) (reservation *models.ReservationWithOwner, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationService.Get")
	defer func() { done(err) }()

	session, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}

	reservation, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.CanAccess(reservation.UserID) {
		return nil, model.ErrForbidden
	}
	return reservation, nil
}

// Update は指定された項目だけを予約に反映します
// ステータスの変更は状態遷移の規則に従い、終了した予約の内容は変更できません
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (reservation *model.Reservation, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationService.Update")
	defer func() { done(err) }()

	session, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := s.today()
	var before model.Reservation
	reservation, err = s.repo.UpdateWithinCapacity(ctx, id, func(current model.Reservation) (model.Reservation, error) {
		if !session.CanAccess(current.UserID) {
			return current, model.ErrForbidden
		}
		before = current
		return applyUpdate(current, in, today, now)
	})
	if err != nil {
		return nil, err
	}

	if eventType, changed := changeEvent(before, *reservation); changed {
		log.Printf("Reservation %s updated by %s (%s)", reservation.ID, session.UserID, eventType)
		s.publish(ctx, model.NewReservationEvent(eventType, *reservation, now))
	}
	return reservation, nil
}

// Cancel は予約をキャンセルします
func (s *Service) Cancel(ctx context.Context, id string) (*model.Reservation, error) {
	cancelled := model.StatusCancelled
	return s.Update(ctx, id, UpdateInput{Status: &cancelled})
}

// Delete は予約を削除します。本人か管理者のみ削除できます
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationService.Delete")
	defer func() { done(err) }()

	session, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}

	reservation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !session.CanAccess(reservation.UserID) {
		return model.ErrForbidden
	}

	if err = s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("Reservation %s deleted by %s", id, session.UserID)
	return nil
}

// ListMine は呼び出し元の予約一覧を返します
// viewを指定した場合はupcoming / past / cancelledのいずれかに絞り込みます
func (s *Service) ListMine(ctx context.Context, view string) (reservations []model.Reservation, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationService.ListMine")
	defer func() { done(err) }()

	session, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	v, err := model.ParseReservationView(view)
	if err != nil {
		return nil, err
	}

	reservations, err = s.repo.ListByUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return model.FilterReservations(reservations, v, s.today()), nil
}

// ListAll は管理者向けに全ユーザーの予約を返します
func (s *Service) ListAll(ctx context.Context, filter ListFilter) (reservations []models.ReservationWithOwner, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationService.ListAll")
	defer func() { done(err) }()

	if _, err = auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	var f models.ReservationFilter
	if filter.Status != "" && filter.Status != "all" {
		if f.Status, err = model.ParseReservationStatus(filter.Status); err != nil {
			return nil, err
		}
	}
	if filter.Date != "" {
		if f.Date, err = model.ParseDate(filter.Date); err != nil {
			return nil, err
		}
	}
	f.Query = filter.Query

	return s.repo.List(ctx, f)
}

// publish はイベントを発行します。発行の失敗はDBの状態に影響しないためログのみ残します
func (s *Service) publish(ctx context.Context, event model.ReservationEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish %s for reservation %s: %v", event.RoutingKey(), event.ReservationID, err)
	}
}
