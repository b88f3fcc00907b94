package notification

import (
	"context"

	"github.com/uma-arai/reservasabores/internal/auth"
	"github.com/uma-arai/reservasabores/internal/common/utils"
	"github.com/uma-arai/reservasabores/internal/model"
	"github.com/uma-arai/reservasabores/internal/repository"
)

// Service は利用者向けの通知の参照と既読化を行います
type Service struct {
	repo repository.NotificationRepository
}

func NewService(repo repository.NotificationRepository) *Service {
	return &Service{repo: repo}
}

// ListMine は呼び出し元の通知を新しい順に返します
func (s *Service) ListMine(ctx context.Context) (records []model.NotificationRecord, err error) {
	ctx, done := utils.StartSubsegment(ctx, "NotificationService.ListMine")
	defer func() { done(err) }()

	session, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByUserID(ctx, session.UserID)
}

// MarkAsRead は呼び出し元の通知を既読にします
func (s *Service) MarkAsRead(ctx context.Context, id int) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "NotificationService.MarkAsRead")
	defer func() { done(err) }()

	session, err := auth.RequireSession(ctx)
	if err != nil {
		return err
	}
	if id <= 0 {
		return model.ErrNotificationNotFound
	}
	return s.repo.UpdateIsRead(ctx, id, session.UserID, true)
}
