package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/uma-arai/reservasabores/internal/common/config"
	"github.com/uma-arai/reservasabores/internal/common/database"
	"github.com/uma-arai/reservasabores/internal/common/utils"
	"github.com/uma-arai/reservasabores/internal/model"
	"github.com/uma-arai/reservasabores/internal/repository"
)

// userNameRepository は通知の宛名を取得するためのリポジトリです
type userNameRepository interface {
	GetNameByID(ctx context.Context, id string) (string, error)
}

// NotificationBatchService は予約イベントから利用者向けの通知を作成します
type NotificationBatchService struct {
	args             []model.Notification
	db               *database.DB
	notificationRepo repository.NotificationRepository
	userRepo         userNameRepository
	cfg              *config.Config
}

// NewNotificationBatchService は新しいNotificationBatchServiceを作成します
func NewNotificationBatchService(cfg *config.Config) (*NotificationBatchService, error) {
	db, err := database.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	repoDb := repository.NewDB(db.DB)

	return &NotificationBatchService{
		db:               db,
		notificationRepo: repository.NewNotificationRepository(repoDb),
		userRepo:         repository.NewUserRepository(repoDb),
		cfg:              cfg,
	}, nil
}

// Close は終了処理を行います
func (s *NotificationBatchService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetArgs は通知バッチ処理の引数を設定します
func (s *NotificationBatchService) SetArgs(args []model.Notification) {
	s.args = args
}

// Run は通知バッチ処理を実行します
// 全ての通知レコードは1つのトランザクションで登録されます
func (s *NotificationBatchService) Run(ctx context.Context) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "NotificationBatchService.Run")
	defer func() { done(err) }()

	notifications := s.args
	log.Printf("Starting notification batch process for %d notifications...", len(notifications))
	utils.AddMetadata(ctx, "notification_count", len(notifications))

	startTime := time.Now()

	userNameMap, err := s.getUserNameMap(ctx, notifications)
	if err != nil {
		return err
	}

	records := make([]model.NotificationRecord, 0, len(notifications))
	skipped := 0
	for i, notification := range notifications {
		// 宛先ユーザーが削除済みの通知は登録しない
		if _, ok := userNameMap[notification.RecipientID()]; !ok {
			log.Printf("Skipping notification %d: user %s not found", i, notification.RecipientID())
			skipped++
			continue
		}
		record, err := notification.ToNotificationRecord(userNameMap)
		if err != nil {
			return fmt.Errorf("failed to build notification %d: %w", i, err)
		}
		records = append(records, *record)
	}
	utils.AddMetadata(ctx, "skipped_count", skipped)

	if err = s.notificationRepo.CreateNotifications(ctx, records); err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}

	duration := time.Since(startTime)
	utils.AddMetadata(ctx, "duration", duration.String())
	utils.AddMetadata(ctx, "user_count", len(userNameMap))

	log.Printf("Notification batch process completed successfully. Duration: %v", duration)
	return nil
}

// 通知の宛先ユーザーの氏名を取得する
// N+1とならないように重複のないユーザーIDを先に集めてから1件ずつ取得する
func (s *NotificationBatchService) getUserNameMap(ctx context.Context, notifications []model.Notification) (userNameMap map[string]string, err error) {
	ctx, done := utils.StartSubsegment(ctx, "NotificationBatchService.getUserNameMap")
	defer func() { done(err) }()

	userIDs := make([]string, 0)
	for _, notification := range notifications {
		userID := notification.RecipientID()
		if userID == "" {
			return nil, fmt.Errorf("notification without user_id")
		}
		if slices.Contains(userIDs, userID) {
			continue
		}
		userIDs = append(userIDs, userID)
	}
	utils.AddMetadata(ctx, "unique_user_count", len(userIDs))

	userNameMap = make(map[string]string, len(userIDs))
	for _, userID := range userIDs {
		name, err := s.userRepo.GetNameByID(ctx, userID)
		if errors.Is(err, model.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get name of user %s: %w", userID, err)
		}
		userNameMap[userID] = name
	}
	return userNameMap, nil
}
