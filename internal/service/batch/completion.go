package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/uma-arai/reservasabores/internal/common/config"
	"github.com/uma-arai/reservasabores/internal/common/database"
	"github.com/uma-arai/reservasabores/internal/common/utils"
	"github.com/uma-arai/reservasabores/internal/model"
	"github.com/uma-arai/reservasabores/internal/repository"
)

// TaskNotifier はStep Functionsへタスクの結果を通知します
// *sfn.Clientが実装しています
type TaskNotifier interface {
	SendTaskSuccess(ctx context.Context, params *sfn.SendTaskSuccessInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskSuccessOutput, error)
	SendTaskFailure(ctx context.Context, params *sfn.SendTaskFailureInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskFailureOutput, error)
}

// CompletionBatchService は来店日を過ぎた確定済みの予約を完了にします
type CompletionBatchService struct {
	db              *database.DB
	reservationRepo repository.ReservationRepository
	sfnClient       TaskNotifier
	cfg             *config.Config
	now             func() time.Time
}

// NewCompletionBatchService は新しいCompletionBatchServiceを作成します
// sfnClientがnilの場合はStep Functionsへの通知を行いません
func NewCompletionBatchService(cfg *config.Config, sfnClient TaskNotifier) (*CompletionBatchService, error) {
	db, err := database.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	return &CompletionBatchService{
		db:              db,
		reservationRepo: repository.NewReservationRepository(repository.NewDB(db.DB)),
		sfnClient:       sfnClient,
		cfg:             cfg,
		now:             time.Now,
	}, nil
}

// Close は終了処理を行います
func (s *CompletionBatchService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Run は完了バッチ処理を実行します
func (s *CompletionBatchService) Run(ctx context.Context) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "CompletionBatchService.Run")
	defer func() { done(err) }()

	startTime := time.Now()
	today := model.DateOf(s.now(), s.location())
	utils.AddMetadata(ctx, "today", today.String())

	events, err := s.completePastReservations(ctx, today)
	if err != nil {
		return utils.GetStackWithError(fmt.Errorf("failed to complete past reservations: %w", err))
	}

	if err = s.sendTaskSuccess(ctx, events); err != nil {
		return utils.GetStackWithError(fmt.Errorf("failed to send task success: %w", err))
	}

	duration := time.Since(startTime)
	utils.AddMetadata(ctx, "duration", duration.String())
	utils.AddMetadata(ctx, "completed_count", len(events))

	log.Printf("Completion batch process completed successfully. Completed: %d, Duration: %v", len(events), duration)
	return nil
}

func (s *CompletionBatchService) location() *time.Location {
	if s.cfg != nil && s.cfg.Location != nil {
		return s.cfg.Location
	}
	return time.Local
}

// completePastReservations はtodayより前の確定済み予約を1件ずつ別トランザクションで完了にします
// 個別の失敗はログに残して次の予約へ進みます
func (s *CompletionBatchService) completePastReservations(ctx context.Context, today model.Date) ([]model.ReservationEvent, error) {
	reservations, err := s.reservationRepo.GetReservationsByStatusBefore(ctx, model.StatusConfirmed, today)
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmed reservations before %s: %w", today, err)
	}

	log.Printf("Found %d confirmed reservations before %s", len(reservations), today)

	events := make([]model.ReservationEvent, 0, len(reservations))
	for _, reservation := range reservations {
		tx, err := s.reservationRepo.BeginTx(ctx)
		if err != nil {
			log.Printf("Failed to begin transaction for reservation %s: %v", reservation.ID, err)
			continue
		}

		err = s.reservationRepo.UpdateStatus(ctx, tx, reservation.ID, model.StatusConfirmed, model.StatusCompleted)
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Printf("Failed to rollback transaction for reservation %s: %v", reservation.ID, rollbackErr)
			}
			if errors.Is(err, model.ErrInvalidStatusTransition) {
				// 取得後に利用者がキャンセルした予約
				log.Printf("Reservation %s changed concurrently, skipping", reservation.ID)
			} else {
				log.Printf("Failed to update reservation %s to completed: %v", reservation.ID, err)
			}
			continue
		}

		if err := tx.Commit(); err != nil {
			log.Printf("Failed to commit transaction for reservation %s: %v", reservation.ID, err)
			continue
		}

		reservation.Status = model.StatusCompleted
		events = append(events, model.NewReservationEvent(model.EventReservationCompleted, reservation, s.now()))
	}

	return events, nil
}

// sendTaskSuccess は、Step Functionsのタスク成功を通知し、完了した予約の通知を出力として返却します
func (s *CompletionBatchService) sendTaskSuccess(ctx context.Context, events []model.ReservationEvent) error {
	// ローカルの場合はStep Functionsの処理をスキップ
	if os.Getenv("ENV") == "LOCAL" || s.sfnClient == nil {
		log.Printf("Local environment detected. Skipping Step Functions task success notification")
		return nil
	}

	notifications := make([]model.Notification, len(events))
	for i, event := range events {
		notifications[i] = model.NewReservationNotification(event)
	}

	output, err := json.Marshal(map[string]any{
		"notifications": notifications,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notifications: %w", err)
	}

	taskToken := s.cfg.SFN.TaskToken
	if taskToken == "" {
		return fmt.Errorf("SFN_TASK_TOKEN is not set in config")
	}

	_, err = s.sfnClient.SendTaskSuccess(ctx, &sfn.SendTaskSuccessInput{
		TaskToken: aws.String(taskToken),
		Output:    aws.String(string(output)),
	})
	if err != nil {
		return fmt.Errorf("failed to send task success: %w", err)
	}

	log.Printf("Successfully sent task success with %d notifications", len(notifications))
	return nil
}

// ReportFailure はStep Functionsにタスクの失敗を通知します
func (s *CompletionBatchService) ReportFailure(ctx context.Context, cause error) error {
	if os.Getenv("ENV") == "LOCAL" || s.sfnClient == nil {
		return nil
	}

	_, err := s.sfnClient.SendTaskFailure(ctx, &sfn.SendTaskFailureInput{
		TaskToken: aws.String(s.cfg.SFN.TaskToken),
		Error:     aws.String("Batch process failed"),
		Cause:     aws.String(firstLine(cause.Error())),
	})
	if err != nil {
		return fmt.Errorf("failed to send task failure: %w", err)
	}
	return nil
}

// firstLine はスタックトレースを除いたエラーメッセージを返します
func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
