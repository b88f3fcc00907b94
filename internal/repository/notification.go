package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/uma-arai/reservasabores/internal/common/utils"
	"github.com/uma-arai/reservasabores/internal/model"
)

// NotificationRepository は通知の永続化を担当するインターフェースです
type NotificationRepository interface {
	CreateNotifications(ctx context.Context, records []model.NotificationRecord) error
	GetByUserID(ctx context.Context, userID string) ([]model.NotificationRecord, error)
	UpdateIsRead(ctx context.Context, id int, userID string, isRead bool) error
}

// NotificationRepositoryImpl は通知の永続化を担当します
type NotificationRepositoryImpl struct {
	db *DB
}

// NewNotificationRepository は新しいNotificationRepositoryを作成します
func NewNotificationRepository(db *DB) *NotificationRepositoryImpl {
	return &NotificationRepositoryImpl{
		db: db,
	}
}

// CreateNotifications は複数の通知レコードを1つのトランザクションで作成します
func (r *NotificationRepositoryImpl) CreateNotifications(ctx context.Context, records []model.NotificationRecord) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "NotificationRepository.CreateNotifications")
	defer func() { done(err) }()

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for i := range records {
			if err := r.create(ctx, tx, &records[i]); err != nil {
				return fmt.Errorf("failed to create notification: %w", err)
			}
		}
		return nil
	})
}

// create はトランザクション内で単一の通知レコードを作成します
func (r *NotificationRepositoryImpl) create(ctx context.Context, tx *sqlx.Tx, record *model.NotificationRecord) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "NotificationRepository.Create")
	defer func() { done(err) }()

	query := `
		INSERT INTO notifications (
			user_id, title, message, is_read, type, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING id`

	return tx.QueryRowContext(ctx,
		query,
		record.UserID,
		record.Title,
		record.Message,
		record.IsRead,
		record.Type,
		record.CreatedAt,
		record.UpdatedAt,
	).Scan(&record.ID)
}

// GetByUserID は指定されたユーザーIDの通知を新しい順に取得します
func (r *NotificationRepositoryImpl) GetByUserID(ctx context.Context, userID string) (records []model.NotificationRecord, err error) {
	ctx, done := utils.StartSubsegment(ctx, "NotificationRepository.GetByUserID")
	defer func() { done(err) }()

	query := `
		SELECT id, user_id, title, message, is_read, type, created_at, updated_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC`

	records = []model.NotificationRecord{}
	if err = r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	return records, nil
}

// UpdateIsRead は通知の既読状態を更新します
// 他のユーザーの通知は更新できず、ErrNotificationNotFoundとなります
func (r *NotificationRepositoryImpl) UpdateIsRead(ctx context.Context, id int, userID string, isRead bool) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "NotificationRepository.UpdateIsRead")
	defer func() { done(err) }()

	query := `
		UPDATE notifications
		SET is_read = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		AND user_id = $3`

	result, err := r.db.ExecContext(ctx, query, isRead, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update notification is_read: %w", err)
	}
	return checkRowsAffected(result, model.ErrNotificationNotFound)
}
