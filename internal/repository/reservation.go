package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uma-arai/reservasabores/internal/common/models"
	"github.com/uma-arai/reservasabores/internal/common/utils"
	"github.com/uma-arai/reservasabores/internal/model"
)

// ReservationMutator は現在の予約から更新後の予約を組み立てます
// 行ロックを取得した状態で呼び出されます
type ReservationMutator func(current model.Reservation) (model.Reservation, error)

type ReservationRepository interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	CreateWithinCapacity(ctx context.Context, reservation *model.Reservation) error
	UpdateWithinCapacity(ctx context.Context, id string, mutate ReservationMutator) (*model.Reservation, error)
	GetByID(ctx context.Context, id string) (*models.ReservationWithOwner, error)
	ListByUser(ctx context.Context, userID string) ([]model.Reservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationWithOwner, error)
	BookedGuestsBySlot(ctx context.Context, date model.Date) (map[string]int, error)
	Delete(ctx context.Context, id string) error
	GetReservationsByStatusBefore(ctx context.Context, status model.ReservationStatus, before model.Date) ([]model.Reservation, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, from, to model.ReservationStatus) error
}

type ReservationRepositoryImpl struct {
	db *DB
}

func NewReservationRepository(db *DB) *ReservationRepositoryImpl {
	return &ReservationRepositoryImpl{db: db}
}

const reservationColumns = `id, user_id, date, time_slot, guests, occasion, special, status, created_at, updated_at`

// BeginTx starts a new transaction
func (r *ReservationRepositoryImpl) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTx(ctx)
}

// lockSlot は日付と時間枠の組み合わせ単位でトランザクションレベルのアドバイザリロックを取得します
// 同じ枠への書き込みはコミットまで直列化されます
func lockSlot(ctx context.Context, tx *sqlx.Tx, date model.Date, slot string) error {
	key := fmt.Sprintf("slot:%s %s", date, slot)
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("failed to lock slot %s: %w", key, err)
	}
	return nil
}

// bookedGuests は枠の確定済み人数を返します。excludeIDの予約は集計から除きます
func bookedGuests(ctx context.Context, tx *sqlx.Tx, date model.Date, slot, excludeID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(guests), 0)
		FROM reservations
		WHERE date = $1
		AND time_slot = $2
		AND status = 'confirmed'
		AND id <> $3`

	var booked int
	if err := tx.GetContext(ctx, &booked, query, date, slot, excludeID); err != nil {
		return 0, fmt.Errorf("failed to sum booked guests: %w", err)
	}
	return booked, nil
}

// CreateWithinCapacity は枠の収容人数を確認した上で予約を作成します
// 確認と登録は同一トランザクション内で枠のロックを保持したまま行われます
func (r *ReservationRepositoryImpl) CreateWithinCapacity(ctx context.Context, reservation *model.Reservation) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationRepository.CreateWithinCapacity")
	defer func() { done(err) }()

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockSlot(ctx, tx, reservation.Date, reservation.Time); err != nil {
			return err
		}
		booked, err := bookedGuests(ctx, tx, reservation.Date, reservation.Time, "")
		if err != nil {
			return err
		}
		if !model.HasCapacity(booked, reservation.Guests) {
			return model.ErrSlotFull
		}

		query := `
			INSERT INTO reservations (
				` + reservationColumns + `
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
			)`
		_, err = tx.ExecContext(ctx, query,
			reservation.ID,
			reservation.UserID,
			reservation.Date,
			reservation.Time,
			reservation.Guests,
			reservation.Occasion,
			reservation.Special,
			reservation.Status,
			reservation.CreatedAt,
			reservation.UpdatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				// 予約者のユーザーが既に削除されている
				return model.ErrUnauthorized
			}
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		return nil
	})
}

// UpdateWithinCapacity は予約を行ロックした上でmutateを適用し、保存します
// 確定状態のまま日付・時間枠・人数が増える変更の場合は収容人数を再確認します
func (r *ReservationRepositoryImpl) UpdateWithinCapacity(ctx context.Context, id string, mutate ReservationMutator) (updated *model.Reservation, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationRepository.UpdateWithinCapacity")
	defer func() { done(err) }()

	err = r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current model.Reservation
		query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &current, query, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrReservationNotFound
			}
			return fmt.Errorf("failed to lock reservation: %w", err)
		}

		next, err := mutate(current)
		if err != nil {
			return err
		}

		if needsCapacityCheck(current, next) {
			if err := lockSlot(ctx, tx, next.Date, next.Time); err != nil {
				return err
			}
			booked, err := bookedGuests(ctx, tx, next.Date, next.Time, current.ID)
			if err != nil {
				return err
			}
			if !model.HasCapacity(booked, next.Guests) {
				return model.ErrSlotFull
			}
		}

		update := `
			UPDATE reservations
			SET date = $1,
				time_slot = $2,
				guests = $3,
				occasion = $4,
				special = $5,
				status = $6,
				updated_at = $7
			WHERE id = $8`
		if _, err := tx.ExecContext(ctx, update,
			next.Date,
			next.Time,
			next.Guests,
			next.Occasion,
			next.Special,
			next.Status,
			next.UpdatedAt,
			current.ID,
		); err != nil {
			return fmt.Errorf("failed to update reservation: %w", err)
		}

		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func needsCapacityCheck(current, next model.Reservation) bool {
	if next.Status != model.StatusConfirmed {
		return false
	}
	if current.Status != model.StatusConfirmed {
		return true
	}
	if !current.Date.Equal(next.Date) || current.Time != next.Time {
		return true
	}
	return next.Guests > current.Guests
}

// GetByID は予約者情報付きで予約を取得します
func (r *ReservationRepositoryImpl) GetByID(ctx context.Context, id string) (reservation *models.ReservationWithOwner, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationRepository.GetByID")
	defer func() { done(err) }()

	query := reservationWithOwnerSelect + ` WHERE r.id = $1`

	var row models.ReservationWithOwner
	if err = r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &row, nil
}

const reservationWithOwnerSelect = `
	SELECT
		r.id,
		r.user_id,
		r.date,
		r.time_slot,
		r.guests,
		r.occasion,
		r.special,
		r.status,
		r.created_at,
		r.updated_at,
		u.name AS "user.name",
		u.email AS "user.email"
	FROM reservations r
	JOIN users u ON u.id = r.user_id`

// ListByUser はユーザーの予約を日付の新しい順に取得します
func (r *ReservationRepositoryImpl) ListByUser(ctx context.Context, userID string) (reservations []model.Reservation, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationRepository.ListByUser")
	defer func() { done(err) }()

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE user_id = $1
		ORDER BY date DESC, time_slot DESC`

	reservations = []model.Reservation{}
	if err = r.db.SelectContext(ctx, &reservations, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list reservations of user %s: %w", userID, err)
	}
	return reservations, nil
}

// List は管理画面向けに条件で絞り込んだ予約一覧を取得します
func (r *ReservationRepositoryImpl) List(ctx context.Context, filter models.ReservationFilter) (reservations []models.ReservationWithOwner, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationRepository.List")
	defer func() { done(err) }()

	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if !filter.Date.IsZero() {
		args = append(args, filter.Date)
		conditions = append(conditions, fmt.Sprintf("r.date = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		conditions = append(conditions, fmt.Sprintf("(u.name ILIKE $%d OR u.email ILIKE $%d)", len(args), len(args)))
	}

	query := reservationWithOwnerSelect
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY r.date DESC, r.time_slot DESC`

	reservations = []models.ReservationWithOwner{}
	if err = r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// BookedGuestsBySlot は指定日の時間枠ごとの確定済み人数を返します
func (r *ReservationRepositoryImpl) BookedGuestsBySlot(ctx context.Context, date model.Date) (booked map[string]int, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationRepository.BookedGuestsBySlot")
	defer func() { done(err) }()

	query := `
		SELECT time_slot, COALESCE(SUM(guests), 0) AS guests
		FROM reservations
		WHERE date = $1
		AND status = 'confirmed'
		GROUP BY time_slot`

	rows, err := r.db.QueryxContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query booked guests: %w", err)
	}
	defer rows.Close()

	booked = make(map[string]int)
	for rows.Next() {
		var (
			slot   string
			guests int
		)
		if err = rows.Scan(&slot, &guests); err != nil {
			return nil, fmt.Errorf("failed to scan booked guests: %w", err)
		}
		booked[slot] = guests
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating booked guests: %w", err)
	}
	return booked, nil
}

// Delete は予約を削除します
func (r *ReservationRepositoryImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationRepository.Delete")
	defer func() { done(err) }()

	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return checkRowsAffected(result, model.ErrReservationNotFound)
}

// GetReservationsByStatusBefore は、指定された日付より前の指定ステータスの予約を取得します
func (r *ReservationRepositoryImpl) GetReservationsByStatusBefore(ctx context.Context, status model.ReservationStatus, before model.Date) (reservations []model.Reservation, err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationRepository.GetReservationsByStatusBefore")
	defer func() { done(err) }()

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = $1
		AND date < $2
		ORDER BY date ASC, time_slot ASC`

	reservations = []model.Reservation{}
	if err = r.db.SelectContext(ctx, &reservations, query, status, before); err != nil {
		return nil, fmt.Errorf("failed to query reservations with status %s: %w", status, err)
	}
	return reservations, nil
}

// UpdateStatus は予約のステータスをfromからtoへ更新します
// 現在のステータスがfromでない場合は更新せずにErrInvalidStatusTransitionを返します
func (r *ReservationRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, from, to model.ReservationStatus) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "ReservationRepository.UpdateStatus")
	defer func() { done(err) }()

	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%s -> %s: %w", from, to, model.ErrInvalidStatusTransition)
	}

	query := `
		UPDATE reservations
		SET status = $1,
			updated_at = $2
		WHERE id = $3
		AND status = $4`

	result, err := tx.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	if err = checkRowsAffected(result, model.ErrInvalidStatusTransition); err != nil {
		return fmt.Errorf("reservation %s is no longer %s: %w", id, from, err)
	}
	return nil
}
