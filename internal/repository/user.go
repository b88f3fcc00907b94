package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/uma-arai/reservasabores/internal/common/models"
	"github.com/uma-arai/reservasabores/internal/common/utils"
	"github.com/uma-arai/reservasabores/internal/model"
)

// UserRepository はユーザーの永続化を担当するインターフェースです
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetNameByID(ctx context.Context, id string) (string, error)
	List(ctx context.Context) ([]models.UserSummary, error)
	Update(ctx context.Context, user *model.User) error
	DeleteWithReservations(ctx context.Context, id string) error
}

// UserRepositoryImpl はユーザーの永続化を担当します
type UserRepositoryImpl struct {
	db *DB
}

// NewUserRepository は新しいUserRepositoryを作成します
func NewUserRepository(db *DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

// Create はユーザーを作成します
// メールアドレスの一意制約違反はErrEmailTakenとして返します
func (r *UserRepositoryImpl) Create(ctx context.Context, user *model.User) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserRepository.Create")
	defer func() { done(err) }()

	query := `
		INSERT INTO users (
			id, name, email, password_hash, role, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err = r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID はIDでユーザーを取得します
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id string) (user *model.User, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserRepository.GetByID")
	defer func() { done(err) }()

	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail はメールアドレスでユーザーを取得します
func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (user *model.User, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserRepository.GetByEmail")
	defer func() { done(err) }()

	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepositoryImpl) getOne(ctx context.Context, query string, arg string) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetNameByID はユーザーIDから氏名を取得します
func (r *UserRepositoryImpl) GetNameByID(ctx context.Context, id string) (name string, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserRepository.GetNameByID")
	defer func() { done(err) }()

	if err = r.db.GetContext(ctx, &name, `SELECT name FROM users WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("user %s: %w", id, model.ErrUserNotFound)
		}
		return "", fmt.Errorf("failed to get user name: %w", err)
	}
	return name, nil
}

// List は予約件数付きのユーザー一覧を新しい順に取得します
func (r *UserRepositoryImpl) List(ctx context.Context) (users []models.UserSummary, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserRepository.List")
	defer func() { done(err) }()

	query := `
		SELECT
			u.id,
			u.name,
			u.email,
			u.role,
			u.created_at,
			COUNT(r.id) AS reservation_count
		FROM users u
		LEFT JOIN reservations r ON r.user_id = u.id
		GROUP BY u.id
		ORDER BY u.created_at DESC`

	users = []models.UserSummary{}
	if err = r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update はユーザーの氏名・メールアドレス・権限・パスワードを更新します
func (r *UserRepositoryImpl) Update(ctx context.Context, user *model.User) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserRepository.Update")
	defer func() { done(err) }()

	query := `
		UPDATE users
		SET name = $1,
			email = $2,
			role = $3,
			password_hash = $4,
			updated_at = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.Role,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailTaken
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return checkRowsAffected(result, model.ErrUserNotFound)
}

// DeleteWithReservations はユーザーとその予約を1つのトランザクションで削除します
// どちらかの削除に失敗した場合は両方ともロールバックされます
func (r *UserRepositoryImpl) DeleteWithReservations(ctx context.Context, id string) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserRepository.DeleteWithReservations")
	defer func() { done(err) }()

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete reservations of user: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete notifications of user: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return checkRowsAffected(result, model.ErrUserNotFound)
	})
}
