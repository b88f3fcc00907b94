package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uma-arai/reservasabores/internal/auth"
	"github.com/uma-arai/reservasabores/internal/common/models"
	"github.com/uma-arai/reservasabores/internal/common/utils"
	"github.com/uma-arai/reservasabores/internal/model"
	"github.com/uma-arai/reservasabores/internal/repository"
)

// TokenIssuer はログインしたユーザーのトークンを発行します
type TokenIssuer interface {
	Issue(user *model.User) (string, time.Time, error)
}

// Service はユーザー登録・ログイン・ユーザー管理を担当します
type Service struct {
	users        repository.UserRepository
	reservations repository.ReservationRepository
	hasher       auth.PasswordHasher
	tokens       TokenIssuer
	now          func() time.Time
	newID        func() string
}

// NewService は新しいServiceを作成します
func NewService(users repository.UserRepository, reservations repository.ReservationRepository, hasher auth.PasswordHasher, tokens TokenIssuer) *Service {
	return &Service{
		users:        users,
		reservations: reservations,
		hasher:       hasher,
		tokens:       tokens,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult はログイン成功時の応答です
type LoginResult struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// CreateUserInput は管理者によるユーザー作成の入力です
type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserInput はユーザーの部分更新の入力です。nilの項目は変更しません
type UpdateUserInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// Register は一般ユーザーとして新規登録します
func (s *Service) Register(ctx context.Context, in RegisterInput) (user *model.User, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserService.Register")
	defer func() { done(err) }()

	return s.create(ctx, in.Name, in.Email, in.Password, model.RoleUser)
}

// Login はメールアドレスとパスワードを照合し、トークンを発行します
// ユーザーが存在しない場合もパスワード不一致と同じエラーを返します
func (s *Service) Login(ctx context.Context, in LoginInput) (result *LoginResult, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserService.Login")
	defer func() { done(err) }()

	email := model.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, model.NewValidationError("", "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err = s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Me は呼び出し元のユーザー情報を返します
func (s *Service) Me(ctx context.Context) (user *model.User, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserService.Me")
	defer func() { done(err) }()

	session, err := auth.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	user, err = s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		// トークン発行後に削除されたユーザー
		return nil, model.ErrUnauthorized
	}
	return user, err
}

// List は予約件数付きのユーザー一覧を返します
func (s *Service) List(ctx context.Context) (users []models.UserSummary, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserService.List")
	defer func() { done(err) }()

	if _, err = auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// Create は管理者がユーザーを作成します。権限を省略した場合は一般ユーザーです
func (s *Service) Create(ctx context.Context, in CreateUserInput) (user *model.User, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserService.Create")
	defer func() { done(err) }()

	if _, err = auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	role := model.RoleUser
	if strings.TrimSpace(in.Role) != "" {
		if role, err = model.ParseRole(in.Role); err != nil {
			return nil, err
		}
	}
	return s.create(ctx, in.Name, in.Email, in.Password, role)
}

func (s *Service) create(ctx context.Context, name, email, password string, role model.Role) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = model.NormalizeEmail(email)
	if name == "" {
		return nil, model.NewValidationError("name", "is required")
	}
	if err := model.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, err
	}

	if err := s.ensureEmailAvailable(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// 事前確認と登録の間に同じメールアドレスが登録された場合は一意制約で検出される
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("User %s registered with role %s", user.ID, user.Role)
	return user, nil
}

// ensureEmailAvailable はメールアドレスが他のユーザーに使われていないことを確認します
func (s *Service) ensureEmailAvailable(ctx context.Context, email, selfID string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check email: %w", err)
	case existing.ID != selfID:
		return model.ErrEmailTaken
	default:
		return nil
	}
}

// Get はユーザーとその予約一覧を返します
func (s *Service) Get(ctx context.Context, id string) (result *models.UserWithReservations, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserService.Get")
	defer func() { done(err) }()

	if _, err = auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reservations, err := s.reservations.ListByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.UserWithReservations{User: *user, Reservations: reservations}, nil
}

// Update は指定された項目だけを更新します
// 管理者は自分自身を一般ユーザーに降格できません
func (s *Service) Update(ctx context.Context, id string, in UpdateUserInput) (user *model.User, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserService.Update")
	defer func() { done(err) }()

	session, err := auth.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	user, err = s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, model.NewValidationError("name", "must not be empty")
		}
		user.Name = name
	}
	if in.Email != nil {
		email := model.NormalizeEmail(*in.Email)
		if err = model.ValidateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			if err = s.ensureEmailAvailable(ctx, email, user.ID); err != nil {
				return nil, err
			}
		}
		user.Email = email
	}
	if in.Role != nil {
		role, err := model.ParseRole(*in.Role)
		if err != nil {
			return nil, err
		}
		if user.ID == session.UserID && role != model.RoleAdmin {
			return nil, model.ErrSelfModification
		}
		user.Role = role
	}
	if in.Password != nil && *in.Password != "" {
		if err = model.ValidatePassword(*in.Password); err != nil {
			return nil, err
		}
		if user.PasswordHash, err = s.hasher.Hash(*in.Password); err != nil {
			return nil, err
		}
	}

	user.UpdatedAt = s.now()
	if err = s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete はユーザーとその予約を削除します
// 管理者は自分自身を削除できません
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserService.Delete")
	defer func() { done(err) }()

	session, err := auth.RequireAdmin(ctx)
	if err != nil {
		return err
	}
	if id == session.UserID {
		return model.ErrSelfModification
	}

	if err = s.users.DeleteWithReservations(ctx, id); err != nil {
		return err
	}
	log.Printf("User %s and their reservations deleted by %s", id, session.UserID)
	return nil
}

// EnsureAdmin は指定したメールアドレスの管理者が存在しない場合に作成します
// 起動時に最初の管理者を用意するために使います
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (user *model.User, err error) {
	ctx, done := utils.StartSubsegment(ctx, "UserService.EnsureAdmin")
	defer func() { done(err) }()

	existing, err := s.users.GetByEmail(ctx, model.NormalizeEmail(email))
	switch {
	case err == nil:
		if !existing.IsAdmin() {
			return nil, fmt.Errorf("user %s exists but is not an admin", existing.Email)
		}
		return existing, nil
	case !errors.Is(err, model.ErrUserNotFound):
		return nil, err
	}
	return s.create(ctx, name, email, password, model.RoleAdmin)
}
