package user

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uma-arai/reservasabores/internal/auth"
	"github.com/uma-arai/reservasabores/internal/common/models"
	"github.com/uma-arai/reservasabores/internal/model"
	"github.com/uma-arai/reservasabores/internal/repository"
)

// MockUserRepository はメモリ上のユーザーリポジトリです
type MockUserRepository struct {
	mu      sync.Mutex
	users   map[string]model.User
	deleted []string
}

func newMockUserRepo(users ...model.User) *MockUserRepository {
	m := &MockUserRepository{users: map[string]model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return model.ErrEmailTaken
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (m *MockUserRepository) GetNameByID(ctx context.Context, id string) (string, error) {
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}

func (m *MockUserRepository) List(ctx context.Context) ([]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.UserSummary
	for _, u := range m.users {
		list = append(list, models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
	}
	return list, nil
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return model.ErrUserNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MockUserRepository) DeleteWithReservations(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// stubReservationRepository はListByUserのみを実装します
type stubReservationRepository struct {
	repository.ReservationRepository
	byUser map[string][]model.Reservation
}

func (s *stubReservationRepository) ListByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	return s.byUser[userID], nil
}

// plainHasher はテスト用にハッシュ化を省略します
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return model.ErrInvalidCredentials
	}
	return nil
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(user *model.User) (string, time.Time, error) {
	return "token-" + user.ID, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), nil
}

var admin = model.User{ID: "admin-1", Name: "Admin", Email: "admin@sabores.es", PasswordHash: "hashed:secreto", Role: model.RoleAdmin}
var ana = model.User{ID: "user-1", Name: "Ana", Email: "ana@example.com", PasswordHash: "hashed:secreto", Role: model.RoleUser}

func newTestService(users *MockUserRepository) *Service {
	s := NewService(users, &stubReservationRepository{byUser: map[string][]model.Reservation{
		"user-1": {{ID: "res-1", UserID: "user-1", Time: "20:00", Guests: 2, Status: model.StatusConfirmed}},
	}}, plainHasher{}, fakeIssuer{})
	n := 0
	s.newID = func() string {
		n++
		return "new-" + strings.Repeat("x", n)
	}
	return s
}

func newTestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, seg := xray.BeginSegment(context.Background(), "test")
	t.Cleanup(func() { seg.Close(nil) })
	return ctx
}

func adminCtx(t *testing.T) context.Context {
	return auth.WithSession(newTestContext(t), auth.Session{UserID: admin.ID, Email: admin.Email, Role: model.RoleAdmin})
}

func userCtx(t *testing.T) context.Context {
	return auth.WithSession(newTestContext(t), auth.Session{UserID: ana.ID, Email: ana.Email, Role: model.RoleUser})
}

func ptr(s string) *string { return &s }

func TestService_Register(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
		valErr  bool
	}{
		{
			name:  "正常系",
			input: RegisterInput{Name: " Bea ", Email: " Bea@Example.com ", Password: "secreto"},
		},
		{
			name:    "登録済みのメールアドレス",
			input:   RegisterInput{Name: "Ana2", Email: "ANA@example.com", Password: "secreto"},
			wantErr: model.ErrEmailTaken,
		},
		{
			name:   "パスワードが短い",
			input:  RegisterInput{Name: "Bea", Email: "bea@example.com", Password: "123"},
			valErr: true,
		},
		{
			name:   "名前が空",
			input:  RegisterInput{Name: "  ", Email: "bea@example.com", Password: "secreto"},
			valErr: true,
		},
		{
			name:   "メールアドレスの形式が不正",
			input:  RegisterInput{Name: "Bea", Email: "bea", Password: "secreto"},
			valErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newMockUserRepo(ana)
			s := newTestService(users)

			user, err := s.Register(newTestContext(t), tt.input)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.valErr:
				assert.True(t, model.IsValidationError(err), "got %v", err)
			default:
				require.NoError(t, err)
				assert.Equal(t, "Bea", user.Name)
				assert.Equal(t, "bea@example.com", user.Email)
				assert.Equal(t, model.RoleUser, user.Role)
				assert.Equal(t, "hashed:secreto", user.PasswordHash)
				assert.Len(t, users.users, 2)
			}
		})
	}
}

func TestService_Login(t *testing.T) {
	s := newTestService(newMockUserRepo(ana))
	ctx := newTestContext(t)

	result, err := s.Login(ctx, LoginInput{Email: "Ana@Example.com", Password: "secreto"})
	require.NoError(t, err)
	assert.Equal(t, "token-user-1", result.Token)
	assert.Equal(t, ana.ID, result.User.ID)

	_, err = s.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	// 存在しないユーザーもパスワード不一致と区別しない
	_, err = s.Login(ctx, LoginInput{Email: "nadie@example.com", Password: "secreto"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = s.Login(ctx, LoginInput{Email: "", Password: ""})
	assert.True(t, model.IsValidationError(err))
}

func TestService_Me(t *testing.T) {
	s := newTestService(newMockUserRepo(ana))

	user, err := s.Me(userCtx(t))
	require.NoError(t, err)
	assert.Equal(t, ana.Email, user.Email)

	_, err = s.Me(newTestContext(t))
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = s.Me(adminCtx(t))
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestService_AdminOnly(t *testing.T) {
	s := newTestService(newMockUserRepo(admin, ana))
	ctx := userCtx(t)

	_, err := s.List(ctx)
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = s.Get(ctx, ana.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = s.Create(ctx, CreateUserInput{Name: "X", Email: "x@example.com", Password: "secreto"})
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = s.Update(ctx, ana.ID, UpdateUserInput{Name: ptr("X")})
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.ErrorIs(t, s.Delete(ctx, admin.ID), model.ErrForbidden)
}

func TestService_Create(t *testing.T) {
	s := newTestService(newMockUserRepo(admin))
	ctx := adminCtx(t)

	user, err := s.Create(ctx, CreateUserInput{Name: "Carlos", Email: "carlos@sabores.es", Password: "secreto"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, user.Role)

	user, err = s.Create(ctx, CreateUserInput{Name: "Diana", Email: "diana@sabores.es", Password: "secreto", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, user.Role)

	_, err = s.Create(ctx, CreateUserInput{Name: "Eva", Email: "eva@sabores.es", Password: "secreto", Role: "owner"})
	assert.True(t, model.IsValidationError(err))
}

func TestService_Get(t *testing.T) {
	s := newTestService(newMockUserRepo(admin, ana))

	got, err := s.Get(adminCtx(t), ana.ID)
	require.NoError(t, err)
	assert.Equal(t, ana.ID, got.ID)
	require.Len(t, got.Reservations, 1)
	assert.Equal(t, "res-1", got.Reservations[0].ID)

	_, err = s.Get(adminCtx(t), "missing")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestService_Update(t *testing.T) {
	bea := model.User{ID: "user-2", Name: "Bea", Email: "bea@example.com", PasswordHash: "hashed:secreto", Role: model.RoleUser}

	tests := []struct {
		name    string
		id      string
		input   UpdateUserInput
		wantErr error
		valErr  bool
		check   func(t *testing.T, u *model.User)
	}{
		{
			name:  "名前のみ変更",
			id:    ana.ID,
			input: UpdateUserInput{Name: ptr("Ana María")},
			check: func(t *testing.T, u *model.User) {
				assert.Equal(t, "Ana María", u.Name)
				assert.Equal(t, ana.Email, u.Email)
				assert.Equal(t, ana.PasswordHash, u.PasswordHash)
			},
		},
		{
			name:  "権限とパスワードの変更",
			id:    ana.ID,
			input: UpdateUserInput{Role: ptr("admin"), Password: ptr("nuevaclave")},
			check: func(t *testing.T, u *model.User) {
				assert.Equal(t, model.RoleAdmin, u.Role)
				assert.Equal(t, "hashed:nuevaclave", u.PasswordHash)
			},
		},
		{
			name:  "同じメールアドレスへの変更は許可",
			id:    ana.ID,
			input: UpdateUserInput{Email: ptr("ANA@example.com")},
			check: func(t *testing.T, u *model.User) {
				assert.Equal(t, ana.Email, u.Email)
			},
		},
		{
			name:    "他のユーザーのメールアドレス",
			id:      ana.ID,
			input:   UpdateUserInput{Email: ptr(bea.Email)},
			wantErr: model.ErrEmailTaken,
		},
		{
			name:    "管理者自身の降格",
			id:      admin.ID,
			input:   UpdateUserInput{Role: ptr("user")},
			wantErr: model.ErrSelfModification,
		},
		{
			name:   "空の名前",
			id:     ana.ID,
			input:  UpdateUserInput{Name: ptr(" ")},
			valErr: true,
		},
		{
			name:    "存在しないユーザー",
			id:      "missing",
			input:   UpdateUserInput{Name: ptr("X")},
			wantErr: model.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newMockUserRepo(admin, ana, bea)
			s := newTestService(users)

			got, err := s.Update(adminCtx(t), tt.id, tt.input)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.valErr:
				assert.True(t, model.IsValidationError(err), "got %v", err)
			default:
				require.NoError(t, err)
				tt.check(t, got)
				stored := users.users[tt.id]
				tt.check(t, &stored)
			}
		})
	}
}

func TestService_Delete(t *testing.T) {
	users := newMockUserRepo(admin, ana)
	s := newTestService(users)
	ctx := adminCtx(t)

	assert.ErrorIs(t, s.Delete(ctx, admin.ID), model.ErrSelfModification)
	require.NoError(t, s.Delete(ctx, ana.ID))
	assert.Equal(t, []string{ana.ID}, users.deleted)
	assert.ErrorIs(t, s.Delete(ctx, ana.ID), model.ErrUserNotFound)
}

func TestService_EnsureAdmin(t *testing.T) {
	users := newMockUserRepo(ana)
	s := newTestService(users)
	ctx := newTestContext(t)

	created, err := s.EnsureAdmin(ctx, "Admin", "Admin@Sabores.es", "secreto")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, created.Role)

	again, err := s.EnsureAdmin(ctx, "Admin", "admin@sabores.es", "secreto")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Len(t, users.users, 2)

	_, err = s.EnsureAdmin(ctx, "Ana", ana.Email, "secreto")
	assert.Error(t, err)
}
