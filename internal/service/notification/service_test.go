package notification

import (
	"context"
	"testing"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uma-arai/reservasabores/internal/auth"
	"github.com/uma-arai/reservasabores/internal/model"
)

type MockNotificationRepository struct {
	records []model.NotificationRecord
}

func (m *MockNotificationRepository) CreateNotifications(ctx context.Context, records []model.NotificationRecord) error {
	m.records = append(m.records, records...)
	return nil
}

func (m *MockNotificationRepository) GetByUserID(ctx context.Context, userID string) ([]model.NotificationRecord, error) {
	list := []model.NotificationRecord{}
	for _, r := range m.records {
		if r.UserID == userID {
			list = append(list, r)
		}
	}
	return list, nil
}

func (m *MockNotificationRepository) UpdateIsRead(ctx context.Context, id int, userID string, isRead bool) error {
	for i := range m.records {
		if m.records[i].ID == id && m.records[i].UserID == userID {
			m.records[i].IsRead = isRead
			return nil
		}
	}
	return model.ErrNotificationNotFound
}

func newTestContext(t *testing.T, userID string) context.Context {
	t.Helper()
	ctx, seg := xray.BeginSegment(context.Background(), "test")
	t.Cleanup(func() { seg.Close(nil) })
	if userID == "" {
		return ctx
	}
	return auth.WithSession(ctx, auth.Session{UserID: userID, Role: model.RoleUser})
}

func TestService_ListMine(t *testing.T) {
	repo := &MockNotificationRepository{records: []model.NotificationRecord{
		{ID: 1, UserID: "user-1", Title: "Reserva confirmada"},
		{ID: 2, UserID: "user-2", Title: "Reserva cancelada"},
	}}
	s := NewService(repo)

	got, err := s.ListMine(newTestContext(t, "user-1"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)

	_, err = s.ListMine(newTestContext(t, ""))
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestService_MarkAsRead(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		id      int
		wantErr error
	}{
		{name: "自分の通知", userID: "user-1", id: 1},
		{name: "他のユーザーの通知", userID: "user-2", id: 1, wantErr: model.ErrNotificationNotFound},
		{name: "不正なID", userID: "user-1", id: 0, wantErr: model.ErrNotificationNotFound},
		{name: "未認証", userID: "", id: 1, wantErr: model.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockNotificationRepository{records: []model.NotificationRecord{{ID: 1, UserID: "user-1"}}}
			s := NewService(repo)

			err := s.MarkAsRead(newTestContext(t, tt.userID), tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, repo.records[0].IsRead)
				return
			}
			require.NoError(t, err)
			assert.True(t, repo.records[0].IsRead)
		})
	}
}
