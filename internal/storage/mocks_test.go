package storage_test

import (
	"time"

	"strangerchat/backend/internal/models"
	"strangerchat/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify/mock implementation of storage.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveUser(user *models.User) error {
	return m.Called(user).Error(0)
}

func (m *MockStorage) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) SaveUserIfNotExists(telegramID int64) (*models.User, error) {
	args := m.Called(telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) UpdateProfile(id, displayName, gender string) error {
	return m.Called(id, displayName, gender).Error(0)
}

func (m *MockStorage) SaveSessionRecord(rec *models.SessionRecord) error {
	return m.Called(rec).Error(0)
}

func (m *MockStorage) CloseSessionRecord(sessionID string, endedAt time.Time, reason string) error {
	return m.Called(sessionID, endedAt, reason).Error(0)
}

func (m *MockStorage) ListSessionRecords(limit int) ([]models.SessionRecord, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SessionRecord), args.Error(1)
}

func (m *MockStorage) IsFilterEnabled(accountID string) (bool, error) {
	args := m.Called(accountID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) GrantFilter(accountID string, ttl time.Duration) error {
	return m.Called(accountID, ttl).Error(0)
}

func (m *MockStorage) RevokeFilter(accountID string) error {
	return m.Called(accountID).Error(0)
}

func (m *MockStorage) PublishSessionEvent(ev storage.SessionEvent) error {
	return m.Called(ev).Error(0)
}
