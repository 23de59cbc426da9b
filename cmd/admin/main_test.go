package main

import (
	"bytes"
	"testing"
	"time"

	"strangerchat/backend/internal/api/handler"
	"strangerchat/backend/internal/models"
	"strangerchat/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveUser(user *models.User) error { return m.Called(user).Error(0) }

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
	return args.Get(0).([]models.SessionRecord), args.Error(1)
}

func (m *MockStorage) IsFilterEnabled(accountID string) (bool, error) {
	args := m.Called(accountID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) GrantFilter(accountID string, ttl time.Duration) error {
	return m.Called(accountID, ttl).Error(0)
}

func (m *MockStorage) RevokeFilter(accountID string) error { return m.Called(accountID).Error(0) }

func (m *MockStorage) PublishSessionEvent(ev storage.SessionEvent) error {
	return m.Called(ev).Error(0)
}

var _ storage.Storage = (*MockStorage)(nil)

func TestGrantAndRevokeFilter(t *testing.T) {
	s := new(MockStorage)
	s.On("GrantFilter", "acc-1", 24*time.Hour).Return(nil)
	s.On("GrantFilter", "acc-2", time.Duration(0)).Return(nil)
	s.On("RevokeFilter", "acc-1").Return(nil)

	var out bytes.Buffer
	require.NoError(t, run([]string{"grant-filter", "acc-1", "24"}, s, nil, &out))
	require.NoError(t, run([]string{"grant-filter", "acc-2"}, s, nil, &out))
	require.NoError(t, run([]string{"revoke-filter", "acc-1"}, s, nil, &out))

	assert.Contains(t, out.String(), "Filter enabled for acc-1.")
	assert.Contains(t, out.String(), "Filter revoked for acc-1.")
	s.AssertExpectations(t)
}

func TestGrantFilterRejectsBadHours(t *testing.T) {
	err := run([]string{"grant-filter", "acc-1", "soon"}, new(MockStorage), nil, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid hours")
}

func TestSetProfileNormalizesGender(t *testing.T) {
	s := new(MockStorage)
	s.On("UpdateProfile", "acc-1", "Olena", "female").Return(nil)

	var out bytes.Buffer
	require.NoError(t, run([]string{"set-profile", "acc-1", "Olena", "F"}, s, nil, &out))
	s.AssertExpectations(t)
}

func TestSessionsListing(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ended := started.Add(5 * time.Minute)
	s := new(MockStorage)
	s.On("ListSessionRecords", 5).Return([]models.SessionRecord{
		{SessionID: "s-2", ParticipantA: "a", ParticipantB: "persona", WithPersona: true, StartedAt: started},
		{SessionID: "s-1", ParticipantA: "a", ParticipantB: "b", StartedAt: started, EndedAt: &ended, EndReason: "next"},
	}, nil)

	var out bytes.Buffer
	require.NoError(t, run([]string{"sessions", "5"}, s, nil, &out))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[1]), "s-2")
	assert.Contains(t, string(lines[2]), "2024-05-01T12:05:00Z")
	assert.Contains(t, string(lines[2]), "next")
}

func TestTokenForAccount(t *testing.T) {
	tokens := handler.NewTokenIssuer("secret", time.Hour)
	s := new(MockStorage)
	s.On("GetUserByID", "acc-1").Return(&models.User{ID: "acc-1"}, nil)
	s.On("GetUserByID", "missing").Return(nil, nil)

	var out bytes.Buffer
	require.NoError(t, run([]string{"token", "acc-1"}, s, tokens, &out))

	claims, err := tokens.Parse(string(bytes.TrimSpace(out.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.NotEmpty(t, claims.AnonID)

	assert.ErrorContains(t, run([]string{"token", "missing"}, s, tokens, &out), "not found")
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{nil, {"ban", "x"}, {"revoke-filter"}, {"set-profile", "a"}} {
		assert.ErrorIs(t, run(args, new(MockStorage), nil, &bytes.Buffer{}), errUsage)
	}
}
