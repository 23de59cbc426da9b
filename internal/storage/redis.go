package storage

import (
	"encoding/json"
	"errors"
	"time"

	"strangerchat/backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// SessionEvent is published on config.SessionEventsChannel whenever a
// session starts or ends.
type SessionEvent struct {
	Type         string    `json:"type"`
	SessionID    string    `json:"sessionId"`
	ParticipantA string    `json:"participantA"`
	ParticipantB string    `json:"participantB"`
	WithPersona  bool      `json:"withPersona,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	At           time.Time `json:"at"`
}

const (
	SessionEventStarted = "started"
	SessionEventEnded   = "ended"
)

// FilterEntitlementKey is the Redis key whose presence enables the partner
// filter for an account.
func FilterEntitlementKey(accountID string) string {
	return "entitlement:filter:" + accountID
}

// IsFilterEnabled перевіряє право на фільтр у Redis
// Without Redis it returns ErrUnavailable so callers can fall back to their
// default entitlement.
func (s *Service) IsFilterEnabled(accountID string) (bool, error) {
	if accountID == "" {
		return false, nil
	}
	if s.Redis == nil {
		return false, ErrUnavailable
	}
	status, err := s.Redis.Get(s.Ctx, FilterEntitlementKey(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// GrantFilter enables the filter for accountID. A zero ttl never expires.
func (s *Service) GrantFilter(accountID string, ttl time.Duration) error {
	if s.Redis == nil {
		return ErrUnavailable
	}
	return s.Redis.Set(s.Ctx, FilterEntitlementKey(accountID), "active", ttl).Err()
}

func (s *Service) RevokeFilter(accountID string) error {
	if s.Redis == nil {
		return ErrUnavailable
	}
	return s.Redis.Del(s.Ctx, FilterEntitlementKey(accountID)).Err()
}

// PublishSessionEvent публікує подію сесії в Redis Pub/Sub
func (s *Service) PublishSessionEvent(ev SessionEvent) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, config.SessionEventsChannel, payload).Err()
}
