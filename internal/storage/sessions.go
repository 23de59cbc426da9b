package storage

import (
	"time"

	"strangerchat/backend/internal/models"
)

func (s *Service) SaveSessionRecord(rec *models.SessionRecord) error {
	if s.DB == nil {
		return ErrUnavailable
	}
	return s.DB.Create(rec).Error
}

// CloseSessionRecord stamps the end of an archived session.
func (s *Service) CloseSessionRecord(sessionID string, endedAt time.Time, reason string) error {
	if s.DB == nil {
		return ErrUnavailable
	}
	return s.DB.Model(&models.SessionRecord{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"ended_at":   endedAt,
			"end_reason": reason,
		}).Error
}

// ListSessionRecords returns the most recently started sessions first.
func (s *Service) ListSessionRecords(limit int) ([]models.SessionRecord, error) {
	if s.DB == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 20
	}
	var recs []models.SessionRecord
	if err := s.DB.Order("started_at desc").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
