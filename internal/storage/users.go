package storage

import (
	"errors"
	"strconv"

	"strangerchat/backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SaveUser зберігає користувача в PostgreSQL
func (s *Service) SaveUser(user *models.User) error {
	if s.DB == nil {
		return ErrUnavailable
	}
	return s.DB.Save(user).Error
}

// GetUserByID returns the profile with the given id, or nil if there is none.
func (s *Service) GetUserByID(id string) (*models.User, error) {
	if s.DB == nil || id == "" {
		return nil, nil
	}
	var user models.User
	err := s.DB.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveUserIfNotExists returns the profile linked to a Telegram chat, creating
// it on first contact.
func (s *Service) SaveUserIfNotExists(telegramID int64) (*models.User, error) {
	if s.DB == nil {
		return nil, ErrUnavailable
	}

	var user models.User
	defaults := models.User{TelegramID: &telegramID}
	result := s.DB.Where("telegram_id = ?", telegramID).FirstOrCreate(&user, defaults)
	if result.Error != nil {
		zap.L().Error("failed to save user on first contact",
			zap.String("telegram_id", strconv.FormatInt(telegramID, 10)),
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		zap.L().Info("new user saved", zap.String("user_id", user.ID))
	}
	return &user, nil
}

// UpdateProfile sets the display name and gender of an existing profile.
// Empty values leave the column unchanged.
func (s *Service) UpdateProfile(id, displayName, gender string) error {
	if s.DB == nil {
		return ErrUnavailable
	}
	updates := map[string]any{}
	if displayName != "" {
		updates["display_name"] = displayName
	}
	if gender != "" {
		updates["gender"] = gender
	}
	if len(updates) == 0 {
		return nil
	}

	result := s.DB.Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
