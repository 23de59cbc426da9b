package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is an authenticated account's profile as kept by the profile store.
// Guests never have a row here.
type User struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	TelegramID  *int64         `gorm:"uniqueIndex" json:"-"`
	DisplayName string         `json:"displayName"`
	Gender      string         `json:"gender"`
	Interests   pq.StringArray `gorm:"type:text[]" json:"interests"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not set an ID.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Attribute returns the profile's gender as a matching attribute.
func (u *User) Attribute() Attribute {
	return ParseAttribute(u.Gender)
}
