// Package storage holds the collaborators the matching core consults but does
// not own: the profile store and session archive in PostgreSQL, and the
// entitlement flags and session event stream in Redis.
package storage

import (
	"context"
	"errors"
	"time"

	"strangerchat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrUnavailable is returned by write operations whose backend is not
// configured.
var ErrUnavailable = errors.New("storage backend not configured")

type Storage interface {
	SaveUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	SaveUserIfNotExists(telegramID int64) (*models.User, error)
	UpdateProfile(id, displayName, gender string) error

	SaveSessionRecord(rec *models.SessionRecord) error
	CloseSessionRecord(sessionID string, endedAt time.Time, reason string) error
	ListSessionRecords(limit int) ([]models.SessionRecord, error)

	IsFilterEnabled(accountID string) (bool, error)
	GrantFilter(accountID string, ttl time.Duration) error
	RevokeFilter(accountID string) error

	PublishSessionEvent(ev SessionEvent) error
}

// Service implements Storage on gorm and go-redis. Either client may be nil;
// reads against a missing backend report "nothing found" and writes that
// need it return ErrUnavailable.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// OpenPostgres connects to dsn and migrates the profile and archive tables.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.User{}, &models.SessionRecord{}); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenRedis connects to addr and pings it.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
