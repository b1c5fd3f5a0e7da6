package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/grabber/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("not found")

type Storage struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.ChannelLock{},
		&models.StartupSettings{},
	); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting sql db: %w", err)
	}
	return sqlDB.Close()
}

func (s *Storage) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &user, nil
}

// GetOrCreateUser registers the user on first contact. The returned flag is
// true only for the call that actually inserted the row.
func (s *Storage) GetOrCreateUser(ctx context.Context, telegramID int64, fullName, username string) (*models.User, bool, error) {
	userToCreate := &models.User{
		TelegramID: telegramID,
		FullName:   fullName,
		Username:   username,
	}

	var (
		user    models.User
		created bool
	)
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "telegram_id"}},
				DoNothing: true,
			}).
			Create(userToCreate)
		if res.Error != nil {
			return fmt.Errorf("creating user: %w", res.Error)
		}
		created = res.RowsAffected == 1

		if err := tx.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
			return fmt.Errorf("getting user: %w", err)
		}
		return nil
	}); err != nil {
		return nil, false, fmt.Errorf("in tx: %w", err)
	}

	return &user, created, nil
}

func (s *Storage) SetUserBlocked(ctx context.Context, telegramID int64, blocked bool) error {
	res := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Update("blocked", blocked)
	if res.Error != nil {
		return fmt.Errorf("updating user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveUsers pages through non-blocked users ordered by id, starting
// after afterID.
func (s *Storage) ListActiveUsers(ctx context.Context, afterID int64, limit int) ([]models.User, error) {
	var result []models.User
	if err := s.db.
		WithContext(ctx).
		Where("blocked = ? AND telegram_id > ?", false, afterID).
		Order("telegram_id").
		Limit(limit).
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return result, nil
}

type Stats struct {
	Users   int64 `json:"users"`
	Blocked int64 `json:"blocked"`
	Locks   int64 `json:"locks"`
}

func (s *Storage) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&stats.Users).Error; err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	if err := db.Model(&models.User{}).Where("blocked = ?", true).Count(&stats.Blocked).Error; err != nil {
		return nil, fmt.Errorf("counting blocked users: %w", err)
	}
	if err := db.Model(&models.ChannelLock{}).Count(&stats.Locks).Error; err != nil {
		return nil, fmt.Errorf("counting locks: %w", err)
	}
	return &stats, nil
}

func (s *Storage) ListChannelLocks(ctx context.Context) ([]models.ChannelLock, error) {
	var result []models.ChannelLock
	if err := s.db.WithContext(ctx).Order("id").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("listing channel locks: %w", err)
	}
	return result, nil
}

// AddChannelLock inserts the lock unless it is already present. The returned
// flag reports whether a row was added.
func (s *Storage) AddChannelLock(ctx context.Context, handle, title string) (bool, error) {
	res := s.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "handle"}},
			DoNothing: true,
		}).
		Create(&models.ChannelLock{Handle: handle, Title: title})
	if res.Error != nil {
		return false, fmt.Errorf("creating channel lock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RemoveChannelLock deletes the lock if present. The returned flag reports
// whether a row was removed.
func (s *Storage) RemoveChannelLock(ctx context.Context, handle string) (bool, error) {
	res := s.db.WithContext(ctx).Where("handle = ?", handle).Delete(&models.ChannelLock{})
	if res.Error != nil {
		return false, fmt.Errorf("deleting channel lock: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Storage) GetStartupSettings(ctx context.Context) (*models.StartupSettings, error) {
	var settings models.StartupSettings
	if err := s.db.
		WithContext(ctx).
		Where("id = ?", models.StartupSettingsID).
		First(&settings).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting startup settings: %w", err)
	}
	return &settings, nil
}

func (s *Storage) SaveStartupSettings(ctx context.Context, mediaRef string, kind models.MediaKind, caption string) error {
	settings := &models.StartupSettings{
		ID:        models.StartupSettingsID,
		MediaRef:  mediaRef,
		MediaKind: kind,
		Caption:   caption,
	}
	if err := s.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"media_ref", "media_kind", "caption", "updated_at"}),
		}).
		Create(settings).
		Error; err != nil {
		return fmt.Errorf("saving startup settings: %w", err)
	}
	return nil
}
