// Package moderation holds the admin-only mutations of the registry.
//
// Every operation takes the caller id first. Callers other than the
// configured admin get ErrUnauthorized, which the bot layer swallows without
// replying, so other users cannot discover the admin commands.
package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/grabber/internal/models"
	"github.com/C4T-BuT-S4D/grabber/internal/storage"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnauthorized  = errors.New("caller is not the admin")
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidHandle = errors.New("invalid channel handle")
)

type Store interface {
	SetUserBlocked(ctx context.Context, telegramID int64, blocked bool) error
	AddChannelLock(ctx context.Context, handle, title string) (bool, error)
	RemoveChannelLock(ctx context.Context, handle string) (bool, error)
	SaveStartupSettings(ctx context.Context, mediaRef string, kind models.MediaKind, caption string) error
	GetStats(ctx context.Context) (*storage.Stats, error)
}

type Service struct {
	store   Store
	adminID int64
	log     *logrus.Entry
}

func New(store Store, adminID int64) *Service {
	return &Service{
		store:   store,
		adminID: adminID,
		log:     logrus.WithField("component", "moderation"),
	}
}

func (s *Service) IsAdmin(callerID int64) bool {
	return s.adminID != 0 && callerID == s.adminID
}

func (s *Service) Authorize(callerID int64) error {
	if !s.IsAdmin(callerID) {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) Block(ctx context.Context, callerID, userID int64) error {
	return s.setBlocked(ctx, callerID, userID, true)
}

func (s *Service) Unblock(ctx context.Context, callerID, userID int64) error {
	return s.setBlocked(ctx, callerID, userID, false)
}

func (s *Service) setBlocked(ctx context.Context, callerID, userID int64, blocked bool) error {
	if err := s.Authorize(callerID); err != nil {
		return err
	}
	if err := s.store.SetUserBlocked(ctx, userID, blocked); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("setting blocked=%v for %d: %w", blocked, userID, err)
	}
	s.log.Infof("user %d blocked=%v", userID, blocked)
	return nil
}

// AddLock reports false when the channel was already locked.
func (s *Service) AddLock(ctx context.Context, callerID int64, handle string) (bool, error) {
	if err := s.Authorize(callerID); err != nil {
		return false, err
	}
	handle = models.NormalizeHandle(handle)
	if handle == "" || handle == "@" {
		return false, ErrInvalidHandle
	}

	added, err := s.store.AddChannelLock(ctx, handle, "")
	if err != nil {
		return false, fmt.Errorf("adding lock %s: %w", handle, err)
	}
	s.log.Infof("lock %s added=%v", handle, added)
	return added, nil
}

// RemoveLock reports false when the channel was not locked.
func (s *Service) RemoveLock(ctx context.Context, callerID int64, handle string) (bool, error) {
	if err := s.Authorize(callerID); err != nil {
		return false, err
	}
	handle = models.NormalizeHandle(handle)
	if handle == "" || handle == "@" {
		return false, ErrInvalidHandle
	}

	removed, err := s.store.RemoveChannelLock(ctx, handle)
	if err != nil {
		return false, fmt.Errorf("removing lock %s: %w", handle, err)
	}
	s.log.Infof("lock %s removed=%v", handle, removed)
	return removed, nil
}

func (s *Service) SetStartupSettings(ctx context.Context, callerID int64, mediaRef string, kind models.MediaKind, caption string) error {
	if err := s.Authorize(callerID); err != nil {
		return err
	}
	if mediaRef == "" {
		return errors.New("empty media reference")
	}
	if kind != models.MediaKindPhoto && kind != models.MediaKindVideo {
		return fmt.Errorf("unsupported banner kind %q", kind)
	}
	if err := s.store.SaveStartupSettings(ctx, mediaRef, kind, caption); err != nil {
		return fmt.Errorf("saving startup settings: %w", err)
	}
	return nil
}

func (s *Service) Stats(ctx context.Context, callerID int64) (*storage.Stats, error) {
	if err := s.Authorize(callerID); err != nil {
		return nil, err
	}
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}
	return stats, nil
}
