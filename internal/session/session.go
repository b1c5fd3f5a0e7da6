package session

import (
	"sync"
	"time"

	"github.com/C4T-BuT-S4D/grabber/internal/media"
)

type State int

const (
	StateIdle State = iota
	StateAwaitingLink
)

func (s State) String() string {
	switch s {
	case StateAwaitingLink:
		return "awaiting_link"
	default:
		return "idle"
	}
}

// Context is the per-user menu state. It is informational only: free text is
// treated as a link whatever the stored platform is.
type Context struct {
	State     State
	Platform  media.Platform
	UpdatedAt time.Time
}

// Store keeps contexts in memory. Values are replaced, never mutated, so
// updates for different users never contend.
type Store struct {
	contexts sync.Map // int64 -> Context
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

func (s *Store) Get(userID int64) Context {
	v, ok := s.contexts.Load(userID)
	if !ok {
		return Context{State: StateIdle}
	}
	return v.(Context)
}

func (s *Store) SelectPlatform(userID int64, platform media.Platform) Context {
	c := Context{State: StateAwaitingLink, Platform: platform, UpdatedAt: s.now()}
	s.contexts.Store(userID, c)
	return c
}

func (s *Store) Back(userID int64) Context {
	c := Context{State: StateIdle, UpdatedAt: s.now()}
	s.contexts.Store(userID, c)
	return c
}

// Prune drops contexts untouched for longer than ttl and returns how many
// were removed.
func (s *Store) Prune(ttl time.Duration) int {
	deadline := s.now().Add(-ttl)
	removed := 0
	s.contexts.Range(func(key, value any) bool {
		if value.(Context).UpdatedAt.Before(deadline) {
			s.contexts.CompareAndDelete(key, value)
			removed++
		}
		return true
	})
	return removed
}
