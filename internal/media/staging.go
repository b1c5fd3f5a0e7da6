package media

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Staging hands out one private directory per request, so concurrent
// downloads of the same link never share output paths.
type Staging struct {
	root string
	log  *logrus.Entry
}

func NewStaging(root string) (*Staging, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving staging dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging dir %q: %w", abs, err)
	}
	return &Staging{
		root: abs,
		log:  logrus.WithField("component", "staging"),
	}, nil
}

type Slot struct {
	Token string
	Dir   string
}

func (s *Staging) Reserve() (*Slot, error) {
	token := uuid.NewString()
	dir := filepath.Join(s.root, token)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating slot %s: %w", token, err)
	}
	return &Slot{Token: token, Dir: dir}, nil
}

func (s *Staging) Release(slot *Slot) {
	if err := os.RemoveAll(slot.Dir); err != nil {
		s.log.Warnf("removing slot %s: %v", slot.Token, err)
	}
}

// Sweep removes slots older than ttl left behind by crashed or killed
// fetches. It returns the number of removed slots.
func (s *Staging) Sweep(ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("reading staging dir: %w", err)
	}

	deadline := time.Now().Add(-ttl)
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(deadline) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			s.log.Warnf("sweeping %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}
