// Package deeplink packs a media link into a /start payload.
//
// Telegram start parameters allow at most 64 characters from [A-Za-z0-9_-].
// Short links are embedded directly as unpadded base64url; longer ones are
// parked in memory under a random token for a limited time.
package deeplink

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxPayloadLength = 64

	inlinePrefix = "u"
	tokenPrefix  = "t"
)

var ErrUnknownPayload = errors.New("unknown or expired payload")

type parked struct {
	link    string
	expires time.Time
}

type Links struct {
	mu     sync.Mutex
	parked map[string]parked
	ttl    time.Duration
	now    func() time.Time
}

func NewLinks(ttl time.Duration) *Links {
	return &Links{
		parked: make(map[string]parked),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (l *Links) Encode(link string) string {
	encoded := inlinePrefix + base64.RawURLEncoding.EncodeToString([]byte(link))
	if len(encoded) <= MaxPayloadLength {
		return encoded
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")

	l.mu.Lock()
	defer l.mu.Unlock()
	l.parked[token] = parked{link: link, expires: l.now().Add(l.ttl)}

	return tokenPrefix + token
}

func (l *Links) Decode(payload string) (string, error) {
	switch {
	case strings.HasPrefix(payload, inlinePrefix):
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(payload, inlinePrefix))
		if err != nil {
			return "", fmt.Errorf("decoding base64: %w", ErrUnknownPayload)
		}
		if !isLink(raw) {
			return "", ErrUnknownPayload
		}
		return string(raw), nil

	case strings.HasPrefix(payload, tokenPrefix):
		l.mu.Lock()
		defer l.mu.Unlock()

		entry, ok := l.parked[strings.TrimPrefix(payload, tokenPrefix)]
		if !ok || l.now().After(entry.expires) {
			return "", ErrUnknownPayload
		}
		return entry.link, nil

	default:
		return "", ErrUnknownPayload
	}
}

// isLink accepts only what Encode could have been given from an inline
// query: an absolute http(s) URL with a host.
func isLink(raw []byte) bool {
	if len(raw) == 0 || !utf8.Valid(raw) {
		return false
	}
	u, err := url.Parse(string(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Prune drops expired parked links and returns how many were removed.
func (l *Links) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for token, entry := range l.parked {
		if now.After(entry.expires) {
			delete(l.parked, token)
			removed++
		}
	}
	return removed
}
