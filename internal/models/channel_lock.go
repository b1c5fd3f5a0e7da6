package models

import (
	"strings"
	"time"
)

type ChannelLock struct {
	ID        uint   `gorm:"primaryKey"`
	Handle    string `gorm:"uniqueIndex;not null"`
	Title     string
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Recipient lets the lock be passed directly to telebot as a chat reference.
func (l *ChannelLock) Recipient() string {
	return l.Handle
}

// JoinURL is the public t.me link for the channel.
func (l *ChannelLock) JoinURL() string {
	return "https://t.me/" + strings.TrimPrefix(l.Handle, "@")
}

// Label is what users see on the join button.
func (l *ChannelLock) Label() string {
	if l.Title != "" {
		return l.Title
	}
	return l.Handle
}

// NormalizeHandle trims the input, strips t.me links and lower-cases
// usernames with a leading "@". Numeric chat ids (e.g. -1001234567890) are
// kept as is.
func NormalizeHandle(raw string) string {
	h := strings.TrimSpace(raw)
	for _, prefix := range []string{"https://", "http://", "www.", "t.me/", "telegram.me/"} {
		if strings.HasPrefix(strings.ToLower(h), prefix) {
			h = h[len(prefix):]
		}
	}
	h = strings.TrimSuffix(h, "/")
	if h == "" || strings.HasPrefix(h, "-") {
		return h
	}
	return "@" + strings.ToLower(strings.TrimPrefix(h, "@"))
}
