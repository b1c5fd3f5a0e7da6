package models

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	TelegramID int64 `gorm:"primaryKey;autoIncrement:false"`
	FullName   string
	Username   string
	Blocked    bool `gorm:"not null;default:false;index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Handle renders the username the way Telegram shows it, or "-" when absent.
func (u *User) Handle() string {
	if u.Username == "" {
		return "-"
	}
	return "@" + strings.TrimPrefix(u.Username, "@")
}

func (u *User) String() string {
	return fmt.Sprintf("User(%d, %q, %s, blocked=%v)", u.TelegramID, u.FullName, u.Handle(), u.Blocked)
}
