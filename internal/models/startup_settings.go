package models

import "time"

type MediaKind string

const (
	MediaKindPhoto MediaKind = "photo"
	MediaKindVideo MediaKind = "video"
)

// StartupSettingsID pins the settings table to a single row.
const StartupSettingsID = 1

type StartupSettings struct {
	ID        uint `gorm:"primaryKey;autoIncrement:false"`
	MediaRef  string
	MediaKind MediaKind
	Caption   string
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (StartupSettings) TableName() string {
	return "startup_settings"
}
