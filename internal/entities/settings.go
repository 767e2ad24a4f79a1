package entities

// SettingsKey is the well-known key of the settings singleton.
const SettingsKey = "global"

// Settings is the global site configuration. There is exactly one
// settings document; writing it cascades the artist name onto every
// album and release.
type Settings struct {
	Key        string `gorm:"primaryKey;size:32" json:"-"`
	ArtistName string `json:"artistName"`
}

func (Settings) TableName() string {
	return "settings"
}
