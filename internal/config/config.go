package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ContentBackend selects which content store implementation runs.
type ContentBackend string

const (
	// BackendFile keeps the whole catalog in one JSON snapshot.
	BackendFile ContentBackend = "file"
	// BackendSQLite keeps each entity type in its own sqlite collection.
	BackendSQLite ContentBackend = "sqlite"
)

type (
	Config struct {
		HTTP
		Global
		Content
		Spotify
		Auth
		Sync
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Content struct {
		Backend      ContentBackend
		SnapshotPath string // file backend: path of the JSON document
		DatabasePath string // sqlite backend: path of the database file
	}
	Spotify struct {
		ClientID     string
		ClientSecret string
		ArtistID     string
		Market       string
	}
	Auth struct {
		SessionSecret   string // Auto-generated if empty
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS
	}
	Sync struct {
		Enabled  bool
		Schedule string // Cron format: "0 */6 * * *" = every 6 hours
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	v.SetDefault("content_backend", string(BackendSQLite))
	v.SetDefault("content_snapshot_path", "./data/content.json")
	v.SetDefault("database_path", "./data/catalog.db")

	v.SetDefault("spotify_market", "MX")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")
	v.SetDefault("auth_session_lifetime", "168h") // one week, like the site cookie
	v.SetDefault("auth_secure_cookies", true)

	// Background catalog refresh defaults
	v.SetDefault("spotify_sync_enabled", false)
	v.SetDefault("spotify_sync_schedule", "0 */6 * * *")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Content: Content{
			Backend:      ContentBackend(strings.ToLower(v.GetString("CONTENT_BACKEND"))),
			SnapshotPath: v.GetString("CONTENT_SNAPSHOT_PATH"),
			DatabasePath: v.GetString("DATABASE_PATH"),
		},
		Spotify: Spotify{
			ClientID:     strings.TrimSpace(v.GetString("SPOTIFY_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(v.GetString("SPOTIFY_CLIENT_SECRET")),
			ArtistID:     strings.TrimSpace(v.GetString("SPOTIFY_ARTIST_ID")),
			Market:       strings.ToUpper(strings.TrimSpace(v.GetString("SPOTIFY_MARKET"))),
		},
		Auth: Auth{
			SessionSecret:   v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
		},
		Sync: Sync{
			Enabled:  v.GetBool("SPOTIFY_SYNC_ENABLED"),
			Schedule: v.GetString("SPOTIFY_SYNC_SCHEDULE"),
		},
	}
}
