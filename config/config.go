package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// Provider names accepted by Settings.PrimaryProvider.
const (
	ProviderTMDB      = "tmdb"
	ProviderKinopoisk = "kinopoisk"
)

// Settings is the full on-disk configuration. Environment variables override the file
// on every Load; everything is read once at process start and never re-read.
type Settings struct {
	TelegramToken   string `json:"telegramToken"`
	TMDBAPIKey      string `json:"tmdbApiKey,omitempty"`
	KinopoiskAPIKey string `json:"kinopoiskApiKey,omitempty"`
	PrimaryProvider string `json:"primaryProvider"`
	DatabaseURL     string `json:"databaseUrl,omitempty"`
	DatabasePath    string `json:"databasePath"`
	WebhookURL      string `json:"webhookUrl,omitempty"`
	WebhookSecret   string `json:"webhookSecret,omitempty"`
	ListenAddr      string `json:"listenAddr"`
	LogPath         string `json:"logPath,omitempty"`
	RefreshProfiles bool   `json:"refreshProfiles"`
	PageSize        int    `json:"pageSize"`
}

// DefaultSettings returns the configuration used when no settings file exists yet.
func DefaultSettings() Settings {
	return Settings{
		PrimaryProvider: ProviderTMDB,
		DatabasePath:    "data/movies.db",
		ListenAddr:      ":8000",
		PageSize:        5,
	}
}

// Manager loads and saves the settings file. The filesystem is injectable so tests run
// against an in-memory fs.
type Manager struct {
	path string
	fs   afero.Fs
	mu   sync.Mutex
}

// NewManager returns a manager over the OS filesystem.
func NewManager(path string) *Manager {
	return NewManagerWithFs(path, afero.NewOsFs())
}

// NewManagerWithFs returns a manager over the supplied filesystem.
func NewManagerWithFs(path string, fs afero.Fs) *Manager {
	return &Manager{path: path, fs: fs}
}

// Load reads the settings file (falling back to defaults when it does not exist) and
// applies environment overrides on top.
func (m *Manager) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings := DefaultSettings()

	data, err := afero.ReadFile(m.fs, m.path)
	switch {
	case os.IsNotExist(err):
		// First run; defaults plus env is the whole configuration.
	case err != nil:
		return Settings{}, fmt.Errorf("read settings: %w", err)
	default:
		if err := json.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("parse settings: %w", err)
		}
	}

	applyEnv(&settings)

	if settings.PageSize <= 0 {
		settings.PageSize = DefaultSettings().PageSize
	}
	if settings.ListenAddr == "" {
		settings.ListenAddr = DefaultSettings().ListenAddr
	}
	return settings, nil
}

// Save writes the settings file, creating parent directories as needed.
func (m *Manager) Save(settings Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir := filepath.Dir(m.path); dir != "" && dir != "." {
		if err := m.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := afero.WriteFile(m.fs, m.path, data, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func applyEnv(s *Settings) {
	setString(&s.TelegramToken, "TELEGRAM_BOT_TOKEN")
	setString(&s.TMDBAPIKey, "TMDB_API_KEY")
	setString(&s.KinopoiskAPIKey, "KINOPOISK_API_KEY")
	setString(&s.PrimaryProvider, "PRIMARY_PROVIDER")
	setString(&s.DatabaseURL, "DATABASE_URL")
	setString(&s.DatabasePath, "DATABASE_PATH")
	setString(&s.WebhookURL, "WEBHOOK_URL")
	setString(&s.WebhookSecret, "WEBHOOK_SECRET")
	setString(&s.LogPath, "LOG_PATH")

	if port := os.Getenv("PORT"); port != "" {
		s.ListenAddr = ":" + port
	}
	if v := os.Getenv("REFRESH_PROFILES"); v == "1" || v == "true" {
		s.RefreshProfiles = true
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
