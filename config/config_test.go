package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	m := NewManagerWithFs("data/settings.json", afero.NewMemMapFs())

	settings, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderTMDB, settings.PrimaryProvider)
	assert.Equal(t, "data/movies.db", settings.DatabasePath)
	assert.Equal(t, ":8000", settings.ListenAddr)
	assert.Equal(t, 5, settings.PageSize)
	assert.False(t, settings.RefreshProfiles)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewManagerWithFs("data/settings.json", fs)

	want := DefaultSettings()
	want.TelegramToken = "123:abc"
	want.PrimaryProvider = ProviderKinopoisk
	want.KinopoiskAPIKey = "kp-key"
	want.PageSize = 7

	require.NoError(t, m.Save(want))

	got, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEnvOverridesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewManagerWithFs("settings.json", fs)

	saved := DefaultSettings()
	saved.TelegramToken = "from-file"
	require.NoError(t, m.Save(saved))

	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("DATABASE_URL", "postgres://example/db")
	t.Setenv("PORT", "9090")
	t.Setenv("REFRESH_PROFILES", "true")

	got, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", got.TelegramToken)
	assert.Equal(t, "postgres://example/db", got.DatabaseURL)
	assert.Equal(t, ":9090", got.ListenAddr)
	assert.True(t, got.RefreshProfiles)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "settings.json", []byte("{not json"), 0644))

	_, err := NewManagerWithFs("settings.json", fs).Load()
	assert.Error(t, err)
}
