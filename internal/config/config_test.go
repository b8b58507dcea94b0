package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, format validations and defaults.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing URL.
	require.Error(t, Validate(new(Config)))
	require.Error(t, Validate(nil))

	// Bad URL.
	require.Error(t, Validate(&Config{BackendURL: "not a url"}))
	require.Error(t, Validate(&Config{BackendURL: "ftp://backend.local"}))

	// Half-set static location.
	lat := 51.509
	settings := &Config{
		BackendURL: "https://api.guardian.local",
		Location:   Location{Latitude: &lat},
	}
	require.Error(t, Validate(settings))

	// Okay with defaults filled.
	settings = &Config{BackendURL: "http://127.0.0.1:8080/api"}
	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultPollInterval, settings.PollInterval)
	require.Equal(t, DefaultFixMaxAge, settings.Location.MaxAge)
	require.Equal(t, DefaultAcquireTimeout, settings.Location.AcquireTimeout)
	require.Equal(t, DefaultDraftFilename, settings.DraftFile)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	lat, lng := 51.509, -0.118
	settings := &Config{
		BackendURL:   "https://api.guardian.local",
		PollInterval: 10 * time.Second,
		Location: Location{
			Latitude:  &lat,
			Longitude: &lng,
			Accuracy:  15,
		},
		Token: "never-written",
	}

	require.NoError(t, Save(path, settings))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(contents), "never-written")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.BackendURL, loaded.BackendURL)
	require.Equal(t, 10*time.Second, loaded.PollInterval)
	require.InDelta(t, lat, *loaded.Location.Latitude, 1e-9)
	require.InDelta(t, lng, *loaded.Location.Longitude, 1e-9)
}

// TestLoadToken reads the token from a dotenv file when the environment lacks it.
func TestLoadToken(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")

	t.Setenv(TokenEnv, "")

	token, err := LoadToken(envFile)
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, os.WriteFile(envFile, []byte(TokenEnv+"=from-file\n"), DefaultFilePermissions))

	token, err = LoadToken(envFile)
	require.NoError(t, err)
	require.Equal(t, "from-file", token)

	t.Setenv(TokenEnv, "from-env")

	token, err = LoadToken(envFile)
	require.NoError(t, err)
	require.Equal(t, "from-env", token)
}
