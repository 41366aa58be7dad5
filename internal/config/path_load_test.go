package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.yaml"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "drai", "config.yaml"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "drai", "config.yaml"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvLegacyAPIKey, "")
	path := filepath.Join(t.TempDir(), "missing.yaml")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingYAMLParsesAndValidates(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvLegacyAPIKey, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
gemini:
  endpoint: https://example.test
audio:
  input: "USB Mic"
  fallback: default
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "https://example.test", loaded.Config.Gemini.Endpoint)
	require.Equal(t, "USB Mic", loaded.Config.Audio.Input)
	require.Empty(t, loaded.Config.Gemini.APIKey)
}

func TestLoadEnvironmentKeyOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gemini:\n  api_key: from-file\n"), 0o600))

	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvLegacyAPIKey, "legacy-key")
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "legacy-key", loaded.Config.Gemini.APIKey)
	require.Equal(t, EnvLegacyAPIKey, loaded.Config.Gemini.APIKeySource)

	t.Setenv(EnvAPIKey, "primary-key")
	loaded, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "primary-key", loaded.Config.Gemini.APIKey)
	require.Equal(t, EnvAPIKey, loaded.Config.Gemini.APIKeySource)

	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvLegacyAPIKey, "")
	loaded, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-file", loaded.Config.Gemini.APIKey)
	require.Equal(t, "config", loaded.Config.Gemini.APIKeySource)
}

func TestLoadMissingConfigStillReadsEnvironment(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-only")
	loaded, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "env-only", loaded.Config.Gemini.APIKey)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gemini: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}

func TestApplyEnvIgnoresBlankValues(t *testing.T) {
	cfg := Default()
	cfg.Gemini.APIKey = "kept"
	ApplyEnv(&cfg, func(name string) (string, bool) {
		return "   ", true
	})
	require.Equal(t, "kept", cfg.Gemini.APIKey)
}
