package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// isolate runs the test in an empty directory with no ferry variables set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, name := range []string{"FERRY_PATH", "GITHUB_TOKEN", "FERRY_SOURCE_PROJECT", "FERRY_TARGET_REPO", "FERRY_RETRY_MAX_ATTEMPTS"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://%s.codeplex.com", cfg.Source.BaseURL)
	assert.Equal(t, 100, cfg.Source.PageSize)
	assert.Equal(t, -1, cfg.Import.MaxCount)
	assert.Equal(t, 60*1024, cfg.Import.BodyLimit)
	assert.Equal(t, 2*time.Second, cfg.Import.CommentPause)
	assert.Equal(t, 10*time.Second, cfg.Retry.Interval)
	assert.Equal(t, 60, cfg.Retry.MaxAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.ConfigFile)
	assert.False(t, cfg.EnvVarSet)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, ".ferry"), cfg.Staging.Dir)
	assert.Equal(t, filepath.Join(wd, ".ferry", "staging.db"), cfg.DBPath())
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "ferry.yaml")
	content := `
source:
  project: widgets
  page_size: 25
target:
  repo: acme/widgets
import:
  skip_closed: true
  comment_pause: 500ms
retry:
  interval: 3s
  max_attempts: 0
staging:
  dir: /tmp/ferry-stage
usermap: users.txt
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "widgets", cfg.Source.Project)
	assert.Equal(t, 25, cfg.Source.PageSize)
	assert.Equal(t, "acme/widgets", cfg.Target.Repo)
	assert.True(t, cfg.Import.SkipClosed)
	assert.Equal(t, 500*time.Millisecond, cfg.Import.CommentPause)
	assert.Equal(t, 3*time.Second, cfg.Retry.Interval)
	assert.Equal(t, 0, cfg.Retry.MaxAttempts)
	assert.Equal(t, "/tmp/ferry-stage", cfg.Staging.Dir)
	assert.Equal(t, "users.txt", cfg.UserMap)
}

func TestLoadSearchesFerryDir(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".ferry"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ferry", "config.yaml"), []byte("source:\n  project: found\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "found", cfg.Source.Project)
	assert.NotEmpty(t, cfg.ConfigFile)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("FERRY_SOURCE_PROJECT", "from-env")
	t.Setenv("FERRY_RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("FERRY_PATH", "/tmp/ferry-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Source.Project)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, "/tmp/ferry-env", cfg.Staging.Dir)
	assert.True(t, cfg.EnvVarSet)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FERRY_TARGET_REPO=acme/dotenv\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "acme/dotenv", cfg.Target.Repo)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: [unterminated"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Staging.Dir = filepath.Join(dir, ".ferry")

	ok, err := cfg.Exists()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.MkdirAll(cfg.Staging.Dir, 0o755))
	ok, err = cfg.Exists()
	require.NoError(t, err)
	assert.False(t, ok, "directory without database")

	require.NoError(t, os.WriteFile(cfg.DBPath(), nil, 0o644))
	ok, err = cfg.Exists()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero page size", mutate: func(c *Config) { c.Source.PageSize = 0 }, wantErr: "source.page_size"},
		{name: "zero body limit", mutate: func(c *Config) { c.Import.BodyLimit = 0 }, wantErr: "import.body_limit"},
		{name: "negative attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = -1 }, wantErr: "retry.max_attempts"},
		{name: "unlimited attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSourceAndTarget(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.ValidateSource())
	assert.Error(t, cfg.ValidateTarget())

	cfg.Source.Project = "widgets"
	cfg.Target.Repo = "acme/widgets"
	assert.NoError(t, cfg.ValidateSource())
	assert.NoError(t, cfg.ValidateTarget())
}

func TestTokenResolution(t *testing.T) {
	keyring.MockInit()
	t.Setenv("GITHUB_TOKEN", "")

	cfg := Default()
	_, _, err := cfg.Token()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, SetToken("from-keychain"))
	token, src, err := cfg.Token()
	require.NoError(t, err)
	assert.Equal(t, "from-keychain", token)
	assert.Equal(t, TokenFromKeychain, src)

	cfg.Target.Token = "from-config"
	token, src, err = cfg.Token()
	require.NoError(t, err)
	assert.Equal(t, "from-config", token)
	assert.Equal(t, TokenFromConfig, src)

	t.Setenv("GITHUB_TOKEN", "from-env")
	token, src, err = cfg.Token()
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)
	assert.Equal(t, TokenFromEnv, src)
}

func TestSetAndDeleteToken(t *testing.T) {
	keyring.MockInit()

	assert.Error(t, SetToken(""))
	require.NoError(t, SetToken("abc"))

	got, err := keyring.Get(KeyringService, KeyringTokenItem)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	require.NoError(t, DeleteToken())
	require.NoError(t, DeleteToken(), "deleting twice is fine")

	_, err = keyring.Get(KeyringService, KeyringTokenItem)
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}
