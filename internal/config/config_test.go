package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Second, cfg.NoticeUnit)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "folio.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9000\"\nnotice_unit: 250ms\nlog_level: debug\n"), 0o600))
	t.Setenv("PORT", "9100")
	t.Setenv("SESSION_TTL", "5m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.NoticeUnit)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TO_EMAIL=me@example.com\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TO_EMAIL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", cfg.ToEmail)
}

func TestValidate_Production(t *testing.T) {
	cfg := Default()
	cfg.Env = "production"
	assert.Error(t, cfg.Validate())

	cfg.AdminSecret = "0123456789abcdef0123456789abcdef"
	assert.Error(t, cfg.Validate())

	cfg.AdminPasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	cfg := Default()
	cfg.NoticeUnit = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MaxSessions = -1
	assert.Error(t, cfg.Validate())
}

func TestLoad_MaxSessionsFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MAX_SESSIONS", "250")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.MaxSessions)
}

func TestLoad_MalformedFileKeepsCause(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "folio.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: reading "+path)
	assert.NotEqual(t, err, errors.Cause(err))
}

func TestYAML_OmitsSecrets(t *testing.T) {
	cfg := Default()
	cfg.SMTPPass = "hunter2"

	data, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "port:")
	assert.NotContains(t, string(data), "hunter2")
	assert.NotContains(t, string(data), cfg.AdminSecret)
}

// chdir mirrors testing.T.Chdir (Go 1.24+): switch the working directory
// for the duration of the test and restore it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
