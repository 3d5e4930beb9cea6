package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "sqlite:filestash.db", c.StoreDSN)
	assert.Equal(t, "telegram_storage_bot", c.MongoDatabase)
	assert.Equal(t, 10, c.PageSize)
	assert.Equal(t, 10, c.MaxBackups)
	assert.Equal(t, 24*time.Hour, c.SessionIdleTimeout)
	assert.Empty(t, c.BotToken)
	assert.Empty(t, c.WebhookURL)
}

func TestLoad_NothingSet(t *testing.T) {
	c, err := Load(nil, env(nil))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), c))
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "bot.json", `{
		"bot_token": "file-token",
		"channel_id": -1001,
		"store_dsn": "memory:",
		"page_size": 5,
		"retry_delay": "2s",
		"session_idle_timeout": "1h",
		"backup_schedule": "@hourly"
	}`)

	args := []string{"-c", path, "-t", "flag-token", "-p", "7", "-unknown", "x"}
	c, err := Load(args, env(map[string]string{"CHANNEL_ID": "-1002"}))
	require.NoError(t, err)

	want := defaults()
	want.BotToken = "flag-token"
	want.ArchiveChatID = -1002
	want.StoreDSN = "memory:"
	want.PageSize = 7
	want.RetryDelay = 2 * time.Second
	want.SessionIdleTimeout = time.Hour
	want.BackupSchedule = "@hourly"

	assert.Empty(t, cmp.Diff(want, c))
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "bot.yaml", `
bot_token: yaml-token
channel_id: -42
webhook_url: https://example.org/telegram
log_backend: zap
max_backups: 3
session_idle_timeout: 30m
`)

	c, err := Load([]string{"-config=" + path}, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "yaml-token", c.BotToken)
	assert.Equal(t, int64(-42), c.ArchiveChatID)
	assert.Equal(t, "https://example.org/telegram", c.WebhookURL)
	assert.Equal(t, "zap", c.LogBackend)
	assert.Equal(t, 3, c.MaxBackups)
	assert.Equal(t, 30*time.Minute, c.SessionIdleTimeout)
	assert.Equal(t, "json", c.LogFormat, "unset keys keep defaults")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")}, env(nil))
	assert.ErrorContains(t, err, "read config file")

	bad := writeFile(t, "bad.json", `{"page_size": "ten"}`)
	_, err = Load([]string{"-c", bad}, env(nil))
	assert.ErrorContains(t, err, "parse config file")

	_, err = Load([]string{"-p", "many"}, env(nil))
	assert.ErrorContains(t, err, "parse flags")

	_, err = Load(nil, env(map[string]string{"CHANNEL_ID": "@channel"}))
	assert.ErrorContains(t, err, "invalid CHANNEL_ID")
}

func TestParseFlags(t *testing.T) {
	c := defaults()
	args := []string{"-t", "tok", "-k=-100500", "-d", "postgres://u:p@db/stash", "-w", "https://h/telegram",
		"-l", ":8443", "-a", "", "-v", "debug", "-p", "20", "-b", "/var/backups"}

	require.NoError(t, parseFlags(c, args))

	want := defaults()
	want.BotToken = "tok"
	want.ArchiveChatID = -100500
	want.StoreDSN = "postgres://u:p@db/stash"
	want.WebhookURL = "https://h/telegram"
	want.WebhookListenAddr = ":8443"
	want.HealthAddr = ""
	want.LogLevel = "debug"
	want.PageSize = 20
	want.BackupDir = "/var/backups"

	assert.Empty(t, cmp.Diff(want, c))
}

func TestParseEnv(t *testing.T) {
	c := defaults()
	require.NoError(t, parseEnv(c, env(map[string]string{
		"BOT_TOKEN":   "env-token",
		"CHANNEL_ID":  " -100777 ",
		"MONGO_URI":   "mongodb://localhost:27017",
		"WEBHOOK_URL": "",
	})))

	assert.Equal(t, "env-token", c.BotToken)
	assert.Equal(t, int64(-100777), c.ArchiveChatID)
	assert.Equal(t, "mongodb://localhost:27017", c.StoreDSN)
	assert.Empty(t, c.WebhookURL)

	require.NoError(t, parseEnv(c, env(map[string]string{
		"MONGO_URI": "mongodb://localhost:27017",
		"STORE_DSN": "sqlite:/data/stash.db",
	})))
	assert.Equal(t, "sqlite:/data/stash.db", c.StoreDSN)
}

func TestValidate(t *testing.T) {
	c := defaults()
	err := c.Validate()
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.ErrorIs(t, err, ErrMissingArchive)

	c.BotToken = "t"
	c.ArchiveChatID = -1
	assert.NoError(t, c.Validate())

	c.PageSize = 0
	assert.ErrorContains(t, c.Validate(), "page size")
}
