// Package config handles configuration for the bot: defaults, a JSON or
// YAML config file, command-line flags and environment variables, applied
// in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

var (
	ErrMissingToken   = errors.New("bot token is not set")
	ErrMissingArchive = errors.New("archive chat id is not set")
)

// Config holds runtime settings for the bot process.
//
// Fields:
//   - BotToken / ArchiveChatID: Bot API token and the private channel files are forwarded to.
//   - StoreDSN / MongoDatabase: category store location; see repomanager.Open for schemes.
//   - WebhookURL / WebhookListenAddr: webhook mode; polling is used when WebhookURL is empty.
//   - HealthAddr: bind address of the gRPC health endpoint, empty to disable.
//   - SessionIdleTimeout / SessionSweepSchedule: idle session eviction.
//   - BackupDir / MaxBackups / BackupSchedule: periodic snapshots, BackupSchedule empty to disable.
//   - S3*: optional off-site copy of each backup.
type Config struct {
	BotToken      string
	ArchiveChatID int64

	StoreDSN      string
	MongoDatabase string

	WebhookURL        string
	WebhookListenAddr string
	HealthAddr        string

	LogBackend string
	LogFormat  string
	LogLevel   string

	PageSize           int
	MaxConcurrentUsers int
	MaxQueuePerUser    int
	RetryDelay         time.Duration

	SessionIdleTimeout   time.Duration
	SessionSweepSchedule string

	BackupDir      string
	MaxBackups     int
	BackupSchedule string

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	S3Prefix       string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.StoreDSN = "sqlite:filestash.db"
	c.MongoDatabase = "telegram_storage_bot"
	c.WebhookListenAddr = ":10000"
	c.HealthAddr = ":50051"
	c.LogBackend = "slog"
	c.LogFormat = "json"
	c.LogLevel = "info"
	c.PageSize = 10
	c.MaxConcurrentUsers = 64
	c.MaxQueuePerUser = 100
	c.RetryDelay = 500 * time.Millisecond
	c.SessionIdleTimeout = 24 * time.Hour
	c.SessionSweepSchedule = "@every 10m"
	c.BackupDir = "backups"
	c.MaxBackups = 10
	c.BackupSchedule = "@daily"
	c.S3Region = "us-east-1"
	c.S3Prefix = "filestash/"
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.BotToken) == "" {
		errs = append(errs, ErrMissingToken)
	}
	if c.ArchiveChatID == 0 {
		errs = append(errs, ErrMissingArchive)
	}
	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("page size must be positive, got %d", c.PageSize))
	}
	if c.MaxBackups < 1 {
		errs = append(errs, fmt.Errorf("max backups must be positive, got %d", c.MaxBackups))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config from defaults, then the config file named by
// -c/-config, then flags, then the environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.LookupEnv)
}

// Load is LoadConfig over explicit arguments and environment lookup.
func Load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}
