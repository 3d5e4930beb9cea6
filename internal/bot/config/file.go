package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/filestash/internal/flagx"
	"github.com/dmitrijs2005/filestash/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Config. Durations accept "90s" style
// strings or integer nanoseconds. Zero values leave the current setting
// untouched.
type FileConfig struct {
	BotToken      string `json:"bot_token" yaml:"bot_token"`
	ArchiveChatID int64  `json:"channel_id" yaml:"channel_id"`

	StoreDSN      string `json:"store_dsn" yaml:"store_dsn"`
	MongoDatabase string `json:"mongo_database" yaml:"mongo_database"`

	WebhookURL        string `json:"webhook_url" yaml:"webhook_url"`
	WebhookListenAddr string `json:"webhook_listen_addr" yaml:"webhook_listen_addr"`
	HealthAddr        string `json:"health_addr" yaml:"health_addr"`

	LogBackend string `json:"log_backend" yaml:"log_backend"`
	LogFormat  string `json:"log_format" yaml:"log_format"`
	LogLevel   string `json:"log_level" yaml:"log_level"`

	PageSize           int            `json:"page_size" yaml:"page_size"`
	MaxConcurrentUsers int            `json:"max_concurrent_users" yaml:"max_concurrent_users"`
	MaxQueuePerUser    int            `json:"max_queue_per_user" yaml:"max_queue_per_user"`
	RetryDelay         timex.Duration `json:"retry_delay" yaml:"retry_delay"`

	SessionIdleTimeout   timex.Duration `json:"session_idle_timeout" yaml:"session_idle_timeout"`
	SessionSweepSchedule string         `json:"session_sweep_schedule" yaml:"session_sweep_schedule"`

	BackupDir      string `json:"backup_dir" yaml:"backup_dir"`
	MaxBackups     int    `json:"max_backups" yaml:"max_backups"`
	BackupSchedule string `json:"backup_schedule" yaml:"backup_schedule"`

	S3Bucket       string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region       string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3AccessKey    string `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Prefix       string `json:"s3_prefix" yaml:"s3_prefix"`
}

// parseFile overlays the file named by -c or -config. Files ending in .yaml
// or .yml are read as YAML, anything else as JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.BotToken, c.BotToken)
	if c.ArchiveChatID != 0 {
		config.ArchiveChatID = c.ArchiveChatID
	}
	setString(&config.StoreDSN, c.StoreDSN)
	setString(&config.MongoDatabase, c.MongoDatabase)
	setString(&config.WebhookURL, c.WebhookURL)
	setString(&config.WebhookListenAddr, c.WebhookListenAddr)
	setString(&config.HealthAddr, c.HealthAddr)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
	setInt(&config.PageSize, c.PageSize)
	setInt(&config.MaxConcurrentUsers, c.MaxConcurrentUsers)
	setInt(&config.MaxQueuePerUser, c.MaxQueuePerUser)
	if c.RetryDelay.Duration > 0 {
		config.RetryDelay = c.RetryDelay.Duration
	}
	if c.SessionIdleTimeout.Duration > 0 {
		config.SessionIdleTimeout = c.SessionIdleTimeout.Duration
	}
	setString(&config.SessionSweepSchedule, c.SessionSweepSchedule)
	setString(&config.BackupDir, c.BackupDir)
	setInt(&config.MaxBackups, c.MaxBackups)
	setString(&config.BackupSchedule, c.BackupSchedule)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Prefix, c.S3Prefix)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
