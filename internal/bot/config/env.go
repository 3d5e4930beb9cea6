package config

import (
	"fmt"
	"strconv"
	"strings"
)

// parseEnv applies BOT_TOKEN, CHANNEL_ID, MONGO_URI, STORE_DSN and
// WEBHOOK_URL. STORE_DSN wins over MONGO_URI when both are set.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("BOT_TOKEN"); ok && v != "" {
		config.BotToken = v
	}
	if v, ok := lookup("CHANNEL_ID"); ok && v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid CHANNEL_ID %q: %w", v, err)
		}
		config.ArchiveChatID = id
	}
	if v, ok := lookup("MONGO_URI"); ok && v != "" {
		config.StoreDSN = v
	}
	if v, ok := lookup("STORE_DSN"); ok && v != "" {
		config.StoreDSN = v
	}
	if v, ok := lookup("WEBHOOK_URL"); ok && v != "" {
		config.WebhookURL = v
	}
	return nil
}
