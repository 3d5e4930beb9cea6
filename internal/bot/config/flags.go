package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/filestash/internal/flagx"
)

// parseFlags overlays the short command-line flags:
//
//	-t string   bot token
//	-k int      archive channel id (negative ids need the -k=-100... form)
//	-d string   store DSN
//	-w string   webhook URL
//	-l string   webhook listen address
//	-a string   gRPC health address
//	-v string   log level
//	-p int      files per page
//	-b string   backup directory
//
// Other arguments are ignored so the config file flag can live alongside.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-t", "-k", "-d", "-w", "-l", "-a", "-v", "-p", "-b"})

	fs := flag.NewFlagSet("filestash", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.BotToken, "t", config.BotToken, "bot token")
	fs.Int64Var(&config.ArchiveChatID, "k", config.ArchiveChatID, "archive channel id")
	fs.StringVar(&config.StoreDSN, "d", config.StoreDSN, "store DSN")
	fs.StringVar(&config.WebhookURL, "w", config.WebhookURL, "webhook URL")
	fs.StringVar(&config.WebhookListenAddr, "l", config.WebhookListenAddr, "webhook listen address")
	fs.StringVar(&config.HealthAddr, "a", config.HealthAddr, "gRPC health address")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.IntVar(&config.PageSize, "p", config.PageSize, "files per page")
	fs.StringVar(&config.BackupDir, "b", config.BackupDir, "backup directory")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
