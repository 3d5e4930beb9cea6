// Package ctl implements filestashctl, the maintenance tool for the
// category store: backups, restore, JSON export and import, and stats.
package ctl

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/filestash/internal/backup"
	"github.com/dmitrijs2005/filestash/internal/bot/config"
	"github.com/dmitrijs2005/filestash/internal/bot/repositories/repomanager"
	"github.com/dmitrijs2005/filestash/internal/logging"
	"github.com/spf13/cobra"
)

var openStore = repomanager.Open

type state struct {
	configFile string
	dsn        string
	mongoDB    string
	backupDir  string
	maxBackups int
	verbose    bool

	lookupEnv func(string) (string, bool)

	cfg     *config.Config
	store   *repomanager.Manager
	backups *backup.Manager
	logger  logging.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(os.LookupEnv)
}

func newRootCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	st := &state{lookupEnv: lookupEnv}

	root := &cobra.Command{
		Use:   "filestashctl",
		Short: "Maintenance tool for the filestash category store",
		Long: `filestashctl manages the category store used by the filestash bot.

The store is selected the same way as for the bot: config file (-c), then
STORE_DSN / MONGO_URI from the environment, then --dsn.`,
		SilenceUsage:      true,
		PersistentPreRunE: st.open,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return st.close(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&st.configFile, "config", "c", "", "bot config file (JSON or YAML)")
	pf.StringVar(&st.dsn, "dsn", "", "store DSN, overrides config and environment")
	pf.StringVar(&st.mongoDB, "mongo-db", "", "MongoDB database name")
	pf.StringVar(&st.backupDir, "backup-dir", "", "directory holding backups")
	pf.IntVar(&st.maxBackups, "max-backups", 0, "number of backups to keep")
	pf.BoolVarP(&st.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newBackupCmd(st),
		newRestoreCmd(st),
		newListCmd(st),
		newExportCmd(st),
		newImportCmd(st),
		newStatsCmd(st),
	)
	return root
}

func (st *state) open(cmd *cobra.Command, _ []string) error {
	var args []string
	if st.configFile != "" {
		args = []string{"-config=" + st.configFile}
	}
	cfg, err := config.Load(args, st.lookupEnv)
	if err != nil {
		return err
	}

	if st.dsn != "" {
		cfg.StoreDSN = st.dsn
	}
	if st.mongoDB != "" {
		cfg.MongoDatabase = st.mongoDB
	}
	if st.backupDir != "" {
		cfg.BackupDir = st.backupDir
	}
	if st.maxBackups > 0 {
		cfg.MaxBackups = st.maxBackups
	}
	level := "warn"
	if st.verbose {
		level = "debug"
	}
	st.logger = logging.NewSlog(cmd.ErrOrStderr(), "text", level)
	st.cfg = cfg

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg.StoreDSN, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("open store %s: %w", repomanager.Redact(cfg.StoreDSN), err)
	}
	st.store = store

	var uploader backup.Uploader
	if cfg.S3Bucket != "" {
		uploader = backup.NewS3Uploader(backup.S3Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Prefix:       cfg.S3Prefix,
		})
	}
	st.backups = backup.NewManager(store.Snapshotter(), cfg.BackupDir, cfg.MaxBackups, uploader, st.logger)
	return nil
}

func (st *state) close(ctx context.Context) error {
	if st.store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := st.store.Close(ctx)
	st.store = nil
	return err
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
