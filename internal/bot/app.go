// Package bot wires the category store, the Telegram transport, the
// dispatcher and the maintenance jobs into a runnable application.
package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/filestash/internal/backup"
	"github.com/dmitrijs2005/filestash/internal/bot/config"
	"github.com/dmitrijs2005/filestash/internal/bot/dispatch"
	hs "github.com/dmitrijs2005/filestash/internal/bot/grpc"
	"github.com/dmitrijs2005/filestash/internal/bot/repositories/repomanager"
	"github.com/dmitrijs2005/filestash/internal/bot/scheduler"
	"github.com/dmitrijs2005/filestash/internal/bot/services"
	"github.com/dmitrijs2005/filestash/internal/bot/session"
	"github.com/dmitrijs2005/filestash/internal/bot/transport"
	"github.com/dmitrijs2005/filestash/internal/bot/transport/telegram"
	"github.com/dmitrijs2005/filestash/internal/logging"
	"golang.org/x/sync/errgroup"
)

// chatBot is the transport as the app drives it.
type chatBot interface {
	transport.Transport
	RegisterCommands(ctx context.Context) error
	Listen(ctx context.Context, webhookURL, listenAddr string, sink telegram.Sink) error
}

var (
	openStore = repomanager.Open

	newChatBot = func(token string, archiveChatID int64, l logging.Logger) (chatBot, error) {
		return telegram.New(token, archiveChatID, l)
	}
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	syncLogger func()

	store      *repomanager.Manager
	bot        chatBot
	sessions   *session.Registry
	dispatcher *dispatch.Dispatcher
	backups    *backup.Manager
	scheduler  *scheduler.Scheduler
	health     *hs.HealthServer
}

// NewLogger builds the configured logging backend. The returned func
// flushes buffered output.
func NewLogger(c *config.Config) (logging.Logger, func(), error) {
	if c.LogBackend == "zap" {
		return logging.NewZap(c.LogLevel)
	}
	return logging.NewSlog(os.Stdout, c.LogFormat, c.LogLevel), func() {}, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger, syncLogger, err := NewLogger(c)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	store, err := openStore(ctx, c.StoreDSN, c.MongoDatabase)
	if err != nil {
		syncLogger()
		return nil, fmt.Errorf("store init error: %w", err)
	}
	logger.Info(ctx, "Store opened", "backend", store.Backend(), "dsn", repomanager.Redact(c.StoreDSN))

	b, err := newChatBot(c.BotToken, c.ArchiveChatID, logger)
	if err != nil {
		_ = store.Close(ctx)
		syncLogger()
		return nil, err
	}

	app := &App{
		config:     c,
		logger:     logger,
		syncLogger: syncLogger,
		store:      store,
		bot:        b,
		sessions:   session.NewRegistry(),
	}

	svc := services.NewCategoryService(store.Categories(), logger, c.RetryDelay)
	app.dispatcher = dispatch.New(b, svc, app.sessions, logger, dispatch.Options{
		PageSize:           c.PageSize,
		MaxConcurrentUsers: c.MaxConcurrentUsers,
		MaxQueuePerUser:    c.MaxQueuePerUser,
		RetryDelay:         c.RetryDelay,
	})

	var uploader backup.Uploader
	if c.S3Bucket != "" {
		uploader = backup.NewS3Uploader(backup.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			Prefix:       c.S3Prefix,
		})
	}
	app.backups = backup.NewManager(store.Snapshotter(), c.BackupDir, c.MaxBackups, uploader, logger)

	app.scheduler = scheduler.New(logger)
	if err := app.scheduleJobs(); err != nil {
		app.close(ctx)
		return nil, err
	}

	if c.HealthAddr != "" {
		app.health = hs.NewHealthServer(c.HealthAddr, logger, store, 0)
	}

	return app, nil
}

func (app *App) scheduleJobs() error {
	err := app.scheduler.Add(scheduler.Job{
		Name:     "backup",
		Schedule: app.config.BackupSchedule,
		Run: func(ctx context.Context) error {
			_, err := app.backups.Backup(ctx)
			return err
		},
	})
	if err != nil {
		return err
	}

	return app.scheduler.Add(scheduler.Job{
		Name:     "session_sweep",
		Schedule: app.config.SessionSweepSchedule,
		Run: func(ctx context.Context) error {
			if n := app.sessions.EvictIdle(app.config.SessionIdleTimeout); n > 0 {
				app.logger.Info(ctx, "Evicted idle sessions", "count", n)
			}
			return nil
		},
	})
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is canceled, a termination signal arrives or the
// listener fails, then drains queued events and closes the store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.scheduler.Run(gctx)
	})

	if app.health != nil {
		g.Go(func() error {
			return app.health.Run(gctx)
		})
	}

	g.Go(func() error {
		defer cancelFunc()
		if err := app.bot.RegisterCommands(gctx); err != nil {
			app.logger.Warn(gctx, "command menu not registered", "error", err)
		}
		return app.bot.Listen(gctx, app.config.WebhookURL, app.config.WebhookListenAddr, app.dispatcher.Submit)
	})

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "app stopped with error", "error", err)
	}

	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if app.dispatcher != nil {
		if err := app.dispatcher.Close(ctx); err != nil {
			app.logger.Warn(ctx, "dispatcher did not drain", "error", err)
		}
	}
	if err := app.store.Close(ctx); err != nil {
		app.logger.Warn(ctx, "store close error", "error", err)
	}
	app.syncLogger()
}
