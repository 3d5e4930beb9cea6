package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/filestash/internal/bot/conversation"
	"github.com/dmitrijs2005/filestash/internal/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sink receives mapped events.
type Sink func(ctx context.Context, ev conversation.Event) error

// Listen delivers updates to sink until ctx is done. With a webhook URL it
// registers the webhook and serves it on listenAddr, falling back to long
// polling when registration fails.
func (b *Bot) Listen(ctx context.Context, webhookURL, listenAddr string, sink Sink) error {
	if webhookURL != "" {
		path, err := b.setWebhook(webhookURL)
		if err == nil {
			return b.serveWebhook(ctx, listenAddr, path, sink)
		}
		b.logger.Error(ctx, "Webhook setup failed, falling back to polling", "error", err)
	}
	return b.Poll(ctx, sink)
}

// Poll runs long polling. Any webhook is removed first, since Telegram
// refuses getUpdates while one is set.
func (b *Bot) Poll(ctx context.Context, sink Sink) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn(ctx, "Delete webhook failed", "error", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := b.api.GetUpdatesChan(cfg)
	b.logger.Info(ctx, "Polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.deliver(ctx, u, sink)
		}
	}
}

func (b *Bot) deliver(ctx context.Context, u tgbotapi.Update, sink Sink) {
	ev, ok := ToEvent(u)
	if !ok {
		return
	}
	if err := sink(ctx, ev); err != nil && !errors.Is(err, common.ErrDuplicateEvent) {
		b.logger.Warn(ctx, "event not accepted", "update", u.UpdateID, "error", err)
	}
}

func (b *Bot) setWebhook(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse webhook url: %w", err)
	}
	wh, err := tgbotapi.NewWebhook(rawURL)
	if err != nil {
		return "", err
	}
	if _, err := b.api.Request(wh); err != nil {
		return "", fmt.Errorf("set webhook: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return path, nil
}

// WebhookHandler decodes updates posted by Telegram and hands them to sink.
func (b *Bot) WebhookHandler(sink Sink) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var u tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			b.logger.Warn(r.Context(), "bad webhook payload", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		// Submit only queues, so answering after it keeps Telegram from
		// redelivering without holding the request open.
		b.deliver(context.WithoutCancel(r.Context()), u, sink)
		w.WriteHeader(http.StatusOK)
	})
}

func (b *Bot) serveWebhook(ctx context.Context, addr, path string, sink Sink) error {
	mux := http.NewServeMux()
	mux.Handle(path, b.WebhookHandler(sink))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		b.logger.Info(ctx, "Stopping webhook server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	b.logger.Info(ctx, "Starting webhook server", "address", addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
