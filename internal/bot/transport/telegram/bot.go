// Package telegram adapts the Telegram Bot API to transport.Transport and
// turns incoming updates into conversation events.
package telegram

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filestash/internal/bot/conversation"
	"github.com/dmitrijs2005/filestash/internal/bot/transport"
	"github.com/dmitrijs2005/filestash/internal/common"
	"github.com/dmitrijs2005/filestash/internal/logging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI is the part of *tgbotapi.BotAPI we use.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	CopyMessage(config tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot implements transport.Transport over the Bot API. Files are forwarded
// to and copied from the archive chat.
type Bot struct {
	api           botAPI
	archiveChatID int64
	logger        logging.Logger
}

// newBotAPI is a seam for tests.
var newBotAPI = func(token string) (botAPI, string, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, "", err
	}
	return api, api.Self.UserName, nil
}

// New connects with token and checks it by fetching the bot's own profile.
func New(token string, archiveChatID int64, logger logging.Logger) (*Bot, error) {
	api, username, err := newBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect error: %w", err)
	}
	b := &Bot{api: api, archiveChatID: archiveChatID, logger: logger.With("module", "telegram")}
	b.logger.Info(context.Background(), "Bot connected", "username", username)
	return b, nil
}

var _ transport.Transport = (*Bot)(nil)

func failed(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrTransportDeliveryFailed, err)
}

func keyboard(rows [][]transport.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		out = append(out, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func (b *Bot) SendView(ctx context.Context, chatID int64, v transport.View) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, v.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(v.Keyboard) > 0 {
		msg.ReplyMarkup = keyboard(v.Keyboard)
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, failed("send message", err)
	}
	return sent.MessageID, nil
}

func (b *Bot) EditView(ctx context.Context, chatID int64, messageID int, v transport.View) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var edit tgbotapi.EditMessageTextConfig
	if len(v.Keyboard) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, v.Text, keyboard(v.Keyboard))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, v.Text)
	}
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Request(edit); err != nil {
		return failed("edit message", err)
	}
	return nil
}

func (b *Bot) ForwardToArchive(ctx context.Context, fromChatID int64, messageID int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fwd, err := b.api.Send(tgbotapi.NewForward(b.archiveChatID, fromChatID, messageID))
	if err != nil {
		return 0, failed("forward to archive", err)
	}
	return fwd.MessageID, nil
}

func (b *Bot) CopyFromArchive(ctx context.Context, archiveMessageID int, toChatID int64, caption string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cp := tgbotapi.NewCopyMessage(toChatID, b.archiveChatID, archiveMessageID)
	cp.Caption = caption
	cp.ParseMode = tgbotapi.ModeHTML
	id, err := b.api.CopyMessage(cp)
	if err != nil {
		return 0, failed("copy from archive", err)
	}
	return id.MessageID, nil
}

func (b *Bot) AnswerButton(ctx context.Context, callbackID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return failed("answer callback", err)
	}
	return nil
}

// RegisterCommands publishes the command menu shown by Telegram clients.
func (b *Bot) RegisterCommands(ctx context.Context) error {
	cmds := make([]tgbotapi.BotCommand, 0, len(conversation.Commands))
	for _, c := range conversation.Commands {
		cmds = append(cmds, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	b.logger.Info(ctx, "Bot commands registered", "count", len(cmds))
	return nil
}
