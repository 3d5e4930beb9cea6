package telegram

import (
	"strconv"

	"github.com/dmitrijs2005/filestash/internal/bot/conversation"
	"github.com/dmitrijs2005/filestash/internal/bot/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ToEvent maps an update to a conversation event. Updates the bot does not
// react to (edits, channel posts, stickers and the like) report false.
func ToEvent(u tgbotapi.Update) (conversation.Event, bool) {
	if q := u.CallbackQuery; q != nil {
		if q.From == nil {
			return conversation.Event{}, false
		}
		ev := conversation.Event{
			UpdateID:   u.UpdateID,
			Kind:       conversation.KindButton,
			UserID:     strconv.FormatInt(q.From.ID, 10),
			ChatID:     q.From.ID,
			FirstName:  q.From.FirstName,
			CallbackID: q.ID,
			Data:       q.Data,
		}
		if q.Message != nil {
			ev.MessageID = q.Message.MessageID
			if q.Message.Chat != nil {
				ev.ChatID = q.Message.Chat.ID
			}
		}
		return ev, true
	}

	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return conversation.Event{}, false
	}

	ev := conversation.Event{
		UpdateID:  u.UpdateID,
		UserID:    strconv.FormatInt(m.From.ID, 10),
		ChatID:    m.Chat.ID,
		FirstName: m.From.FirstName,
		MessageID: m.MessageID,
	}

	if kind, name, ok := fileOf(m); ok {
		ev.Kind = conversation.KindFile
		ev.File = conversation.FileMeta{Kind: kind, Name: name}
		return ev, true
	}

	switch {
	case m.IsCommand():
		ev.Kind = conversation.KindCommand
		ev.Command = m.Command()
		ev.Args = m.CommandArguments()
	case m.Text != "":
		ev.Kind = conversation.KindText
		ev.Text = m.Text
	default:
		return conversation.Event{}, false
	}
	return ev, true
}

// fileOf reports the stored kind and file name of a media message.
// Animations also carry a Document, so they are checked first.
func fileOf(m *tgbotapi.Message) (models.FileKind, string, bool) {
	switch {
	case len(m.Photo) > 0:
		return models.KindPhoto, "", true
	case m.Animation != nil:
		return models.KindAnimation, m.Animation.FileName, true
	case m.Video != nil:
		return models.KindVideo, m.Video.FileName, true
	case m.Document != nil:
		return models.KindDocument, m.Document.FileName, true
	case m.Audio != nil:
		return models.KindAudio, m.Audio.FileName, true
	case m.Voice != nil:
		return models.KindVoice, "", true
	}
	return "", "", false
}
