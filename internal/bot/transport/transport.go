// Package transport defines what the bot needs from the chat network.
// Message text is HTML formatted.
package transport

import "context"

// Button is an inline keyboard button. Data is the callback token.
type Button struct {
	Text string
	Data string
}

// View is a message body with an optional inline keyboard.
type View struct {
	Text     string
	Keyboard [][]Button
}

// Transport performs outbound chat operations. Implementations wrap delivery
// failures with common.ErrTransportDeliveryFailed.
type Transport interface {
	// SendView posts v to chatID and returns the new message id.
	SendView(ctx context.Context, chatID int64, v View) (int, error)

	// EditView replaces the text and keyboard of an existing message.
	EditView(ctx context.Context, chatID int64, messageID int, v View) error

	// ForwardToArchive forwards a user's message into the archive chat and
	// returns the archive message id.
	ForwardToArchive(ctx context.Context, fromChatID int64, messageID int) (int, error)

	// CopyFromArchive copies an archived message to chatID with a new caption.
	CopyFromArchive(ctx context.Context, archiveMessageID int, toChatID int64, caption string) (int, error)

	// AnswerButton acknowledges a button press so the client stops its spinner.
	AnswerButton(ctx context.Context, callbackID string) error
}
