// Package conversation implements the bot's dialogue as an explicit finite
// state machine. Transition is pure: it maps a session state and an inbound
// event to the next state plus a list of effects for the dispatcher to run.
package conversation

import "github.com/dmitrijs2005/filestash/internal/bot/models"

// EventKind tells which of the inbound event shapes an Event carries.
type EventKind int

const (
	KindCommand EventKind = iota + 1
	KindButton
	KindFile
	KindText
)

func (k EventKind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindButton:
		return "button"
	case KindFile:
		return "file"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Event is one inbound update from the chat transport.
type Event struct {
	// UpdateID is the transport's delivery id, used to drop redeliveries.
	UpdateID int

	Kind      EventKind
	UserID    string
	ChatID    int64
	FirstName string

	// MessageID is the user's message for commands, text and files, and the
	// bot message that carried the button for button presses.
	MessageID int

	// Command is the command name without the leading slash; Args the rest.
	Command string
	Args    string

	// CallbackID acknowledges a button press; Data is its raw token and
	// Action the parsed form.
	CallbackID string
	Data       string
	Action     Action

	Text string

	// File describes a file message; MessageID points at the source.
	File FileMeta
}

// FileMeta is what the transport tells us about an uploaded file.
type FileMeta struct {
	Kind models.FileKind
	Name string
}
