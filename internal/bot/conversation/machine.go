package conversation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filestash/internal/bot/models"
	"github.com/dmitrijs2005/filestash/internal/bot/session"
	"github.com/dmitrijs2005/filestash/internal/common"
)

// Commands understood by the bot, in menu order.
var Commands = []struct {
	Name        string
	Description string
}{
	{"start", "Start the bot"},
	{"menu", "Open the main menu"},
	{"files", "Browse your stored files"},
	{"categories", "Manage your categories"},
	{"delete", "Delete a category"},
	{"help", "Show help information"},
}

// Transition computes the next session state and the effects of ev.
//
// Events the current node does not expect yield an error wrapping
// common.ErrInvalidTransition; the returned state is then s unchanged and the
// effects re-render the node's default view.
func Transition(s session.State, ev Event) (session.State, []Effect, error) {
	switch ev.Kind {
	case KindCommand:
		return onCommand(s, ev)
	case KindButton:
		return onButton(s, ev)
	case KindFile:
		return onFile(s, ev)
	case KindText:
		return onText(s, ev)
	}
	return invalid(s, fmt.Sprintf("event kind %d", ev.Kind))
}

func onCommand(s session.State, ev Event) (session.State, []Effect, error) {
	switch strings.ToLower(ev.Command) {
	case "start":
		return s.Reset(), []Effect{ShowMainMenu{Greeting: true, FirstName: ev.FirstName}}, nil
	case "menu":
		return s.Reset(), []Effect{ShowMainMenu{}}, nil
	case "files":
		return s.Reset(), []Effect{ShowBrowseList{}}, nil
	case "categories":
		return s.To(session.ChoosingCategory), []Effect{ShowCategoryPicker{ForPending: s.Pending != nil}}, nil
	case "delete":
		return s.Reset(), []Effect{ShowDeletePicker{}}, nil
	case "help":
		return s.Reset(), []Effect{ShowHelp{}}, nil
	case "done":
		if s.Node == session.ChoosingFile {
			return s.Reset(), []Effect{ShowDone{}}, nil
		}
	}
	return invalid(s, "command /"+ev.Command)
}

func onButton(s session.State, ev Event) (session.State, []Effect, error) {
	a := ev.Action

	switch a.Kind {
	case ActIgnore:
		return s, nil, nil

	case ActMenuFiles:
		return s.To(session.MainMenu), []Effect{ShowBrowseList{}}, nil

	case ActMenuCategories:
		return s.To(session.ChoosingCategory), []Effect{ShowCategoryPicker{ForPending: s.Pending != nil}}, nil

	case ActMenuDelete:
		return s.To(session.MainMenu), []Effect{ShowDeletePicker{}}, nil

	case ActHelp:
		return s.To(session.MainMenu), []Effect{ShowHelp{}}, nil

	case ActBackToMenu:
		return s.Reset(), []Effect{ShowMainMenu{}}, nil

	case ActCreateCategory:
		return s.To(session.WaitingForCategoryName), []Effect{PromptCategoryName{}}, nil

	case ActCategory:
		if s.Node != session.ChoosingCategory {
			break
		}
		return chooseCategory(s, a.Category, ShowUploadPrompt{Category: a.Category})

	case ActBrowse, ActPage:
		page := max(a.Page, 1)
		next := s
		if s.Node == session.ChoosingFile {
			next = s.RestartUploads()
		}
		return next, []Effect{ShowFilesPage{Category: a.Category, Page: page}}, nil

	case ActAddFiles:
		return chooseCategory(s, a.Category, ShowUploadPrompt{Category: a.Category, FromBrowse: true})

	case ActDelete:
		return s.To(session.MainMenu), []Effect{DeleteCategory{Name: a.Category}}, nil

	case ActBackToCategories:
		if s.Node != session.ChoosingFile {
			break
		}
		return s.To(session.ChoosingCategory), []Effect{ShowCategoryPicker{}}, nil

	case ActDone:
		if s.Node != session.ChoosingFile {
			break
		}
		return s.Reset(), []Effect{ShowDone{}}, nil
	}

	token := ev.Data
	if token == "" {
		token = a.Token()
	}
	return invalid(s, "button "+token)
}

// chooseCategory enters ChoosingFile for name. A pending upload cannot be
// replayed, so the user is asked to send it again.
func chooseCategory(s session.State, name string, prompt ShowUploadPrompt) (session.State, []Effect, error) {
	effects := []Effect{prompt}
	if s.Pending != nil {
		effects = append(effects, AskResend{Category: name})
	}
	return s.ChooseFile(name), effects, nil
}

func onFile(s session.State, ev Event) (session.State, []Effect, error) {
	if s.Node == session.ChoosingFile && s.Category != "" {
		file := ev.File
		if file.Kind == "" {
			file.Kind = models.KindUnknown
		}
		return s, []Effect{ArchiveFile{Category: s.Category, File: file}}, nil
	}

	next := s.To(session.ChoosingCategory).WithPending(session.PendingUpload{MessageID: ev.MessageID, ChatID: ev.ChatID})
	return next, []Effect{ShowCategoryPicker{ForPending: true}}, nil
}

func onText(s session.State, ev Event) (session.State, []Effect, error) {
	if s.Node != session.WaitingForCategoryName {
		return invalid(s, "text message")
	}

	name, err := models.NormalizeCategoryName(ev.Text)
	if err != nil {
		return s, []Effect{PromptCategoryName{Problem: problem(err)}}, nil
	}

	next, effects, err := chooseCategory(s, name, ShowUploadPrompt{Category: name, Created: true})
	// The category must exist before the user is told so.
	return next, append([]Effect{CreateCategory{Name: name}}, effects...), err
}

// DefaultView is what a node shows when it has to be rendered again.
func DefaultView(s session.State) Effect {
	switch s.Node {
	case session.ChoosingCategory:
		return ShowCategoryPicker{ForPending: s.Pending != nil}
	case session.WaitingForCategoryName:
		return PromptCategoryName{}
	case session.ChoosingFile:
		return ShowUploadPrompt{Category: s.Category}
	default:
		return ShowMainMenu{}
	}
}

func invalid(s session.State, what string) (session.State, []Effect, error) {
	return s, []Effect{DefaultView(s)}, fmt.Errorf("%w: %s in %s", common.ErrInvalidTransition, what, s.Node)
}

// problem extracts the user-facing part of a name validation error.
func problem(err error) string {
	msg := err.Error()
	if errors.Is(err, common.ErrInvalidCategoryName) {
		if _, after, ok := strings.Cut(msg, ": "); ok {
			return after
		}
	}
	return msg
}
