// Package session holds the per-user conversation state and the registry
// that owns it. Session state is transient: losing it sends the user back to
// the main menu and never loses stored files.
package session

import (
	"fmt"

	"github.com/dmitrijs2005/filestash/internal/common"
)

// Node is a state of the conversation state machine.
type Node int

const (
	MainMenu Node = iota
	ChoosingCategory
	WaitingForCategoryName
	ChoosingFile
)

func (n Node) String() string {
	switch n {
	case MainMenu:
		return "main_menu"
	case ChoosingCategory:
		return "choosing_category"
	case WaitingForCategoryName:
		return "waiting_for_category_name"
	case ChoosingFile:
		return "choosing_file"
	default:
		return fmt.Sprintf("node(%d)", int(n))
	}
}

// PendingUpload remembers a file that arrived before a category was chosen.
type PendingUpload struct {
	MessageID int
	ChatID    int64
}

// State is one user's conversation progress. The zero value is a fresh
// session at the main menu.
//
// Category is set if and only if Node is ChoosingFile. Use the methods below
// to move between nodes; they keep that invariant.
type State struct {
	Node     Node
	Category string

	// FilesUploaded counts files saved since entering ChoosingFile.
	FilesUploaded int

	// ConfirmationRef is the chat message showing the running upload count,
	// 0 when none has been sent yet.
	ConfirmationRef int

	Pending *PendingUpload
}

// Reset returns a fresh session.
func (s State) Reset() State { return State{} }

// IsZero reports whether s carries nothing worth keeping.
func (s State) IsZero() bool {
	return s.Node == MainMenu && s.Category == "" && s.FilesUploaded == 0 &&
		s.ConfirmationRef == 0 && s.Pending == nil
}

// To moves to a node other than ChoosingFile, dropping the upload progress.
// The pending upload survives.
func (s State) To(n Node) State {
	if n == ChoosingFile {
		panic("session: use ChooseFile to enter ChoosingFile")
	}
	return State{Node: n, Pending: s.Pending}
}

// ChooseFile enters ChoosingFile for category with a fresh upload counter.
func (s State) ChooseFile(category string) State {
	return State{Node: ChoosingFile, Category: category}
}

// RestartUploads keeps the node and category but forgets the running
// confirmation, so the next upload starts a new count.
func (s State) RestartUploads() State {
	s.FilesUploaded = 0
	s.ConfirmationRef = 0
	return s
}

// WithPending records a file awaiting a category.
func (s State) WithPending(p PendingUpload) State {
	s.Pending = &p
	return s
}

// Validate checks the category/node invariant.
func (s State) Validate() error {
	if (s.Category != "") != (s.Node == ChoosingFile) {
		return fmt.Errorf("%w: node %s with category %q", common.ErrInvalidTransition, s.Node, s.Category)
	}
	return nil
}
