package conversation

// Effect is an instruction produced by Transition. The dispatcher executes
// effects in order; store and transport work happens only there.
type Effect interface {
	effect()
}

// ShowMainMenu renders the main menu, optionally with the /start greeting.
type ShowMainMenu struct {
	Greeting  bool
	FirstName string
}

type ShowHelp struct{}

// ShowCategoryPicker lists categories to upload into. ForPending switches the
// title to ask where an already sent file should go.
type ShowCategoryPicker struct {
	ForPending bool
}

// ShowBrowseList lists categories with their file counts.
type ShowBrowseList struct{}

type ShowDeletePicker struct{}

// PromptCategoryName asks for a new category name. Problem, when set,
// explains why the previous answer was rejected.
type PromptCategoryName struct {
	Problem string
}

type CreateCategory struct {
	Name string
}

// ShowUploadPrompt tells the user to send files for Category.
type ShowUploadPrompt struct {
	Category string
	Created  bool
	// FromBrowse is set when entered through "Add Files" so the back button
	// returns to the category's files.
	FromBrowse bool
}

// AskResend asks the user to send a pending file again now that Category is
// chosen. The original message cannot be re-fetched before it is archived.
type AskResend struct {
	Category string
}

// ArchiveFile forwards the event's file to the archive chat, records it under
// Category and updates the running confirmation.
type ArchiveFile struct {
	Category string
	File     FileMeta
}

type ShowFilesPage struct {
	Category string
	Page     int
}

type DeleteCategory struct {
	Name string
}

// ShowDone closes an upload session.
type ShowDone struct{}

func (ShowMainMenu) effect()       {}
func (ShowHelp) effect()           {}
func (ShowCategoryPicker) effect() {}
func (ShowBrowseList) effect()     {}
func (ShowDeletePicker) effect()   {}
func (PromptCategoryName) effect() {}
func (CreateCategory) effect()     {}
func (ShowUploadPrompt) effect()   {}
func (AskResend) effect()          {}
func (ArchiveFile) effect()        {}
func (ShowFilesPage) effect()      {}
func (DeleteCategory) effect()     {}
func (ShowDone) effect()           {}
