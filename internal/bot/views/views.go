// Package views renders every screen of the bot as a transport.View.
package views

import (
	"fmt"
	"html"
	"strings"

	"github.com/dmitrijs2005/filestash/internal/bot/conversation"
	"github.com/dmitrijs2005/filestash/internal/bot/models"
	"github.com/dmitrijs2005/filestash/internal/bot/paging"
	"github.com/dmitrijs2005/filestash/internal/bot/transport"
)

var esc = html.EscapeString

func button(text string, a conversation.Action) transport.Button {
	return transport.Button{Text: text, Data: a.Token()}
}

func row(b ...transport.Button) []transport.Button { return b }

var (
	backToMenuRow       = row(button("« Back to Menu", conversation.BackToMenu()))
	doneRow             = row(button("✅ Done", conversation.Done()))
	backToCategoriesRow = row(button("« Back to Categories", conversation.BackToCategories()))
	createNewRow        = row(button("➕ Create New Category", conversation.CreateNew()))
)

func mainMenuKeyboard() [][]transport.Button {
	return [][]transport.Button{
		row(button("📂 Browse Files", conversation.MenuFiles()), button("📁 Categories", conversation.MenuCategories())),
		row(button("❓ Help", conversation.Help()), button("🗑 Delete Category", conversation.MenuDelete())),
	}
}

func MainMenu(greeting bool, firstName string) transport.View {
	if !greeting {
		return transport.View{Text: "📱 <b>Main Menu</b>\n\nWhat would you like to do?", Keyboard: mainMenuKeyboard()}
	}

	name := firstName
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👋 Hello %s! Welcome to your personal storage bot!\n\n", esc(name))
	b.WriteString("📚 <b>WHAT I CAN DO FOR YOU:</b>\n")
	b.WriteString("• Store and organize your files in categories\n")
	b.WriteString("• Retrieve your files whenever you need them\n")
	b.WriteString("• Help you manage your file collection\n\n")
	b.WriteString("🔧 <b>HOW TO USE ME:</b>\n")
	b.WriteString("• Send me any file (documents, photos, videos, etc.)\n")
	b.WriteString("• Use the menu buttons below to navigate\n")
	b.WriteString("• Use /help to see detailed instructions\n\n")
	b.WriteString("Ready to get started? Choose an option below or simply send me any file!")
	return transport.View{Text: b.String(), Keyboard: mainMenuKeyboard()}
}

func Help() transport.View {
	var b strings.Builder
	b.WriteString("📚 <b>STORAGE BOT HELP GUIDE</b>\n\n")
	b.WriteString("📋 <b>COMMANDS</b>\n")
	for _, c := range conversation.Commands {
		fmt.Fprintf(&b, "• /%s - %s\n", c.Name, c.Description)
	}
	b.WriteString("\n📁 <b>STORING FILES</b>\n")
	b.WriteString("1. Send any file (photo, video, document, audio) to the bot\n")
	b.WriteString("2. Select an existing category or create a new one\n")
	b.WriteString("3. Send more files in sequence to the same category\n\n")
	b.WriteString("🔍 <b>BROWSING FILES</b>\n")
	b.WriteString("1. Use /files or the \"Browse Files\" button\n")
	b.WriteString("2. Select a category to view its files\n")
	fmt.Fprintf(&b, "3. Files arrive in pages of %d, use the navigation buttons to move between pages\n\n", paging.DefaultSize)
	b.WriteString("🗑 <b>DELETING</b>\n")
	b.WriteString("Use /delete to remove a category with all its files. This cannot be undone.\n\n")
	b.WriteString("Send /start anytime to restart the conversation.")
	return transport.View{Text: b.String(), Keyboard: mainMenuKeyboard()}
}

// CategoryPicker lists categories to upload into.
func CategoryPicker(names []string, forPending bool) transport.View {
	kb := make([][]transport.Button, 0, len(names)+2)
	for _, n := range names {
		kb = append(kb, row(button(n, conversation.SelectCategory(n))))
	}
	kb = append(kb, createNewRow)

	text := "📋 <b>Your Categories</b>\n\nSelect a category or create a new one:"
	if forPending {
		text = "📂 <b>Store File</b>\n\nPlease select a category for this file:"
	} else {
		kb = append(kb, backToMenuRow)
	}
	return transport.View{Text: text, Keyboard: kb}
}

// BrowseList lists categories with their file counts.
func BrowseList(cats models.Categories) transport.View {
	if len(cats) == 0 {
		return transport.View{
			Text:     "📂 <b>Browse Files</b>\n\nYou don't have any categories yet. Would you like to create one?",
			Keyboard: [][]transport.Button{createNewRow, backToMenuRow},
		}
	}

	kb := make([][]transport.Button, 0, len(cats)+2)
	for _, c := range cats {
		kb = append(kb, row(button(fmt.Sprintf("%s (%d)", c.Name, len(c.Files)), conversation.Browse(c.Name))))
	}
	kb = append(kb, createNewRow, backToMenuRow)
	return transport.View{Text: "📂 <b>Browse Files</b>\n\nSelect a category to view files:", Keyboard: kb}
}

func DeletePicker(names []string) transport.View {
	if len(names) == 0 {
		return transport.View{
			Text:     "🗑 <b>Delete Category</b>\n\nYou don't have any categories to delete.",
			Keyboard: mainMenuKeyboard(),
		}
	}
	kb := make([][]transport.Button, 0, len(names)+1)
	for _, n := range names {
		kb = append(kb, row(button(n, conversation.Delete(n))))
	}
	kb = append(kb, backToMenuRow)
	return transport.View{Text: "🗑 <b>Delete Category</b>\n\nSelect a category to delete:", Keyboard: kb}
}

func Deleted(category string, existed bool) transport.View {
	text := fmt.Sprintf("✅ Category '<b>%s</b>' has been deleted.", esc(category))
	if !existed {
		text = fmt.Sprintf("❌ Failed to delete category '<b>%s</b>'.", esc(category))
	}
	return transport.View{Text: text, Keyboard: [][]transport.Button{backToMenuRow}}
}

// NamePrompt asks for a category name; problem explains a rejected answer.
func NamePrompt(problem string) transport.View {
	text := "✏️ <b>New Category</b>\n\nPlease send me the name for your new category:"
	if problem != "" {
		text = fmt.Sprintf("⚠️ That name can't be used: %s.\n\nPlease send another name (up to %d bytes):",
			esc(problem), models.MaxCategoryNameBytes)
	}
	return transport.View{Text: text, Keyboard: [][]transport.Button{backToMenuRow}}
}

func UploadPrompt(category string, created, fromBrowse bool) transport.View {
	c := esc(category)
	switch {
	case fromBrowse:
		return transport.View{
			Text: fmt.Sprintf("📂 <b>Adding Files to: %s</b>\n\nSend me files to add to this category. "+
				"They will be automatically saved to '%s'.\n\nYou can send multiple files in sequence.", c, c),
			Keyboard: [][]transport.Button{doneRow, row(button("« Back to Browse", conversation.Browse(category)))},
		}
	case created:
		return transport.View{
			Text:     fmt.Sprintf("✅ Category '<b>%s</b>' created successfully!\n\nSend me files to add to this category, or use the buttons below.", c),
			Keyboard: [][]transport.Button{doneRow, backToCategoriesRow},
		}
	}
	return transport.View{
		Text: fmt.Sprintf("📁 <b>Category: %s</b>\n\nSend me files to add to this category, or use the buttons below.", c),
		Keyboard: [][]transport.Button{
			row(button("📂 View Files", conversation.Browse(category))),
			doneRow,
			backToCategoriesRow,
		},
	}
}

// ResendRequest asks for a file that arrived before its category was known.
func ResendRequest(category string) transport.View {
	return transport.View{Text: fmt.Sprintf("Please send the file again to save it to category '%s'.", esc(category))}
}

// Confirmation is the running upload counter for a category.
func Confirmation(count int, category string) transport.View {
	return transport.View{
		Text:     fmt.Sprintf("✅ <b>%d file(s) saved</b> to category '<b>%s</b>'!\n\nSend more files or use the buttons below.", count, esc(category)),
		Keyboard: [][]transport.Button{doneRow, backToCategoriesRow},
	}
}

func Done() transport.View {
	return transport.View{Text: "✅ <b>Done!</b>\n\nWhat would you like to do next?", Keyboard: mainMenuKeyboard()}
}

func EmptyCategory(category string) transport.View {
	return transport.View{
		Text: fmt.Sprintf("📂 <b>Category: %s</b>\n\nNo files in this category.", esc(category)),
		Keyboard: [][]transport.Button{
			row(button("➕ Add Files", conversation.AddFiles(category))),
			row(button("« Back to Categories", conversation.MenuFiles())),
			backToMenuRow,
		},
	}
}

// PageHeader announces the files about to be delivered.
func PageHeader(category string, p paging.Page[models.FileRecord]) transport.View {
	return transport.View{Text: fmt.Sprintf("📂 <b>Category: %s</b>\n\nShowing files %d-%d of %d\nPage %d of %d\n\nSending files...",
		esc(category), p.Start+1, p.End, p.Total, p.Number, p.TotalPages)}
}

// FileCaption labels one delivered file.
func FileCaption(ordinal, total int, rec models.FileRecord) string {
	caption := fmt.Sprintf("File #%d of %d", ordinal, total)
	if rec.FileName != "" {
		caption += "\nFilename: " + esc(rec.FileName)
	}
	return caption
}

func FileError(ordinal int) transport.View {
	return transport.View{Text: fmt.Sprintf("⚠️ Error retrieving file #%d", ordinal)}
}

// PageNav follows a delivered page with navigation buttons.
func PageNav(category string, p paging.Page[models.FileRecord]) transport.View {
	var kb [][]transport.Button
	if p.TotalPages > 1 {
		var nav []transport.Button
		if p.HasPrev() {
			nav = append(nav, button("« Prev", conversation.PageOf(category, p.Number-1)))
		}
		nav = append(nav, button(fmt.Sprintf("%d/%d", p.Number, p.TotalPages), conversation.Ignore()))
		if p.HasNext() {
			nav = append(nav, button("Next »", conversation.PageOf(category, p.Number+1)))
		}
		kb = append(kb, nav)
	}
	kb = append(kb,
		row(button("➕ Add Files", conversation.AddFiles(category))),
		row(button("« Back to Categories", conversation.MenuFiles())),
		backToMenuRow,
	)
	return transport.View{
		Text:     fmt.Sprintf("✅ Showing files %d-%d of %d from <b>%s</b>", p.Start+1, p.End, p.Total, esc(category)),
		Keyboard: kb,
	}
}

func TryAgain() transport.View {
	return transport.View{Text: "⏳ Storage is temporarily unavailable. Please try again shortly.", Keyboard: [][]transport.Button{backToMenuRow}}
}

func ArchiveFailed() transport.View {
	return transport.View{Text: "⚠️ Sorry, I couldn't store that file. Please send it again."}
}
