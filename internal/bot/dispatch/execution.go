package dispatch

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filestash/internal/bot/conversation"
	"github.com/dmitrijs2005/filestash/internal/bot/models"
	"github.com/dmitrijs2005/filestash/internal/bot/paging"
	"github.com/dmitrijs2005/filestash/internal/bot/session"
	"github.com/dmitrijs2005/filestash/internal/bot/transport"
	"github.com/dmitrijs2005/filestash/internal/bot/views"
	"github.com/dmitrijs2005/filestash/internal/logging"
	"github.com/sethvargo/go-retry"
)

// retry runs fn with a budget of one retry.
func (d *Dispatcher) retry(ctx context.Context, fn func(context.Context) error) error {
	return retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(d.opts.RetryDelay)), func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// execution carries one event through its effects. state starts as the
// transition result and picks up I/O outcomes (upload count, confirmation
// message) along the way.
type execution struct {
	d     *Dispatcher
	ev    conversation.Event
	state session.State
	log   logging.Logger

	// edited is set once the pressed button's message has been reused.
	edited bool
}

func (x *execution) run(ctx context.Context, e conversation.Effect) error {
	d, ev := x.d, x.ev

	switch e := e.(type) {
	case conversation.ShowMainMenu:
		return x.render(ctx, views.MainMenu(e.Greeting, e.FirstName))

	case conversation.ShowHelp:
		return x.render(ctx, views.Help())

	case conversation.ShowCategoryPicker:
		names, err := d.store.ListCategories(ctx, ev.UserID)
		if err != nil {
			return err
		}
		return x.render(ctx, views.CategoryPicker(names, e.ForPending))

	case conversation.ShowBrowseList:
		cats, err := d.store.Overview(ctx, ev.UserID)
		if err != nil {
			return err
		}
		return x.render(ctx, views.BrowseList(cats))

	case conversation.ShowDeletePicker:
		names, err := d.store.ListCategories(ctx, ev.UserID)
		if err != nil {
			return err
		}
		return x.render(ctx, views.DeletePicker(names))

	case conversation.PromptCategoryName:
		return x.render(ctx, views.NamePrompt(e.Problem))

	case conversation.CreateCategory:
		_, err := d.store.CreateCategory(ctx, ev.UserID, e.Name)
		return err

	case conversation.ShowUploadPrompt:
		return x.render(ctx, views.UploadPrompt(e.Category, e.Created, e.FromBrowse))

	case conversation.AskResend:
		_, err := x.send(ctx, views.ResendRequest(e.Category))
		return err

	case conversation.ArchiveFile:
		return x.archive(ctx, e)

	case conversation.ShowFilesPage:
		return x.deliverPage(ctx, e.Category, e.Page)

	case conversation.DeleteCategory:
		existed, err := d.store.DeleteCategory(ctx, ev.UserID, e.Name)
		if err != nil {
			return err
		}
		return x.render(ctx, views.Deleted(e.Name, existed))

	case conversation.ShowDone:
		return x.render(ctx, views.Done())
	}

	return fmt.Errorf("unknown effect %T", e)
}

// render shows v in place of the pressed button's message, the first time
// round for a button event, and as a new message otherwise.
func (x *execution) render(ctx context.Context, v transport.View) error {
	if x.ev.Kind == conversation.KindButton && x.ev.MessageID != 0 && !x.edited {
		x.edited = true
		err := x.d.retry(ctx, func(ctx context.Context) error {
			return x.d.tr.EditView(ctx, x.ev.ChatID, x.ev.MessageID, v)
		})
		if err == nil {
			return nil
		}
		x.log.Debug(ctx, "edit failed, sending instead", "error", err)
	}
	_, err := x.send(ctx, v)
	return err
}

func (x *execution) send(ctx context.Context, v transport.View) (int, error) {
	var id int
	err := x.d.retry(ctx, func(ctx context.Context) error {
		var err error
		id, err = x.d.tr.SendView(ctx, x.ev.ChatID, v)
		return err
	})
	return id, err
}

func (x *execution) archive(ctx context.Context, e conversation.ArchiveFile) error {
	d, ev := x.d, x.ev

	var archiveID int
	err := d.retry(ctx, func(ctx context.Context) error {
		var err error
		archiveID, err = d.tr.ForwardToArchive(ctx, ev.ChatID, ev.MessageID)
		return err
	})
	if err != nil {
		x.log.Error(ctx, "forward to archive failed", "message", ev.MessageID, "error", err)
		_, _ = x.send(ctx, views.ArchiveFailed())
		return nil
	}

	// Every forward yields a fresh archive id, so the store only rejects a
	// replayed AddFile for this copy; resent originals are caught upstream
	// by the update id.
	rec := models.FileRecord{MessageID: int64(archiveID), Kind: e.File.Kind, FileName: e.File.Name}
	added, err := d.store.AddFile(ctx, ev.UserID, e.Category, rec)
	if err != nil {
		return err
	}
	if added {
		x.state.FilesUploaded++
	}
	x.log.Info(ctx, "file archived", "category", e.Category, "archive_message", archiveID, "new", added)

	return x.confirm(ctx, e.Category)
}

// confirm keeps one running confirmation per upload session: the previous one
// is edited, and replaced by a new message when editing fails.
func (x *execution) confirm(ctx context.Context, category string) error {
	v := views.Confirmation(x.state.FilesUploaded, category)

	if ref := x.state.ConfirmationRef; ref != 0 {
		err := x.d.retry(ctx, func(ctx context.Context) error {
			return x.d.tr.EditView(ctx, x.ev.ChatID, ref, v)
		})
		if err == nil {
			return nil
		}
		x.log.Debug(ctx, "confirmation edit failed, sending a new one", "error", err)
	}

	id, err := x.send(ctx, v)
	if err != nil {
		return err
	}
	x.state.ConfirmationRef = id
	return nil
}

// deliverPage copies one page of files out of the archive. A file that cannot
// be copied is reported on its own and the rest of the page still goes out.
func (x *execution) deliverPage(ctx context.Context, category string, page int) error {
	d, ev := x.d, x.ev

	files, err := d.store.ListFiles(ctx, ev.UserID, category)
	if err != nil {
		return err
	}

	p := paging.Paginate(files, page, d.opts.PageSize)
	if p.Total == 0 {
		return x.render(ctx, views.EmptyCategory(category))
	}

	if err := x.render(ctx, views.PageHeader(category, p)); err != nil {
		return err
	}

	failed := 0
	for i, rec := range p.Items {
		n := p.Ordinal(i)
		caption := views.FileCaption(n, p.Total, rec)
		err := d.retry(ctx, func(ctx context.Context) error {
			_, err := d.tr.CopyFromArchive(ctx, int(rec.MessageID), ev.ChatID, caption)
			return err
		})
		if err != nil {
			failed++
			x.log.Warn(ctx, "copy from archive failed", "file", n, "archive_message", rec.MessageID, "error", err)
			_, _ = x.send(ctx, views.FileError(n))
		}
	}
	if failed > 0 {
		x.log.Info(ctx, "page delivered with failures", "category", category, "page", p.Number, "failed", failed)
	}

	_, err = x.send(ctx, views.PageNav(category, p))
	return err
}
