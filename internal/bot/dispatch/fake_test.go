package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/filestash/internal/bot/transport"
	"github.com/dmitrijs2005/filestash/internal/common"
)

type sent struct {
	chat int64
	id   int
	view transport.View
}

type edit struct {
	chat int64
	id   int
	view transport.View
}

type copied struct {
	archiveID int
	chat      int64
	caption   string
}

// fakeTransport records every call. Failures are injected per message id.
type fakeTransport struct {
	mu sync.Mutex

	nextID      int
	nextArchive int

	sends    []sent
	edits    []edit
	copies   []copied
	answers  []string
	forwards []int

	failEdit    map[int]bool
	failCopy    map[int]bool
	failForward bool

	// block, when set, makes SendView wait until it is closed; entered is
	// signalled on each blocked call.
	block   chan struct{}
	entered chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		nextID:      500,
		nextArchive: 1000,
		failEdit:    map[int]bool{},
		failCopy:    map[int]bool{},
	}
}

var errDelivery = errors.Join(common.ErrTransportDeliveryFailed, errors.New("message to edit not found"))

func (f *fakeTransport) SendView(ctx context.Context, chatID int64, v transport.View) (int, error) {
	if f.block != nil {
		f.entered <- struct{}{}
		select {
		case <-f.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sends = append(f.sends, sent{chat: chatID, id: f.nextID, view: v})
	return f.nextID, nil
}

func (f *fakeTransport) EditView(_ context.Context, chatID int64, messageID int, v transport.View) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit[messageID] {
		return errDelivery
	}
	f.edits = append(f.edits, edit{chat: chatID, id: messageID, view: v})
	return nil
}

func (f *fakeTransport) ForwardToArchive(_ context.Context, _ int64, messageID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failForward {
		return 0, errDelivery
	}
	f.nextArchive++
	f.forwards = append(f.forwards, messageID)
	return f.nextArchive, nil
}

func (f *fakeTransport) CopyFromArchive(_ context.Context, archiveID int, chatID int64, caption string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCopy[archiveID] {
		return 0, errDelivery
	}
	f.copies = append(f.copies, copied{archiveID: archiveID, chat: chatID, caption: caption})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeTransport) AnswerButton(_ context.Context, callbackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, callbackID)
	return nil
}

func (f *fakeTransport) lastSend() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends[len(f.sends)-1]
}

func (f *fakeTransport) sendTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sends))
	for _, s := range f.sends {
		out = append(out, s.view.Text)
	}
	return out
}
