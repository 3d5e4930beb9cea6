// Package dispatch routes inbound chat events to the conversation state
// machine, one user at a time, and executes the resulting effects against
// the category store and the chat transport.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/filestash/internal/bot/conversation"
	"github.com/dmitrijs2005/filestash/internal/bot/models"
	"github.com/dmitrijs2005/filestash/internal/bot/paging"
	"github.com/dmitrijs2005/filestash/internal/bot/session"
	"github.com/dmitrijs2005/filestash/internal/bot/transport"
	"github.com/dmitrijs2005/filestash/internal/bot/views"
	"github.com/dmitrijs2005/filestash/internal/common"
	"github.com/dmitrijs2005/filestash/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

var (
	ErrQueueFull = errors.New("user queue is full")
	ErrClosed    = errors.New("dispatcher is closed")
)

// Store is the category store as seen by the dispatcher.
type Store interface {
	ListCategories(ctx context.Context, userID string) ([]string, error)
	Overview(ctx context.Context, userID string) (models.Categories, error)
	CreateCategory(ctx context.Context, userID, name string) (bool, error)
	AddFile(ctx context.Context, userID, category string, rec models.FileRecord) (bool, error)
	ListFiles(ctx context.Context, userID, category string) ([]models.FileRecord, error)
	DeleteCategory(ctx context.Context, userID, category string) (bool, error)
}

type Options struct {
	PageSize           int
	MaxConcurrentUsers int
	MaxQueuePerUser    int
	RecentUpdates      int
	RetryDelay         time.Duration
}

func (o *Options) setDefaults() {
	if o.PageSize < 1 {
		o.PageSize = paging.DefaultSize
	}
	if o.MaxConcurrentUsers < 1 {
		o.MaxConcurrentUsers = 64
	}
	if o.MaxQueuePerUser < 1 {
		o.MaxQueuePerUser = 100
	}
	if o.RecentUpdates < 1 {
		o.RecentUpdates = 4096
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 500 * time.Millisecond
	}
}

// Dispatcher serializes events per user through a FIFO mailbox drained by a
// single goroutine, while different users run in parallel up to
// MaxConcurrentUsers.
type Dispatcher struct {
	opts     Options
	tr       transport.Transport
	store    Store
	sessions *session.Registry
	logger   logging.Logger

	sem    *semaphore.Weighted
	recent *recentSet

	mu        sync.Mutex
	mailboxes map[string][]conversation.Event
	closed    bool
	wg        sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func New(tr transport.Transport, store Store, sessions *session.Registry, logger logging.Logger, opts Options) *Dispatcher {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		opts:      opts,
		tr:        tr,
		store:     store,
		sessions:  sessions,
		logger:    logger.With("module", "dispatcher"),
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrentUsers)),
		recent:    newRecentSet(opts.RecentUpdates),
		mailboxes: make(map[string][]conversation.Event),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit queues ev for its user. It never blocks on event processing.
// Redelivered updates return common.ErrDuplicateEvent.
func (d *Dispatcher) Submit(ctx context.Context, ev conversation.Event) error {
	if ev.UpdateID != 0 && !d.recent.Add(ev.UpdateID) {
		d.logger.Debug(ctx, "duplicate update dropped", "update", ev.UpdateID, "user", ev.UserID)
		return fmt.Errorf("%w: update %d", common.ErrDuplicateEvent, ev.UpdateID)
	}

	if ev.Kind == conversation.KindButton && ev.Action.Kind == conversation.ActUnknown {
		a, err := conversation.ParseAction(ev.Data)
		if err != nil {
			d.logger.Debug(ctx, "unparsed button", "error", err)
		}
		ev.Action = a
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	queue, running := d.mailboxes[ev.UserID]
	if len(queue) >= d.opts.MaxQueuePerUser {
		d.logger.Warn(ctx, "user queue full, event dropped", "user", ev.UserID, "queued", len(queue))
		return ErrQueueFull
	}
	d.mailboxes[ev.UserID] = append(queue, ev)

	if !running {
		d.wg.Add(1)
		go d.drain(ev.UserID)
	}
	return nil
}

// drain processes the user's mailbox until it is empty.
func (d *Dispatcher) drain(userID string) {
	defer d.wg.Done()

	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		d.mu.Lock()
		delete(d.mailboxes, userID)
		d.mu.Unlock()
		return
	}
	defer d.sem.Release(1)

	for {
		d.mu.Lock()
		queue := d.mailboxes[userID]
		if len(queue) == 0 {
			delete(d.mailboxes, userID)
			d.mu.Unlock()
			return
		}
		ev := queue[0]
		d.mailboxes[userID] = queue[1:]
		d.mu.Unlock()

		d.handle(d.ctx, ev)
	}
}

// Close stops accepting events and waits for queued ones to finish. When ctx
// expires first, in-flight work is canceled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev conversation.Event) {
	log := d.logger.With("event_id", uuid.NewString(), "user", ev.UserID, "kind", ev.Kind.String())

	if ev.Kind == conversation.KindButton && ev.CallbackID != "" {
		if err := d.retry(ctx, func(ctx context.Context) error { return d.tr.AnswerButton(ctx, ev.CallbackID) }); err != nil {
			log.Warn(ctx, "answer button failed", "error", err)
		}
	}

	state := d.sessions.Load(ev.UserID)
	next, effects, err := conversation.Transition(state, ev)
	if err != nil {
		log.Debug(ctx, "fallback view", "reason", err)
	}

	x := &execution{d: d, ev: ev, state: next, log: log}
	for _, e := range effects {
		if err := x.run(ctx, e); err != nil {
			if errors.Is(err, common.ErrStoreUnavailable) {
				log.Error(ctx, "store unavailable, session not committed", "error", err)
				x.send(ctx, views.TryAgain())
				return
			}
			log.Warn(ctx, "effect failed", "effect", fmt.Sprintf("%T", e), "error", err)
		}
	}

	if err := x.state.Validate(); err != nil {
		log.Error(ctx, "refusing to commit session", "error", err)
		d.sessions.Delete(ev.UserID)
		return
	}
	d.sessions.Store(ev.UserID, x.state)
	log.Debug(ctx, "event handled", "from", state.Node.String(), "to", x.state.Node.String())
}
