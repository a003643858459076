// Package watcher runs one supervised long-lived task per mailbox,
// draining new messages in ascending UID order and handing them to a
// Callbacks implementation for routing, dedup and enqueue.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ordertracker/internal/mail"
)

// Mode is the watcher's current lifecycle state.
type Mode string

const (
	ModeConnecting   Mode = "connecting"
	ModeProcessing   Mode = "processing"
	ModeIdle         Mode = "idle"
	ModePolling      Mode = "polling"
	ModeErrorBackoff Mode = "error_backoff"
	ModeStopped      Mode = "stopped"
)

const (
	minBackoff = 30 * time.Second
	maxBackoff = 300 * time.Second
	idleWait   = 24 * time.Minute // strictly under the 29-minute IDLE ceiling
)

// Mailbox carries the configuration a watcher needs, independent of
// whether it is a user-owned or global mailbox.
type Mailbox struct {
	ID            int64
	Endpoint      mail.Endpoint
	Folder        string
	LastUID       uint32
	UIDValidity   uint32
	MaxAgeDays    int
	PreferPolling bool
	PollInterval  time.Duration
	CheckUIDValidity bool
}

// RouteDecision tells the watcher whether and how to enqueue a message.
type RouteDecision struct {
	Skip       bool
	UserID     int64
	SourceType string
}

// Callbacks is the provider-specific seam a watcher drives: loading the
// current mailbox config, resolving a routing decision per message,
// persisting the enqueue, and checkpointing last_uid/uid_validity.
type Callbacks interface {
	LoadMailbox(ctx context.Context, mailboxID int64) (*Mailbox, error)
	Route(ctx context.Context, mailboxID int64, parsed *mail.ParsedMessage) (RouteDecision, error)
	Enqueue(ctx context.Context, mailboxID int64, decision RouteDecision, parsed *mail.ParsedMessage, uid uint32, folder string, uidValidity uint32, emailDate time.Time) error
	AdvanceUID(ctx context.Context, mailboxID int64, uid uint32, uidValidity uint32) error
	ResetUID(ctx context.Context, mailboxID int64, uidValidity uint32) error
}

// Snapshot is the status a reader can observe without touching the
// watcher's live goroutine.
type Snapshot struct {
	MailboxID int64
	Mode      Mode
	LastUID   uint32
	LastError string
	UpdatedAt time.Time
}

// Watcher drives one mailbox's connect/drain/wait cycle until stopped.
type Watcher struct {
	mailboxID int64
	callbacks Callbacks
	logger    *slog.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	snapshot chan chan Snapshot
}

// Start launches the watcher's background loop. The caller must call
// Stop to release the connection and goroutine.
func Start(ctx context.Context, mailboxID int64, callbacks Callbacks, logger *slog.Logger) *Watcher {
	loopCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		mailboxID: mailboxID,
		callbacks: callbacks,
		logger:    logger.With("mailbox_id", mailboxID),
		cancel:    cancel,
		done:      make(chan struct{}),
		snapshot:  make(chan chan Snapshot),
	}
	go w.run(loopCtx)
	return w
}

// Stop cancels the watcher's loop and waits for it to release its
// connection.
func (w *Watcher) Stop() {
	w.cancel()
	<-w.done
}

// Status returns a snapshot of the watcher's current state, taken by
// sending a request onto the loop's own goroutine so there is no data
// race with the mode/lastUID fields it owns.
func (w *Watcher) Status() Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case w.snapshot <- reply:
		return <-reply
	case <-w.done:
		return Snapshot{MailboxID: w.mailboxID, Mode: ModeStopped}
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	state := Snapshot{MailboxID: w.mailboxID, Mode: ModeConnecting, UpdatedAt: time.Now()}
	var backoff time.Duration

	for {
		select {
		case <-ctx.Done():
			return
		case reply := <-w.snapshot:
			reply <- state
			continue
		default:
		}

		mailbox, err := w.callbacks.LoadMailbox(ctx, w.mailboxID)
		if err != nil {
			state = w.backoffState(state, err, &backoff)
			if w.sleepOrStop(ctx, backoff) {
				return
			}
			continue
		}

		client, err := mail.Connect(mailbox.Endpoint, 30*time.Second)
		if err != nil {
			state = w.backoffState(state, err, &backoff)
			if w.sleepOrStop(ctx, backoff) {
				return
			}
			continue
		}

		preferPolling := mailbox.PreferPolling || !client.IdleCapable

		if err := w.drainLoop(ctx, client, mailbox, preferPolling, &state); err != nil {
			client.Logout()
			state = w.backoffState(state, err, &backoff)
			if w.sleepOrStop(ctx, backoff) {
				return
			}
			continue
		}

		backoff = 0

		if preferPolling {
			client.Logout()
			if w.sleepOrStop(ctx, mailbox.PollInterval) {
				return
			}
			continue
		}

		state.Mode = ModeIdle
		timedOut, err := waitForPush(ctx, client, idleWait)
		if err != nil {
			client.Logout()
			state = w.backoffState(state, err, &backoff)
			if w.sleepOrStop(ctx, backoff) {
				return
			}
			continue
		}
		_ = timedOut
		client.Logout()
	}
}

func (w *Watcher) sleepOrStop(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return true
	case <-time.After(d):
		return false
	case reply := <-w.snapshot:
		reply <- Snapshot{MailboxID: w.mailboxID, Mode: ModeErrorBackoff}
		return w.sleepOrStop(ctx, d)
	}
}

func (w *Watcher) backoffState(prev Snapshot, err error, backoff *time.Duration) Snapshot {
	w.logger.Error("watcher cycle failed", "error", err)
	next := *backoff * 2
	if next == 0 {
		next = minBackoff
	}
	if next > maxBackoff {
		next = maxBackoff
	}
	*backoff = next
	return Snapshot{
		MailboxID: w.mailboxID,
		Mode:      ModeErrorBackoff,
		LastUID:   prev.LastUID,
		LastError: err.Error(),
		UpdatedAt: time.Now(),
	}
}

// drainLoop fetches and routes every new message in ascending UID order,
// advancing last_uid after each one regardless of routing outcome.
func (w *Watcher) drainLoop(ctx context.Context, client *mail.Client, mailbox *Mailbox, preferPolling bool, state *Snapshot) error {
	selected, err := client.Select(mailbox.Folder)
	if err != nil {
		return fmt.Errorf("failed to select folder: %w", err)
	}

	lastUID := mailbox.LastUID
	if mailbox.CheckUIDValidity && mailbox.UIDValidity != 0 && selected.UIDValidity != mailbox.UIDValidity {
		w.logger.Warn("uid_validity changed, resetting last_uid",
			"old", mailbox.UIDValidity, "new", selected.UIDValidity)
		if err := w.callbacks.ResetUID(ctx, mailbox.ID, selected.UIDValidity); err != nil {
			return fmt.Errorf("failed to reset uid_validity: %w", err)
		}
		lastUID = 0
		mailbox.UIDValidity = selected.UIDValidity
	} else if mailbox.UIDValidity == 0 {
		mailbox.UIDValidity = selected.UIDValidity
	}

	maxAgeDays := mailbox.MaxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 7
	}
	since := time.Now().AddDate(0, 0, -maxAgeDays)

	uids, err := client.SearchSince(lastUID, since)
	if err != nil {
		return fmt.Errorf("failed to search folder: %w", err)
	}

	if len(uids) > 0 {
		state.Mode = ModeProcessing
	}

	for _, uid := range sortedUnique(uids) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if uid <= lastUID {
			continue
		}

		fetched, err := client.FetchRFC822(uid)
		if err != nil {
			w.logger.Error("failed to fetch message, leaving uid in place", "uid", uid, "error", err)
			continue
		}

		parsed, err := mail.Parse(fetched.RFC822)
		if err != nil {
			w.logger.Error("failed to parse message, leaving uid in place", "uid", uid, "error", err)
			continue
		}

		decision, err := w.callbacks.Route(ctx, mailbox.ID, parsed)
		if err != nil {
			w.logger.Error("routing failed, leaving uid in place", "uid", uid, "error", err)
			continue
		}

		if !decision.Skip {
			emailDate := parsed.Date
			if emailDate.IsZero() {
				emailDate = time.Now()
			}
			if err := w.callbacks.Enqueue(ctx, mailbox.ID, decision, parsed, uid, mailbox.Folder, mailbox.UIDValidity, emailDate); err != nil {
				w.logger.Error("enqueue failed, leaving uid in place", "uid", uid, "error", err)
				continue
			}
		}

		if err := w.callbacks.AdvanceUID(ctx, mailbox.ID, uid, mailbox.UIDValidity); err != nil {
			return fmt.Errorf("failed to advance last_uid: %w", err)
		}
		lastUID = uid
		state.LastUID = lastUID
	}

	return nil
}

func sortedUnique(uids []uint32) []uint32 {
	seen := make(map[uint32]bool, len(uids))
	out := make([]uint32, 0, len(uids))
	for _, u := range uids {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
