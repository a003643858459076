// Package globalmailbox wires the singleton global mailbox into the
// watcher supervisor, routing each message by looking up the sender's
// address against GlobalSenderBinding (§4.1 "Global mailbox" routing
// rule, §3 invariant 6).
package globalmailbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ordertracker/internal/database"
	"ordertracker/internal/mail"
	"ordertracker/internal/modules"
	"ordertracker/internal/queue"
	"ordertracker/internal/secrets"
	"ordertracker/internal/watcher"
)

const ModuleKey = "global_mailbox"

// WatcherID is the fixed id the supervisor indexes the global mailbox's
// single watcher under, distinct from any user watched-folder id since
// this module owns exactly one watcher.
const WatcherID int64 = -1

// Module watches the singleton global mailbox, if configured.
type Module struct {
	db         *database.DB
	box        *secrets.Box
	supervisor *watcher.Supervisor
}

func New(db *database.DB, box *secrets.Box, supervisor *watcher.Supervisor) *Module {
	return &Module{db: db, box: box, supervisor: supervisor}
}

func (m *Module) Manifest() modules.Manifest {
	return modules.Manifest{
		Key:         ModuleKey,
		Name:        "Global Mailbox",
		Type:        modules.TypeProvider,
		Version:     "1.0.0",
		Description: "Watches a single shared mailbox and routes messages to bound users.",
	}
}

func (m *Module) IsConfigured() bool {
	mailbox, err := m.db.Mailboxes.GetGlobal()
	return err == nil && mailbox != nil
}

func (m *Module) Startup(ctx context.Context) error {
	if !m.IsConfigured() {
		return nil
	}
	m.supervisor.StartWatch(ctx, WatcherID)
	return nil
}

func (m *Module) Shutdown(ctx context.Context) error {
	m.supervisor.StopWatch(WatcherID)
	return nil
}

// Callbacks builds the watcher.Callbacks implementation for the global
// mailbox singleton.
func (m *Module) Callbacks() watcher.Callbacks {
	return &callbacks{db: m.db, box: m.box}
}

type callbacks struct {
	db  *database.DB
	box *secrets.Box
}

func (c *callbacks) LoadMailbox(ctx context.Context, _ int64) (*watcher.Mailbox, error) {
	mailbox, err := c.db.Mailboxes.GetGlobal()
	if err != nil {
		return nil, fmt.Errorf("failed to load global mailbox: %w", err)
	}
	if mailbox == nil {
		return nil, fmt.Errorf("global mailbox not configured")
	}

	password, err := c.box.Decrypt(mailbox.EncryptedPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt global mailbox password: %w", err)
	}

	maxAgeDays := 7
	var uidValidity uint32
	if mailbox.UIDValidity.Valid {
		uidValidity = uint32(mailbox.UIDValidity.Int64)
	}

	pollInterval := time.Duration(mailbox.PollIntervalS) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}

	folder := "INBOX"
	if mailbox.WatchedFolder.Valid {
		folder = mailbox.WatchedFolder.String
	}

	return &watcher.Mailbox{
		ID: mailbox.ID,
		Endpoint: mail.Endpoint{
			Host:     mailbox.Host,
			Port:     mailbox.Port,
			Username: mailbox.Username,
			Password: password,
			TLS:      mailbox.TLS,
		},
		Folder:           folder,
		LastUID:          mailbox.LastUID,
		UIDValidity:      uidValidity,
		MaxAgeDays:       maxAgeDays,
		PreferPolling:    mailbox.PreferPolling,
		PollInterval:     pollInterval,
		CheckUIDValidity: true,
	}, nil
}

// Route lowercases the sender address and looks up a GlobalSenderBinding;
// on miss the message is skipped but its UID still advances (§3 invariant 6).
func (c *callbacks) Route(ctx context.Context, _ int64, parsed *mail.ParsedMessage) (watcher.RouteDecision, error) {
	address := strings.ToLower(strings.TrimSpace(parsed.From))
	if address == "" {
		return watcher.RouteDecision{Skip: true}, nil
	}

	userID, found, err := c.db.GlobalSenderBindings.Lookup(address)
	if err != nil {
		return watcher.RouteDecision{}, fmt.Errorf("failed to look up global sender binding: %w", err)
	}
	if !found {
		return watcher.RouteDecision{Skip: true}, nil
	}
	return watcher.RouteDecision{UserID: userID, SourceType: ModuleKey}, nil
}

func (c *callbacks) Enqueue(ctx context.Context, mailboxID int64, decision watcher.RouteDecision, parsed *mail.ParsedMessage, uid uint32, folder string, uidValidity uint32, emailDate time.Time) error {
	stableID := mail.StableID(mailboxID, folder, uidValidity, uid, parsed.MessageID)

	raw := queue.RawData{
		Subject:   parsed.Subject,
		Sender:    parsed.From,
		Body:      parsed.Body,
		MessageID: parsed.MessageID,
		EmailUID:  int(uid),
		EmailDate: emailDate.UTC().Format(time.RFC3339),
	}
	encoded, err := raw.Encode()
	if err != nil {
		return err
	}

	_, err = queue.Enqueue(c.db, queue.Message{
		UserID:          decision.UserID,
		SourceType:      decision.SourceType,
		SourceInfo:      folder,
		MailboxID:       mailboxID,
		FolderPath:      folder,
		SourceUID:       uid,
		StableMessageID: stableID,
		Source:          queue.SourceGlobalMailbox,
		RawData:         encoded,
	})
	return err
}

func (c *callbacks) AdvanceUID(ctx context.Context, mailboxID int64, uid uint32, uidValidity uint32) error {
	return c.db.Mailboxes.AdvanceGlobalUID(mailboxID, uid, int64(uidValidity))
}

func (c *callbacks) ResetUID(ctx context.Context, mailboxID int64, uidValidity uint32) error {
	return c.db.Mailboxes.AdvanceGlobalUID(mailboxID, 0, int64(uidValidity))
}
