// Package useraccount wires user-owned mailboxes into the watcher
// supervisor: one watcher per (mailbox, watched folder) pair, routed to
// the owning user's account (§4.1 "user mailbox" routing rule).
package useraccount

import (
	"context"
	"fmt"
	"time"

	"ordertracker/internal/database"
	"ordertracker/internal/mail"
	"ordertracker/internal/modules"
	"ordertracker/internal/queue"
	"ordertracker/internal/secrets"
	"ordertracker/internal/watcher"
)

const ModuleKey = "user_account"

// Module watches every user-owned mailbox's watched folders.
type Module struct {
	db         *database.DB
	box        *secrets.Box
	supervisor *watcher.Supervisor
}

// New builds the user_account provider module. Startup discovers every
// user mailbox's watched folders and starts a watcher for each.
func New(db *database.DB, box *secrets.Box, supervisor *watcher.Supervisor) *Module {
	return &Module{db: db, box: box, supervisor: supervisor}
}

func (m *Module) Manifest() modules.Manifest {
	return modules.Manifest{
		Key:         ModuleKey,
		Name:        "User Mailbox",
		Type:        modules.TypeProvider,
		Version:     "1.0.0",
		Description: "Watches user-owned mailboxes for new order emails.",
		PreEnabled:  true,
	}
}

func (m *Module) IsConfigured() bool { return true }

// Startup starts one watcher per watched folder across every user
// mailbox.
func (m *Module) Startup(ctx context.Context) error {
	folders, err := m.db.WatchedFolders.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list watched folders: %w", err)
	}
	for _, folder := range folders {
		m.supervisor.StartWatch(ctx, watcherID(folder.MailboxID, folder.ID))
	}
	return nil
}

func (m *Module) Shutdown(ctx context.Context) error {
	folders, err := m.db.WatchedFolders.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list watched folders: %w", err)
	}
	for _, folder := range folders {
		m.supervisor.StopWatch(watcherID(folder.MailboxID, folder.ID))
	}
	return nil
}

// watcherID folds a (mailbox, folder) pair into the single int64 key the
// supervisor indexes on: one user mailbox may watch several folders, so
// the folder id (globally unique) stands in directly for the watcher.
func watcherID(mailboxID, folderID int64) int64 { return folderID }

// CallbacksFor builds the watcher.Callbacks implementation for one
// watched folder, resolved from the folder id encoded by watcherID.
func (m *Module) CallbacksFor(folderID int64) watcher.Callbacks {
	return &callbacks{db: m.db, box: m.box, folderID: folderID}
}

type callbacks struct {
	db       *database.DB
	box      *secrets.Box
	folderID int64
}

func (c *callbacks) LoadMailbox(ctx context.Context, _ int64) (*watcher.Mailbox, error) {
	folder, err := c.loadFolder()
	if err != nil {
		return nil, err
	}
	mailbox, err := c.db.Mailboxes.GetByID(folder.MailboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mailbox: %w", err)
	}
	if mailbox == nil {
		return nil, fmt.Errorf("mailbox %d not found", folder.MailboxID)
	}

	password, err := c.box.Decrypt(mailbox.EncryptedPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt mailbox password: %w", err)
	}

	maxAgeDays := 7
	if folder.MaxAgeDaysOverride.Valid {
		maxAgeDays = int(folder.MaxAgeDaysOverride.Int64)
	}

	var uidValidity uint32
	if folder.UIDValidity.Valid {
		uidValidity = uint32(folder.UIDValidity.Int64)
	}

	pollInterval := time.Duration(mailbox.PollIntervalS) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}

	return &watcher.Mailbox{
		ID: folder.ID,
		Endpoint: mail.Endpoint{
			Host:     mailbox.Host,
			Port:     mailbox.Port,
			Username: mailbox.Username,
			Password: password,
			TLS:      mailbox.TLS,
		},
		Folder:           folder.Path,
		LastUID:          folder.LastUID,
		UIDValidity:      uidValidity,
		MaxAgeDays:       maxAgeDays,
		PreferPolling:    mailbox.PreferPolling,
		PollInterval:     pollInterval,
		CheckUIDValidity: true,
	}, nil
}

// Route attaches every message to the mailbox owner's user account
// (§4.1 "User mailbox" routing rule).
func (c *callbacks) Route(ctx context.Context, _ int64, _ *mail.ParsedMessage) (watcher.RouteDecision, error) {
	folder, err := c.loadFolder()
	if err != nil {
		return watcher.RouteDecision{}, err
	}
	mailbox, err := c.db.Mailboxes.GetByID(folder.MailboxID)
	if err != nil {
		return watcher.RouteDecision{}, fmt.Errorf("failed to load mailbox: %w", err)
	}
	if mailbox == nil || !mailbox.UserID.Valid {
		return watcher.RouteDecision{Skip: true}, nil
	}
	return watcher.RouteDecision{UserID: mailbox.UserID.Int64, SourceType: ModuleKey}, nil
}

func (c *callbacks) Enqueue(ctx context.Context, _ int64, decision watcher.RouteDecision, parsed *mail.ParsedMessage, uid uint32, folder string, uidValidity uint32, emailDate time.Time) error {
	stableID := mail.StableID(c.folderMailboxID(), folder, uidValidity, uid, parsed.MessageID)

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
		MailboxID:       c.folderMailboxID(),
		FolderPath:      folder,
		SourceUID:       uid,
		StableMessageID: stableID,
		Source:          queue.SourceUserMailbox,
		RawData:         encoded,
	})
	return err
}

func (c *callbacks) AdvanceUID(ctx context.Context, _ int64, uid uint32, uidValidity uint32) error {
	return c.db.WatchedFolders.AdvanceUID(c.folderID, uid, int64(uidValidity))
}

func (c *callbacks) ResetUID(ctx context.Context, _ int64, uidValidity uint32) error {
	return c.db.WatchedFolders.AdvanceUID(c.folderID, 0, int64(uidValidity))
}

func (c *callbacks) loadFolder() (*database.WatchedFolder, error) {
	folder, err := c.db.WatchedFolders.GetByID(c.folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load watched folder: %w", err)
	}
	if folder == nil {
		return nil, fmt.Errorf("watched folder %d not found", c.folderID)
	}
	return folder, nil
}

func (c *callbacks) folderMailboxID() int64 {
	folder, err := c.loadFolder()
	if err != nil {
		return 0
	}
	return folder.MailboxID
}
