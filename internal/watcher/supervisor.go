package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Supervisor owns the mapping from mailbox id to running watcher handle.
// The map is guarded by mu, so any caller may start, stop or look up a
// watcher; a watcher's own state is read through Watcher.Status rather
// than touched directly.
type Supervisor struct {
	mu       sync.Mutex
	handles  map[int64]*Watcher
	callback func(mailboxID int64) Callbacks
	logger   *slog.Logger
}

// NewSupervisor builds a supervisor. callback resolves the Callbacks
// implementation for a given mailbox id (distinct wiring for user-owned
// vs. the global mailbox).
func NewSupervisor(callback func(mailboxID int64) Callbacks, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		handles:  make(map[int64]*Watcher),
		callback: callback,
		logger:   logger,
	}
}

// StartWatch is idempotent: calling it for an already-running mailbox is
// a no-op (§4.1 `start(mailbox_id)`).
func (s *Supervisor) StartWatch(ctx context.Context, mailboxID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.handles[mailboxID]; running {
		return
	}
	w := Start(ctx, mailboxID, s.callback(mailboxID), s.logger)
	s.handles[mailboxID] = w
}

// StopWatch cancels a running watcher and releases its connection.
func (s *Supervisor) StopWatch(mailboxID int64) {
	s.mu.Lock()
	w, running := s.handles[mailboxID]
	delete(s.handles, mailboxID)
	s.mu.Unlock()

	if running {
		w.Stop()
	}
}

// Restart stops then restarts a watcher, used after a config change or a
// manual "scan now" (§4.1 `restart(mailbox_id)`).
func (s *Supervisor) Restart(ctx context.Context, mailboxID int64) {
	s.StopWatch(mailboxID)
	s.StartWatch(ctx, mailboxID)
}

// IsScanning reports whether the watcher is currently in PROCESSING mode.
func (s *Supervisor) IsScanning(mailboxID int64) bool {
	s.mu.Lock()
	w, running := s.handles[mailboxID]
	s.mu.Unlock()
	if !running {
		return false
	}
	return w.Status().Mode == ModeProcessing
}

// Status returns a snapshot for one watcher, or an error if it is not
// running.
func (s *Supervisor) Status(mailboxID int64) (Snapshot, error) {
	s.mu.Lock()
	w, running := s.handles[mailboxID]
	s.mu.Unlock()
	if !running {
		return Snapshot{}, fmt.Errorf("no watcher running for mailbox %d", mailboxID)
	}
	return w.Status(), nil
}

// StatusAll returns a snapshot for every running watcher.
func (s *Supervisor) StatusAll() []Snapshot {
	s.mu.Lock()
	handles := make([]*Watcher, 0, len(s.handles))
	for _, w := range s.handles {
		handles = append(handles, w)
	}
	s.mu.Unlock()

	snapshots := make([]Snapshot, 0, len(handles))
	for _, w := range handles {
		snapshots = append(snapshots, w.Status())
	}
	return snapshots
}

// StopAll stops every running watcher, used on process shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	handles := make([]*Watcher, 0, len(s.handles))
	for id, w := range s.handles {
		handles = append(handles, w)
		delete(s.handles, id)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range handles {
		wg.Add(1)
		go func(w *Watcher) {
			defer wg.Done()
			w.Stop()
		}(w)
	}
	wg.Wait()
}
