package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ordertracker/internal/database"
	"ordertracker/internal/modules"
	"ordertracker/internal/scheduler"
	"ordertracker/internal/watcher"
)

// HealthResponse is the payload returned by GET /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Message  string `json:"message,omitempty"`
}

// HealthHandler answers liveness checks against the database connection.
type HealthHandler struct {
	db *database.DB
}

// NewHealthHandler builds a health handler.
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthCheck handles GET /api/health.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Database: "ok"}

	if err := h.db.IsHealthy(); err != nil {
		resp.Status = "unhealthy"
		resp.Database = "error"
		resp.Message = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// moduleStatusJSON mirrors api.ModuleStatus for the wire payload.
type moduleStatusJSON struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Version      string `json:"version"`
	Enabled      bool   `json:"enabled"`
	IsConfigured bool   `json:"is_configured"`
}

type watcherStatusJSON struct {
	MailboxID int64  `json:"mailbox_id"`
	Mode      string `json:"mode"`
	LastUID   uint32 `json:"last_seen_uid"`
	LastError string `json:"last_error,omitempty"`
}

type queueStatusJSON struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

type schedulerJobJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Interval    int    `json:"interval_seconds"`
	LastRunAt   string `json:"last_run_at,omitempty"`
	LastStatus  string `json:"last_status,omitempty"`
	NextRunAt   string `json:"next_run_at,omitempty"`
}

type systemStatusJSON struct {
	Modules   []moduleStatusJSON  `json:"modules"`
	Watchers  []watcherStatusJSON `json:"watchers"`
	Queue     queueStatusJSON     `json:"queue"`
	Scheduler []schedulerJobJSON  `json:"scheduler"`
}

// StatusHandler serves the combined system status endpoint (§4.8, §4.9,
// §4.1): modules, watchers, queue depth and scheduler jobs in one payload.
type StatusHandler struct {
	registry   *modules.Registry
	supervisor *watcher.Supervisor
	queue      *database.QueueItemStore
	sched      *scheduler.Scheduler
}

// NewStatusHandler builds a status handler.
func NewStatusHandler(registry *modules.Registry, supervisor *watcher.Supervisor, queue *database.QueueItemStore, sched *scheduler.Scheduler) *StatusHandler {
	return &StatusHandler{registry: registry, supervisor: supervisor, queue: queue, sched: sched}
}

// GetStatus handles GET /api/status.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	var moduleStatuses []moduleStatusJSON
	for _, m := range h.registry.List() {
		moduleStatuses = append(moduleStatuses, moduleStatusJSON{
			Key:          m.Manifest.Key,
			Name:         m.Manifest.Name,
			Type:         string(m.Manifest.Type),
			Version:      m.Manifest.Version,
			Enabled:      m.Enabled,
			IsConfigured: m.IsConfigured,
		})
	}

	var watcherStatuses []watcherStatusJSON
	for _, s := range h.supervisor.StatusAll() {
		watcherStatuses = append(watcherStatuses, watcherStatusJSON{
			MailboxID: s.MailboxID,
			Mode:      string(s.Mode),
			LastUID:   s.LastUID,
			LastError: s.LastError,
		})
	}

	counts, err := h.queue.CountByStatus()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	queueStatus := queueStatusJSON{
		Queued:     counts[database.QueueStatusQueued],
		Processing: counts[database.QueueStatusProcessing],
		Completed:  counts[database.QueueStatusCompleted],
		Failed:     counts[database.QueueStatusFailed],
	}

	var jobStatuses []schedulerJobJSON
	for _, j := range h.sched.Status() {
		job := schedulerJobJSON{
			Name:        j.Name,
			Description: j.Description,
			Interval:    int(j.IntervalSeconds),
			LastStatus:  j.LastStatus,
		}
		if !j.LastRunAt.IsZero() {
			job.LastRunAt = j.LastRunAt.Format("2006-01-02T15:04:05Z07:00")
			job.NextRunAt = j.NextRunAt().Format("2006-01-02T15:04:05Z07:00")
		}
		jobStatuses = append(jobStatuses, job)
	}

	writeJSON(w, http.StatusOK, systemStatusJSON{
		Modules:   moduleStatuses,
		Watchers:  watcherStatuses,
		Queue:     queueStatus,
		Scheduler: jobStatuses,
	})
}

// ModuleHandler exposes the module registry's list and enable/disable
// toggle over HTTP (§4.8 "Admin toggling").
type ModuleHandler struct {
	registry *modules.Registry
}

// NewModuleHandler builds a module handler.
func NewModuleHandler(registry *modules.Registry) *ModuleHandler {
	return &ModuleHandler{registry: registry}
}

// ListModules handles GET /api/modules.
func (h *ModuleHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	var out []moduleStatusJSON
	for _, m := range h.registry.List() {
		out = append(out, moduleStatusJSON{
			Key:          m.Manifest.Key,
			Name:         m.Manifest.Name,
			Type:         string(m.Manifest.Type),
			Version:      m.Manifest.Version,
			Enabled:      m.Enabled,
			IsConfigured: m.IsConfigured,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Enable handles POST /api/modules/{key}/enable.
func (h *ModuleHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// Disable handles POST /api/modules/{key}/disable.
func (h *ModuleHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *ModuleHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	key := chi.URLParam(r, "key")
	if err := h.registry.SetEnabled(r.Context(), key, enabled); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// WatcherHandler exposes mailbox watcher status and restart control (§4.1).
type WatcherHandler struct {
	supervisor *watcher.Supervisor
}

// NewWatcherHandler builds a watcher handler.
func NewWatcherHandler(supervisor *watcher.Supervisor) *WatcherHandler {
	return &WatcherHandler{supervisor: supervisor}
}

// Restart handles POST /api/watchers/{mailbox_id}/restart.
func (h *WatcherHandler) Restart(w http.ResponseWriter, r *http.Request) {
	mailboxID, err := strconv.ParseInt(chi.URLParam(r, "mailbox_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.supervisor.Restart(r.Context(), mailboxID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "restarted"})
}

// QueueHandler exposes the job queue depth (§4.3).
type QueueHandler struct {
	queue *database.QueueItemStore
}

// NewQueueHandler builds a queue handler.
func NewQueueHandler(queue *database.QueueItemStore) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// Peek handles GET /api/queue.
func (h *QueueHandler) Peek(w http.ResponseWriter, r *http.Request) {
	counts, err := h.queue.CountByStatus()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, queueStatusJSON{
		Queued:     counts[database.QueueStatusQueued],
		Processing: counts[database.QueueStatusProcessing],
		Completed:  counts[database.QueueStatusCompleted],
		Failed:     counts[database.QueueStatusFailed],
	})
}

// ModuleTypeGate returns middleware that returns FORBIDDEN when no module
// of the given type is currently enabled, implementing §4.8's type-level
// gating ("a module type's API routes return FORBIDDEN when the
// corresponding ModuleConfig is disabled").
func ModuleTypeGate(registry *modules.Registry, t modules.Type) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(registry.EnabledOfType(t)) == 0 {
				writeError(w, http.StatusForbidden, errModuleTypeDisabled(t))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type moduleTypeDisabledError string

func (e moduleTypeDisabledError) Error() string { return string(e) }

func errModuleTypeDisabled(t modules.Type) error {
	return moduleTypeDisabledError("no enabled module of type " + string(t))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
