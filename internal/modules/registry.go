package modules

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"ordertracker/internal/database"
	"ordertracker/internal/notify"
	"ordertracker/internal/processor"
)

// Registry holds every discovered module keyed by Manifest.Key, and
// owns the enabled/disabled lifecycle against the ModuleConfig table
// (§4.8).
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
	enabled map[string]bool
	db      *database.DB
	logger  *slog.Logger
}

// NewRegistry builds an empty registry bound to db for ModuleConfig sync.
func NewRegistry(db *database.DB, logger *slog.Logger) *Registry {
	return &Registry{
		modules: make(map[string]Module),
		enabled: make(map[string]bool),
		db:      db,
		logger:  logger,
	}
}

// Register adds a discovered module to the in-memory map and ensures a
// ModuleConfig row exists for it (§4.8 steps 1-2). Call this for every
// module before Startup.
func (r *Registry) Register(m Module) error {
	manifest := m.Manifest()

	r.mu.Lock()
	r.modules[manifest.Key] = m
	r.mu.Unlock()

	if err := r.db.ModuleConfigs.EnsureExists(manifest.Key, manifest.PreEnabled); err != nil {
		return fmt.Errorf("failed to sync module config for %s: %w", manifest.Key, err)
	}

	cfg, err := r.db.ModuleConfigs.Get(manifest.Key)
	if err != nil {
		return fmt.Errorf("failed to load module config for %s: %w", manifest.Key, err)
	}

	r.mu.Lock()
	r.enabled[manifest.Key] = cfg.Enabled
	r.mu.Unlock()
	return nil
}

// Startup invokes Startup on every enabled module that implements
// Startable (§4.8 step 3).
func (r *Registry) Startup(ctx context.Context) {
	for _, key := range r.sortedKeys() {
		if !r.isEnabled(key) {
			continue
		}
		r.startOne(ctx, key)
	}
}

// Shutdown invokes Shutdown on every module that implements Stoppable,
// regardless of enabled state (§4.8 step 4).
func (r *Registry) Shutdown(ctx context.Context) {
	for _, key := range r.sortedKeys() {
		m := r.get(key)
		if stoppable, ok := m.(Stoppable); ok {
			if err := stoppable.Shutdown(ctx); err != nil {
				r.logger.Error("module shutdown failed", "module", key, "error", err)
			}
		}
	}
}

// SetEnabled toggles a module's ModuleConfig row and invokes the
// corresponding lifecycle hook. The hook's failure is logged but never
// reverts the toggle (§4.8 "Admin toggling").
func (r *Registry) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if err := r.db.ModuleConfigs.SetEnabled(key, enabled); err != nil {
		return fmt.Errorf("failed to persist module enabled state: %w", err)
	}

	r.mu.Lock()
	r.enabled[key] = enabled
	r.mu.Unlock()

	if enabled {
		r.startOne(ctx, key)
	} else {
		m := r.get(key)
		if stoppable, ok := m.(Stoppable); ok {
			if err := stoppable.Shutdown(ctx); err != nil {
				r.logger.Error("module shutdown failed", "module", key, "error", err)
			}
		}
	}
	return nil
}

func (r *Registry) startOne(ctx context.Context, key string) {
	m := r.get(key)
	if m == nil {
		return
	}
	if startable, ok := m.(Startable); ok {
		if err := startable.Startup(ctx); err != nil {
			r.logger.Error("module startup failed", "module", key, "error", err)
		}
	}
}

// IsEnabled reports a module's current enabled state, used for gating
// (§4.8: "a module type's API routes return FORBIDDEN when the
// corresponding ModuleConfig is disabled").
func (r *Registry) IsEnabled(key string) bool {
	return r.isEnabled(key)
}

func (r *Registry) isEnabled(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[key]
}

func (r *Registry) get(key string) Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modules[key]
}

// EnabledOfType lists the enabled modules of a given type.
func (r *Registry) EnabledOfType(t Type) []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Module
	for key, m := range r.modules {
		if r.enabled[key] && m.Manifest().Type == t {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest().Key < out[j].Manifest().Key })
	return out
}

// CurrentAnalyzer implements processor.AnalyzerProvider: the first
// enabled analyzer module that is configured and satisfies
// processor.Analyzer, or ok=false if none qualifies (§4.4 step 1).
func (r *Registry) CurrentAnalyzer() (processor.Analyzer, bool) {
	for _, m := range r.EnabledOfType(TypeAnalyzer) {
		if c, ok := m.(Configurable); ok && !c.IsConfigured() {
			continue
		}
		if a, ok := m.(processor.Analyzer); ok {
			return a, true
		}
	}
	return nil, false
}

// EnabledNotifiers implements notify.Registry: every enabled notifier
// module that also satisfies notify.Notifier.
func (r *Registry) EnabledNotifiers() []notify.Notifier {
	var out []notify.Notifier
	for _, m := range r.EnabledOfType(TypeNotifier) {
		if n, ok := m.(notify.Notifier); ok {
			out = append(out, n)
		}
	}
	return out
}

// List returns every discovered module's manifest plus current enabled
// state and, where implemented, status and is_configured — for the
// status endpoint's module list.
type ModuleSummary struct {
	Manifest     Manifest
	Enabled      bool
	IsConfigured bool
	Status       any
}

func (r *Registry) List() []ModuleSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModuleSummary, 0, len(r.modules))
	for _, m := range r.modules {
		summary := ModuleSummary{Manifest: m.Manifest(), Enabled: r.enabled[m.Manifest().Key]}
		if c, ok := m.(Configurable); ok {
			summary.IsConfigured = c.IsConfigured()
		}
		if s, ok := m.(Statusable); ok {
			summary.Status = s.Status()
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Key < out[j].Manifest.Key })
	return out
}

func (r *Registry) sortedKeys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.modules))
	for k := range r.modules {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
