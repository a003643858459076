// Package modules implements the module registry & lifecycle described
// in §4.8: discovery of provider/analyzer/notifier modules, ModuleConfig
// sync, startup/shutdown, admin toggling and type-level gating.
package modules

import "context"

// Type identifies which surface a module provides.
type Type string

const (
	TypeProvider Type = "provider"
	TypeAnalyzer Type = "analyzer"
	TypeNotifier Type = "notifier"
)

// Manifest is the static description every module exposes (§4.8). Go has
// no duck-typed manifest object; PreEnabled is its only flag, and the
// optional hooks the registry tests for (§9) are the capability
// interfaces below.
type Manifest struct {
	Key         string
	Name        string
	Type        Type
	Version     string
	Description string
	PreEnabled  bool
}

// Module is the minimum every discovered module implements. The
// remaining manifest-optional hooks (startup, shutdown, is_configured,
// status, notify) are modeled as separate capability interfaces a
// concrete module may additionally satisfy — the §9 "capability-set"
// redesign in place of a duck-typed manifest.
type Module interface {
	Manifest() Manifest
}

// Configurable reports whether a module has the external configuration
// it needs to run (e.g. an LLM API key, SMTP credentials).
type Configurable interface {
	IsConfigured() bool
}

// Startable runs on process start for every enabled module, and again
// whenever an admin flips enabled=false -> true.
type Startable interface {
	Startup(ctx context.Context) error
}

// Stoppable runs on process shutdown, and whenever an admin flips
// enabled=true -> false.
type Stoppable interface {
	Shutdown(ctx context.Context) error
}

// Statusable exposes a module's current runtime status for the system
// status endpoint.
type Statusable interface {
	Status() any
}
