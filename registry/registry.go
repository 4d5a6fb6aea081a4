// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package registry is a small in-process module registry: named, versioned
// export values plus hooks that rewrite exports as modules are provided.
// It exists so cross-cutting concerns (instrumentation, test doubles) can
// patch a module's public surface without the module or its callers
// cooperating.
//
// There is no package-level default registry. Construct one with New and
// pass it where it is needed.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Namespace is the exports shape of a module published as a namespace: a
// default entry point plus named members (aliases, helpers, constants).
type Namespace struct {
	// Default is the module's primary export.
	Default any

	// Members holds the named exports.
	Members map[string]any
}

// Hook rewrites a module's exports. Patch runs when a matching module is
// provided (or immediately, for modules already present when the hook is
// registered); Unpatch undoes it when the hook is removed or the module is
// dropped.
type Hook struct {
	// Module is the module path the hook applies to.
	Module string

	// Constraint is a semver range limiting the versions patched, for
	// example ">=4.0.0". Empty matches every version.
	Constraint string

	// Patch receives the current exports and the module version and
	// returns the exports to publish. Returning the input unchanged is a
	// valid no-op.
	Patch func(exports any, version string) any

	// Unpatch undoes Patch. Hooks without it leave their patch in place
	// at removal.
	Unpatch func(exports any) any
}

type hookEntry struct {
	hook       Hook
	constraint *semver.Constraints
}

// matches reports whether the hook applies to version v.
func (h *hookEntry) matches(v *semver.Version) bool {
	return h.constraint == nil || h.constraint.Check(v)
}

type moduleEntry struct {
	version string
	parsed  *semver.Version
	exports any
	applied []*hookEntry
}

// Registry holds named, versioned module exports. All methods are safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	modules map[string]*moduleEntry
	hooks   []*hookEntry
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for registry diagnostics. The default
// discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:  slog.New(slog.DiscardHandler),
		modules: make(map[string]*moduleEntry),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Provide publishes exports under a module path and semantic version.
// Hooks whose module and constraint match are applied in registration
// order before the module becomes visible. Re-providing a path unpatches
// and replaces the previous exports.
func (r *Registry) Provide(name, version string, exports any) error {
	if name == "" {
		return fmt.Errorf("module name: cannot be empty")
	}
	if exports == nil {
		return fmt.Errorf("module %s: exports cannot be nil", name)
	}
	parsed, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("module %s: invalid version %q: %w", name, version, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.modules[name]; ok {
		unpatchAll(old)
		r.logger.Warn("module replaced", "module", name, "version", version, "previous", old.version)
	}

	entry := &moduleEntry{version: version, parsed: parsed, exports: exports}
	for _, h := range r.hooks {
		if h.hook.Module != name {
			continue
		}
		if !h.matches(parsed) {
			r.logger.Debug("hook skipped", "module", name, "version", version, "constraint", h.hook.Constraint)
			continue
		}
		entry.exports = h.hook.Patch(entry.exports, version)
		entry.applied = append(entry.applied, h)
		r.logger.Debug("hook applied", "module", name, "version", version)
	}
	r.modules[name] = entry
	r.logger.Debug("module provided", "module", name, "version", version)

	return nil
}

// Lookup returns the current exports for a module path.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	if !ok {
		return nil, false
	}

	return m.exports, true
}

// Version returns the version a module was provided with.
func (r *Registry) Version(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	if !ok {
		return "", false
	}

	return m.version, true
}

// Use registers a hook and applies it to matching modules already
// provided. The returned remove func deregisters the hook and unpatches
// every module it touched; calling it more than once is a no-op.
func (r *Registry) Use(h Hook) (func(), error) {
	if h.Module == "" {
		return nil, fmt.Errorf("hook module: cannot be empty")
	}
	if h.Patch == nil {
		return nil, fmt.Errorf("hook patch: cannot be nil")
	}

	entry := &hookEntry{hook: h}
	if h.Constraint != "" {
		c, err := semver.NewConstraint(h.Constraint)
		if err != nil {
			return nil, fmt.Errorf("hook constraint %q: %w", h.Constraint, err)
		}
		entry.constraint = c
	}

	r.mu.Lock()
	r.hooks = append(r.hooks, entry)
	if m, ok := r.modules[h.Module]; ok {
		if entry.matches(m.parsed) {
			m.exports = h.Patch(m.exports, m.version)
			m.applied = append(m.applied, entry)
			r.logger.Debug("hook applied", "module", h.Module, "version", m.version)
		} else {
			r.logger.Debug("hook skipped", "module", h.Module, "version", m.version, "constraint", h.Constraint)
		}
	}
	r.mu.Unlock()

	var once sync.Once
	remove := func() {
		once.Do(func() { r.removeHook(entry) })
	}

	return remove, nil
}

// removeHook deregisters entry and unpatches the modules it was applied
// to.
func (r *Registry) removeHook(entry *hookEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, h := range r.hooks {
		if h == entry {
			r.hooks = append(r.hooks[:i], r.hooks[i+1:]...)
			break
		}
	}

	if entry.hook.Unpatch == nil {
		return
	}
	for name, m := range r.modules {
		for i, h := range m.applied {
			if h == entry {
				m.exports = entry.hook.Unpatch(m.exports)
				m.applied = append(m.applied[:i], m.applied[i+1:]...)
				r.logger.Debug("hook removed", "module", name, "version", m.version)
				break
			}
		}
	}
}

// Drop unloads a module, unpatching applied hooks in reverse order first.
// It reports whether the module was present.
func (r *Registry) Drop(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.modules[name]
	if !ok {
		return false
	}
	unpatchAll(m)
	delete(r.modules, name)
	r.logger.Debug("module dropped", "module", name, "version", m.version)

	return true
}

// unpatchAll reverses every applied hook, newest first.
func unpatchAll(m *moduleEntry) {
	for i := len(m.applied) - 1; i >= 0; i-- {
		if u := m.applied[i].hook.Unpatch; u != nil {
			m.exports = u(m.exports)
		}
	}
	m.applied = nil
}
