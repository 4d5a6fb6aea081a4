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

package otelinject

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"slices"

	"rivaas.dev/inject"
	"rivaas.dev/inject/registry"
)

// patchRecord associates a minted wrapper with the original it replaced.
// Records are the only bookkeeping: nothing is attached to the callables
// or namespaces themselves.
type patchRecord struct {
	wrapped   inject.Func
	original  inject.Func
	namespace *registry.Namespace // nil for the direct shape
}

// Patch instruments module exports, returning the value to publish in
// their place. Two shapes are supported:
//
//   - a direct dispatch callable (inject.Func or the equivalent unnamed
//     signature): the wrapper is returned
//   - a *registry.Namespace whose Default is such a callable: Default is
//     repointed at the wrapper, along with every member aliasing the
//     original; other members stay untouched
//
// Anything else is left unchanged after a warning event naming the
// concrete type and its members. Exports this instrumentation already
// patched are returned as-is, so repeated installation cannot stack
// wrappers. Patch never panics.
func (i *Instrumentation) Patch(exports any, version string) any {
	if i.alreadyPatched(exports) {
		i.emitDebug("Module already instrumented; skipping", "version", version)
		return exports
	}

	if fn, ok := asDispatchFunc(exports); ok {
		wrapped := i.Wrap(fn)
		i.recordPatch(&patchRecord{wrapped: wrapped, original: fn})
		i.emitDebug("Instrumented dispatch func", "version", version)

		return wrapped
	}

	if ns, ok := exports.(*registry.Namespace); ok && ns != nil {
		if fn, ok := asDispatchFunc(ns.Default); ok {
			wrapped := i.Wrap(fn)
			ns.Default = wrapped
			for name, member := range ns.Members {
				if sameFunc(member, fn) {
					ns.Members[name] = wrapped
				}
			}
			i.recordPatch(&patchRecord{wrapped: wrapped, original: fn, namespace: ns})
			i.emitDebug("Instrumented namespace default", "version", version)

			return ns
		}
	}

	i.emitWarning("Unsupported module shape; skipping instrumentation",
		"type", fmt.Sprintf("%T", exports),
		"members", memberNames(exports),
	)

	return exports
}

// Unpatch reverses Patch: a wrapper yields the recorded original, a
// patched namespace gets its default and aliases restored in place.
// Values without a matching patch record are returned unchanged.
func (i *Instrumentation) Unpatch(exports any) any {
	if ns, ok := exports.(*registry.Namespace); ok && ns != nil {
		rec := i.takeRecord(func(r *patchRecord) bool { return r.namespace == ns })
		if rec == nil {
			return exports
		}
		ns.Default = rec.original
		for name, member := range ns.Members {
			if sameFunc(member, rec.wrapped) {
				ns.Members[name] = rec.original
			}
		}
		i.emitDebug("Restored namespace default")

		return ns
	}

	if fn, ok := asDispatchFunc(exports); ok {
		rec := i.takeRecord(func(r *patchRecord) bool {
			return r.namespace == nil && sameFunc(fn, r.wrapped)
		})
		if rec != nil {
			i.emitDebug("Restored dispatch func")
			return rec.original
		}
	}

	return exports
}

// Hook returns the registration payload for a module registry: the target
// module path, the supported version range, and this instrumentation's
// patch and unpatch funcs. Registering it instruments matching modules
// already provided and any provided later.
//
// Example:
//
//	reg := registry.New()
//	remove, err := reg.Use(inst.Hook())
func (i *Instrumentation) Hook() registry.Hook {
	return registry.Hook{
		Module:     TargetModule,
		Constraint: SupportedVersions,
		Patch:      i.Patch,
		Unpatch:    i.Unpatch,
	}
}

// alreadyPatched reports whether exports is something this
// instrumentation produced: a recorded namespace or one of its wrappers.
func (i *Instrumentation) alreadyPatched(exports any) bool {
	i.patchMu.Lock()
	defer i.patchMu.Unlock()

	if ns, ok := exports.(*registry.Namespace); ok {
		for _, rec := range i.patches {
			if rec.namespace == ns {
				return true
			}
		}
		return false
	}
	if fn, ok := asDispatchFunc(exports); ok {
		// A bare wrapper counts as patched no matter which shape minted it.
		for _, rec := range i.patches {
			if sameFunc(fn, rec.wrapped) {
				return true
			}
		}
	}

	return false
}

// recordPatch stores a patch record.
func (i *Instrumentation) recordPatch(rec *patchRecord) {
	i.patchMu.Lock()
	i.patches = append(i.patches, rec)
	i.patchMu.Unlock()
}

// takeRecord removes and returns the first record matching the predicate.
func (i *Instrumentation) takeRecord(match func(*patchRecord) bool) *patchRecord {
	i.patchMu.Lock()
	defer i.patchMu.Unlock()

	for idx, rec := range i.patches {
		if match(rec) {
			i.patches = slices.Delete(i.patches, idx, idx+1)
			return rec
		}
	}

	return nil
}

// asDispatchFunc extracts the dispatch callable from an exports value,
// accepting both the named type and the equivalent unnamed signature a
// plain func declaration carries.
func asDispatchFunc(exports any) (inject.Func, bool) {
	switch fn := exports.(type) {
	case inject.Func:
		if fn != nil {
			return fn, true
		}
	case func(context.Context, http.Handler, any, inject.Callback) *inject.Result:
		if fn != nil {
			return inject.Func(fn), true
		}
	}

	return nil, false
}

// sameFunc reports whether a and b are backed by the same function code.
// Closures minted from one literal compare equal, which is the property
// wrapper and alias detection rely on; it also means records cannot tell
// two direct-shape wrappers of different originals apart, so those resolve
// in registration order.
func sameFunc(a any, b inject.Func) bool {
	if a == nil || b == nil {
		return false
	}
	va := reflect.ValueOf(a)
	if va.Kind() != reflect.Func {
		return false
	}

	return va.Pointer() == reflect.ValueOf(b).Pointer()
}

// memberNames lists the member names of an unsupported module shape for
// diagnostics: namespace members, map keys, or struct fields.
func memberNames(exports any) []string {
	if ns, ok := exports.(*registry.Namespace); ok {
		if ns == nil {
			return nil
		}
		names := make([]string, 0, len(ns.Members)+1)
		names = append(names, "default")
		for name := range ns.Members {
			names = append(names, name)
		}
		slices.Sort(names)

		return names
	}

	rv := reflect.ValueOf(exports)
	switch rv.Kind() {
	case reflect.Map:
		names := make([]string, 0, rv.Len())
		for _, key := range rv.MapKeys() {
			names = append(names, fmt.Sprint(key.Interface()))
		}
		slices.Sort(names)

		return names
	case reflect.Struct:
		t := rv.Type()
		names := make([]string, 0, t.NumField())
		for f := range t.NumField() {
			names = append(names, t.Field(f).Name)
		}

		return names
	case reflect.Pointer:
		if !rv.IsNil() {
			return memberNames(rv.Elem().Interface())
		}
	}

	return nil
}
