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

// Package otelinject provides OpenTelemetry tracing for rivaas.dev/inject.
// Every injected request becomes one server-kind span carrying HTTP
// semantic attributes, parented to trace context found in the synthetic
// request headers, finished exactly once in both the callback and the
// future call styles.
//
// # Basic Usage
//
//	import (
//	    "context"
//	    "log"
//	    "rivaas.dev/inject"
//	    "rivaas.dev/inject/otelinject"
//	)
//
//	inst, err := otelinject.New(
//	    otelinject.WithServiceName("my-service"),
//	    otelinject.WithStdout(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
//	dispatch := inst.Wrap(inject.Inject)
//	res, err := dispatch(ctx, handler, "/users/123", nil).Wait(ctx)
//
// # Patching Module Exports
//
// Instead of wrapping call sites one by one, the instrumentation can patch
// a module's published exports through a registry:
//
//	reg := registry.New()
//	remove, err := reg.Use(inst.Hook())
//	// every matching rivaas.dev/inject registration is now instrumented
//	defer remove()
//
// Patch understands a direct dispatch callable and a namespace whose
// default entry point is one; anything else is skipped with a warning.
// Removal restores the original exports.
//
// # Providers
//
// By default spans are created from the process-global tracer provider,
// so the instrumentation composes with whatever OpenTelemetry setup the
// application already has, even when it is registered later. Dedicated
// backends are available:
//
//   - WithNoop: isolated provider, nothing exported
//   - WithStdout: pretty-printed spans on stdout (development/testing)
//   - WithOTLP / WithOTLPHTTP: OTLP export; call Start(ctx) to connect
//
// # Hooks
//
// WithRequestHook and WithResponseHook attach callbacks to the span
// lifecycle. Hooks are isolated: a panicking hook is reported through the
// event channel and never affects the dispatch or leaks an unfinished
// span.
//
// # Diagnostics
//
// The package never logs directly. Operational events flow through an
// EventHandler; use WithLogger for the slog-backed default or
// WithEventHandler for custom routing. The default discards everything.
//
// # Global State
//
// By default, this package does NOT set the global OpenTelemetry tracer
// provider. Use WithGlobalTracerProvider() if you want the provider it
// creates registered via otel.SetTracerProvider().
package otelinject
