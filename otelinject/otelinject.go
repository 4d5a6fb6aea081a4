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
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g., failed to export spans).
	EventError EventType = iota
	// EventWarning indicates a warning event (e.g., unsupported module shape).
	EventWarning
	// EventInfo indicates an informational event (e.g., instrumentation initialized).
	EventInfo
	// EventDebug indicates a debug event (e.g., detailed patch operations).
	EventDebug
)

// Event represents an internal operational event from the instrumentation.
// Events are used to report errors, warnings, and informational messages
// about the instrumentation's operation; nothing is ever logged directly.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events from the
// instrumentation. Implementations can log events, send them to monitoring
// systems, or take custom actions based on event type.
//
// Example custom handler:
//
//	otelinject.WithEventHandler(func(e otelinject.Event) {
//	    if e.Type == otelinject.EventError {
//	        sentry.CaptureMessage(e.Message)
//	    }
//	    slog.Default().Info(e.Message, e.Args...)
//	})
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler that logs events to the
// provided slog.Logger. This is the implementation used by WithLogger.
//
// If logger is nil, returns a no-op handler that discards all events.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {} // no-op
	}
	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

const (
	// ScopeName is the instrumentation scope recorded on every span.
	ScopeName = "rivaas.dev/inject/otelinject"

	// TargetModule is the module path this instrumentation patches when
	// registered through a registry.
	TargetModule = "rivaas.dev/inject"

	// SupportedVersions is the semver range of target module versions the
	// instrumentation patches when registered through a registry.
	SupportedVersions = ">=4.0.0"

	// DefaultServiceName is the default service name when none is provided.
	DefaultServiceName = "rivaas-service"

	// DefaultServiceVersion is the default service version when none is provided.
	DefaultServiceVersion = "1.0.0"
)

// Provider represents the span export backend.
type Provider string

const (
	// GlobalProvider acquires tracers from the process-global
	// otel.GetTracerProvider() (default). Acquisition is safe before any
	// global provider is registered; spans start flowing once one is.
	GlobalProvider Provider = "global"

	// NoopProvider creates an isolated provider with no exporter.
	NoopProvider Provider = "noop"

	// StdoutProvider exports traces to stdout (development/testing).
	StdoutProvider Provider = "stdout"

	// OTLPProvider exports traces via OTLP gRPC protocol.
	OTLPProvider Provider = "otlp"

	// OTLPHTTPProvider exports traces via OTLP HTTP protocol.
	OTLPHTTPProvider Provider = "otlp-http"
)

// Instrumentation traces injected requests. It wraps the dispatch entry
// point of rivaas.dev/inject so every call produces one server span
// carrying HTTP semantic attributes, linked to inbound trace context found
// in the synthetic request headers.
//
// Create one with New or MustNew, wire it either directly with Wrap or
// through a module registry with Hook, and release owned resources with
// Shutdown.
type Instrumentation struct {
	serviceName    string
	serviceVersion string

	tracerProvider trace.TracerProvider
	sdkProvider    *sdktrace.TracerProvider
	tracer         trace.Tracer
	propagator     propagation.TextMapPropagator
	eventHandler   EventHandler
	requestHook    RequestHook
	responseHook   ResponseHook

	provider             Provider
	providerSet          bool
	otlpEndpoint         string
	otlpInsecure         bool
	customTracerProvider bool
	registerGlobal       bool
	started              bool

	// Validation errors (collected during option application)
	validationErrors []error

	shutdownOnce sync.Once
	shutdownErr  error

	// String pool for reusable span name builders
	spanNamePool sync.Pool

	// Patch records, guarded separately from configuration
	patchMu sync.Mutex
	patches []*patchRecord
}

// New creates an instrumentation with the given options.
//
// Example:
//
//	inst, err := otelinject.New(
//	    otelinject.WithServiceName("my-api"),
//	    otelinject.WithStdout(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
func New(opts ...Option) (*Instrumentation, error) {
	inst := newDefaultInstrumentation()

	// Apply options
	for _, opt := range opts {
		opt(inst)
	}

	// Validate configuration
	if err := inst.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize the provider
	if err := inst.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize instrumentation: %w", err)
	}

	return inst, nil
}

// newDefaultInstrumentation creates an instrumentation with default values.
func newDefaultInstrumentation() *Instrumentation {
	inst := &Instrumentation{
		serviceName:    DefaultServiceName,
		serviceVersion: DefaultServiceVersion,
		propagator:     otel.GetTextMapPropagator(),
		provider:       GlobalProvider,
	}

	// Initialize string pool for reusable span name builders
	inst.spanNamePool = sync.Pool{
		New: func() any {
			return &strings.Builder{}
		},
	}

	return inst
}

// MustNew creates an instrumentation with the given options. It panics if
// initialization fails. Use this for convenience when you want to panic on
// initialization errors.
//
// Example:
//
//	inst := otelinject.MustNew(otelinject.WithServiceName("my-api"))
//	defer inst.Shutdown(context.Background())
func MustNew(opts ...Option) *Instrumentation {
	inst, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize instrumentation: %v", err))
	}
	return inst
}

// validate checks that the configuration is valid.
func (i *Instrumentation) validate() error {
	// Check for validation errors collected during option application
	if len(i.validationErrors) > 0 {
		var errMsgs []string
		for _, err := range i.validationErrors {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("validation errors: %s", strings.Join(errMsgs, "; "))
	}

	if i.serviceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if i.serviceVersion == "" {
		return fmt.Errorf("service version cannot be empty")
	}

	// Validate provider-specific settings
	switch i.provider {
	case GlobalProvider, NoopProvider, StdoutProvider:
		// No specific validation needed
	case OTLPProvider:
		if i.otlpEndpoint == "" {
			i.emitWarning("OTLP endpoint not specified, will use default", "default", "localhost:4317")
			i.otlpEndpoint = "localhost:4317"
		}
	case OTLPHTTPProvider:
		// Empty endpoint falls through to the exporter's own default
	default:
		return fmt.Errorf("unsupported provider: %s", i.provider)
	}

	return nil
}

// Start finishes initialization for providers that establish network
// connections (OTLP gRPC and OTLP HTTP); the context bounds the connection
// setup. For every other provider Start is a no-op.
//
// Call Start before wiring the instrumentation into dispatch paths so
// spans have somewhere to go.
func (i *Instrumentation) Start(ctx context.Context) error {
	if i.started {
		return nil
	}

	switch i.provider {
	case OTLPProvider:
		if err := i.initOTLPProvider(ctx); err != nil {
			return err
		}
	case OTLPHTTPProvider:
		if err := i.initOTLPHTTPProvider(ctx); err != nil {
			return err
		}
	default:
		return nil
	}

	i.started = true
	return nil
}

// Shutdown gracefully shuts down the instrumentation, flushing and closing
// the tracer provider it owns. Providers supplied via WithTracerProvider
// stay under the caller's management and are not touched.
//
// Safe to call multiple times; all calls after the first return the first
// call's result.
func (i *Instrumentation) Shutdown(ctx context.Context) error {
	i.shutdownOnce.Do(func() {
		if i.sdkProvider != nil && !i.customTracerProvider {
			i.emitDebug("Shutting down tracer provider")
			if err := i.sdkProvider.Shutdown(ctx); err != nil {
				i.emitError("Error shutting down tracer provider", "error", err)
				i.shutdownErr = fmt.Errorf("tracer provider shutdown: %w", err)
				return
			}
			i.emitDebug("Tracer provider shut down successfully")
		} else if i.customTracerProvider {
			i.emitDebug("Skipping shutdown of custom tracer provider (managed by user)")
		}
	})

	return i.shutdownErr
}

// ServiceName returns the configured service name.
func (i *Instrumentation) ServiceName() string {
	return i.serviceName
}

// ServiceVersion returns the configured service version.
func (i *Instrumentation) ServiceVersion() string {
	return i.serviceVersion
}

// IsStarted reports whether the provider is initialized. It is false for
// OTLP providers until Start succeeds and true from New for the rest.
func (i *Instrumentation) IsStarted() bool {
	return i.started
}

// TracerProvider returns the provider spans are created from.
func (i *Instrumentation) TracerProvider() trace.TracerProvider {
	if i.tracerProvider != nil {
		return i.tracerProvider
	}
	return otel.GetTracerProvider()
}

// Tracer returns the tracer spans are created from.
func (i *Instrumentation) Tracer() trace.Tracer {
	return i.activeTracer()
}

// activeTracer resolves the tracer per use so an instrumentation wired
// before Start (OTLP) picks up the real tracer once initialization runs.
func (i *Instrumentation) activeTracer() trace.Tracer {
	if i.tracer != nil {
		return i.tracer
	}
	return otel.GetTracerProvider().Tracer(ScopeName)
}

// NewProduction creates an instrumentation configured for production use:
// OTLP gRPC export to the conventional local collector endpoint. Call
// Start to establish the connection.
//
// Example:
//
//	inst, err := otelinject.NewProduction("my-api", "v1.2.3")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := inst.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
func NewProduction(serviceName, serviceVersion string) (*Instrumentation, error) {
	return New(
		WithServiceName(serviceName),
		WithServiceVersion(serviceVersion),
		WithOTLP("localhost:4317"),
	)
}

// NewDevelopment creates an instrumentation configured for development:
// pretty-printed spans on stdout.
//
// Example:
//
//	inst, err := otelinject.NewDevelopment("my-api", "dev")
func NewDevelopment(serviceName, serviceVersion string) (*Instrumentation, error) {
	return New(
		WithServiceName(serviceName),
		WithServiceVersion(serviceVersion),
		WithStdout(),
	)
}

// emitError emits an error event if an event handler is configured.
func (i *Instrumentation) emitError(msg string, args ...any) {
	if i.eventHandler != nil {
		i.eventHandler(Event{Type: EventError, Message: msg, Args: args})
	}
}

// emitWarning emits a warning event if an event handler is configured.
func (i *Instrumentation) emitWarning(msg string, args ...any) {
	if i.eventHandler != nil {
		i.eventHandler(Event{Type: EventWarning, Message: msg, Args: args})
	}
}

// emitInfo emits an info event if an event handler is configured.
func (i *Instrumentation) emitInfo(msg string, args ...any) {
	if i.eventHandler != nil {
		i.eventHandler(Event{Type: EventInfo, Message: msg, Args: args})
	}
}

// emitDebug emits a debug event if an event handler is configured.
func (i *Instrumentation) emitDebug(msg string, args ...any) {
	if i.eventHandler != nil {
		i.eventHandler(Event{Type: EventDebug, Message: msg, Args: args})
	}
}
