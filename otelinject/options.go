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
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/inject"
)

// Option defines functional options for Instrumentation configuration.
// Options are applied during creation via New().
type Option func(*Instrumentation)

// RequestHook is called after the request span is started and before the
// dispatch is delegated. It receives the span and the normalized request
// descriptor, allowing custom attribute injection or integration with APM
// tools. A panicking hook is reported through diagnostics and never
// affects the dispatch.
type RequestHook func(span trace.Span, opts *inject.Options)

// ResponseHook is called after response attributes and status are recorded
// and before the span ends. It receives the span and the response. A
// panicking hook is reported through diagnostics; the span still ends.
type ResponseHook func(span trace.Span, res *inject.Response)

// WithTracerProvider allows you to provide a custom OpenTelemetry
// TracerProvider. When using this option, the package will NOT set the
// global otel.SetTracerProvider() by default. Use WithGlobalTracerProvider()
// if you want global registration.
//
// This is useful when:
//   - You want to manage the tracer provider lifecycle yourself
//   - You need multiple independent instrumentation configurations
//   - You want to avoid global state in your application
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(...)
//	inst, err := otelinject.New(
//	    otelinject.WithTracerProvider(tp),
//	    otelinject.WithServiceName("my-service"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tp.Shutdown(context.Background())
//
// Note: When using WithTracerProvider, provider options (WithOTLP,
// WithStdout, etc.) are ignored since you're managing the provider
// yourself.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(i *Instrumentation) {
		i.tracerProvider = provider
		i.customTracerProvider = true
	}
}

// WithGlobalTracerProvider registers the tracer provider as the global
// OpenTelemetry tracer provider via otel.SetTracerProvider(). By default,
// tracer providers are not registered globally to allow multiple
// configurations to coexist in the same process.
//
// Example:
//
//	inst := otelinject.MustNew(
//	    otelinject.WithOTLP("localhost:4317"),
//	    otelinject.WithGlobalTracerProvider(), // Register as global default
//	)
func WithGlobalTracerProvider() Option {
	return func(i *Instrumentation) {
		i.registerGlobal = true
	}
}

// WithServiceName sets the service name recorded on the tracing resource
// as 'service.name'.
//
// Example:
//
//	inst := otelinject.MustNew(otelinject.WithServiceName("my-api"))
func WithServiceName(name string) Option {
	return func(i *Instrumentation) {
		i.serviceName = name
	}
}

// WithServiceVersion sets the service version recorded on the tracing
// resource as 'service.version'.
//
// Example:
//
//	inst := otelinject.MustNew(otelinject.WithServiceVersion("v1.2.3"))
func WithServiceVersion(version string) Option {
	return func(i *Instrumentation) {
		i.serviceVersion = version
	}
}

// WithCustomTracer allows using a custom OpenTelemetry tracer. This is
// useful when you need specific tracer configuration or want to use a
// tracer from an existing OpenTelemetry setup.
//
// Example:
//
//	tracer := tp.Tracer("my-tracer")
//	inst := otelinject.MustNew(otelinject.WithCustomTracer(tracer))
func WithCustomTracer(tracer trace.Tracer) Option {
	return func(i *Instrumentation) {
		i.tracer = tracer
	}
}

// WithCustomPropagator allows using a custom OpenTelemetry propagator for
// extracting trace context from injected request headers. By default, uses
// the global propagator from otel.GetTextMapPropagator().
//
// Example:
//
//	prop := propagation.TraceContext{}
//	inst := otelinject.MustNew(otelinject.WithCustomPropagator(prop))
func WithCustomPropagator(propagator propagation.TextMapPropagator) Option {
	return func(i *Instrumentation) {
		i.propagator = propagator
	}
}

// WithRequestHook sets a callback invoked after the request span starts,
// with the span and the normalized request descriptor.
//
// Example:
//
//	hook := func(span trace.Span, opts *inject.Options) {
//	    if tenantID := opts.Header("X-Tenant-ID"); tenantID != "" {
//	        span.SetAttributes(attribute.String("tenant.id", tenantID))
//	    }
//	}
//	inst := otelinject.MustNew(otelinject.WithRequestHook(hook))
func WithRequestHook(hook RequestHook) Option {
	return func(i *Instrumentation) {
		i.requestHook = hook
	}
}

// WithResponseHook sets a callback invoked after response attributes are
// recorded and before the span ends.
//
// Example:
//
//	hook := func(span trace.Span, res *inject.Response) {
//	    if res.StatusCode >= 500 {
//	        metrics.IncrementServerErrors()
//	    }
//	}
//	inst := otelinject.MustNew(otelinject.WithResponseHook(hook))
func WithResponseHook(hook ResponseHook) Option {
	return func(i *Instrumentation) {
		i.responseHook = hook
	}
}

// WithEventHandler sets a custom event handler for internal operational
// events. Use this for advanced use cases like sending errors to Sentry,
// custom alerting, or integrating with non-slog logging systems.
//
// Example:
//
//	otelinject.New(otelinject.WithEventHandler(func(e otelinject.Event) {
//	    if e.Type == otelinject.EventError {
//	        sentry.CaptureMessage(e.Message)
//	    }
//	    myLogger.Log(e.Type, e.Message, e.Args...)
//	}))
func WithEventHandler(handler EventHandler) Option {
	return func(i *Instrumentation) {
		i.eventHandler = handler
	}
}

// WithLogger sets the logger for internal operational events using the
// default event handler. This is a convenience wrapper around
// WithEventHandler that logs events to the provided slog.Logger.
//
// Example:
//
//	// Use stdlib slog
//	otelinject.New(otelinject.WithLogger(slog.Default()))
//
//	// Use custom slog logger
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	otelinject.New(otelinject.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return WithEventHandler(DefaultEventHandler(logger))
}

// OTLPOption configures OTLP provider behavior.
type OTLPOption func(*otlpConfig)

type otlpConfig struct {
	insecure bool
}

// OTLPInsecure enables insecure gRPC for OTLP.
// Default is false (uses TLS). Set to true for local development.
func OTLPInsecure() OTLPOption {
	return func(c *otlpConfig) {
		c.insecure = true
	}
}

// WithOTLP configures OTLP gRPC provider with endpoint.
// Endpoint format: "host:port" (e.g., "localhost:4317")
//
// Only one provider can be configured. Configuring multiple providers
// (e.g., WithOTLP and WithStdout) will result in a validation error.
//
// Example:
//
//	// Simple:
//	inst := otelinject.MustNew(otelinject.WithOTLP("localhost:4317"))
//
//	// With insecure option:
//	inst := otelinject.MustNew(otelinject.WithOTLP("localhost:4317", otelinject.OTLPInsecure()))
func WithOTLP(endpoint string, opts ...OTLPOption) Option {
	return func(i *Instrumentation) {
		if i.providerSet {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("provider: multiple providers configured (already have %q, cannot add %q); only one provider allowed", i.provider, OTLPProvider))

			return
		}
		i.provider = OTLPProvider
		i.otlpEndpoint = endpoint
		i.providerSet = true
		cfg := &otlpConfig{}
		for _, opt := range opts {
			opt(cfg)
		}
		i.otlpInsecure = cfg.insecure
	}
}

// WithOTLPHTTP configures OTLP HTTP provider with endpoint.
// Endpoint format: "http://host:port" (e.g., "http://localhost:4318")
//
// Only one provider can be configured. Configuring multiple providers
// will result in a validation error.
//
// Example:
//
//	inst := otelinject.MustNew(otelinject.WithOTLPHTTP("http://localhost:4318"))
func WithOTLPHTTP(endpoint string) Option {
	return func(i *Instrumentation) {
		if i.providerSet {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("provider: multiple providers configured (already have %q, cannot add %q); only one provider allowed", i.provider, OTLPHTTPProvider))

			return
		}
		i.provider = OTLPHTTPProvider
		i.otlpEndpoint = endpoint
		i.providerSet = true
	}
}

// WithStdout configures stdout provider for development/debugging.
//
// Only one provider can be configured. Configuring multiple providers
// will result in a validation error.
//
// Example:
//
//	inst := otelinject.MustNew(otelinject.WithStdout())
func WithStdout() Option {
	return func(i *Instrumentation) {
		if i.providerSet {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("provider: multiple providers configured (already have %q, cannot add %q); only one provider allowed", i.provider, StdoutProvider))

			return
		}
		i.provider = StdoutProvider
		i.providerSet = true
	}
}

// WithNoop configures an isolated provider that records nothing. Unlike
// the default, spans never reach a global provider registered later; use
// it to switch instrumentation off without unwiring it.
//
// Only one provider can be configured. Configuring multiple providers
// will result in a validation error.
//
// Example:
//
//	inst := otelinject.MustNew(otelinject.WithNoop())
func WithNoop() Option {
	return func(i *Instrumentation) {
		if i.providerSet {
			i.validationErrors = append(i.validationErrors,
				fmt.Errorf("provider: multiple providers configured (already have %q, cannot add %q); only one provider allowed", i.provider, NoopProvider))

			return
		}
		i.provider = NoopProvider
		i.providerSet = true
	}
}
