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
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// initializeProvider initializes the span export backend for providers
// that do not require network connections. OTLP providers are deferred to
// Start(ctx), which supplies the connection context.
func (i *Instrumentation) initializeProvider() error {
	switch i.provider {
	case GlobalProvider:
		if err := i.initGlobalProvider(); err != nil {
			return err
		}
	case NoopProvider:
		if err := i.initNoopProvider(); err != nil {
			return err
		}
	case StdoutProvider:
		if err := i.initStdoutProvider(); err != nil {
			return err
		}
	case OTLPProvider, OTLPHTTPProvider:
		i.emitDebug("Deferring provider initialization to Start", "provider", string(i.provider))
		return nil
	default:
		return fmt.Errorf("unsupported provider: %s", i.provider)
	}

	i.started = true
	return nil
}

// initGlobalProvider wires the instrumentation to the process-global
// tracer provider. Acquisition works before any global provider is
// registered; the returned tracer delegates once one appears.
func (i *Instrumentation) initGlobalProvider() error {
	// If user provided a custom tracer provider, use it
	if i.customTracerProvider {
		i.emitDebug("Using custom user-provided tracer provider")
		if i.tracer == nil {
			i.tracer = i.tracerProvider.Tracer(ScopeName)
		}
		if i.registerGlobal {
			i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "global")
			otel.SetTracerProvider(i.tracerProvider)
		}

		return nil
	}

	i.tracerProvider = otel.GetTracerProvider()
	if i.tracer == nil {
		i.tracer = i.tracerProvider.Tracer(ScopeName)
	}
	i.emitDebug("Using global tracer provider")

	return nil
}

// initNoopProvider creates an isolated tracer provider with no exporter.
func (i *Instrumentation) initNoopProvider() error {
	// If user provided a custom tracer provider, use it
	if i.customTracerProvider {
		i.emitDebug("Using custom user-provided tracer provider")
		if i.tracer == nil {
			i.tracer = i.tracerProvider.Tracer(ScopeName)
		}
		if i.registerGlobal {
			i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "noop")
			otel.SetTracerProvider(i.tracerProvider)
		}

		return nil
	}

	// Create a tracer provider with no exporter
	res := createResource(i.serviceName, i.serviceVersion)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
	)

	i.sdkProvider = tp
	i.tracerProvider = tp
	i.tracer = tp.Tracer(ScopeName)

	if i.registerGlobal {
		i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "noop")
		otel.SetTracerProvider(tp)
	}

	return nil
}

// initStdoutProvider initializes the stdout trace exporter.
func (i *Instrumentation) initStdoutProvider() error {
	// If user provided a custom tracer provider, use it
	if i.customTracerProvider {
		i.emitDebug("Using custom user-provided tracer provider")
		if i.tracer == nil {
			i.tracer = i.tracerProvider.Tracer(ScopeName)
		}
		if i.registerGlobal {
			i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "stdout")
			otel.SetTracerProvider(i.tracerProvider)
		}

		return nil
	}

	// Create stdout exporter with pretty printing
	exporter, err := stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	// Create resource with service information
	res := createResource(i.serviceName, i.serviceVersion)

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	i.sdkProvider = tp
	i.tracerProvider = tp
	i.tracer = tp.Tracer(ScopeName)

	if i.registerGlobal {
		i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "stdout")
		otel.SetTracerProvider(tp)
	} else {
		i.emitDebug("Skipping global tracer provider registration", "provider", "stdout")
	}

	i.emitInfo("Instrumentation initialized", "provider", "stdout", "service", i.serviceName)

	return nil
}

// initOTLPProvider initializes the OTLP gRPC trace exporter.
// The context is used for connection establishment.
func (i *Instrumentation) initOTLPProvider(ctx context.Context) error {
	// If user provided a custom tracer provider, use it
	if i.customTracerProvider {
		i.emitDebug("Using custom user-provided tracer provider")
		if i.tracer == nil {
			i.tracer = i.tracerProvider.Tracer(ScopeName)
		}
		if i.registerGlobal {
			i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "otlp")
			otel.SetTracerProvider(i.tracerProvider)
		}

		return nil
	}

	// Build OTLP options
	opts := []otlptracegrpc.Option{}

	if i.otlpEndpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(i.otlpEndpoint))
	}

	if i.otlpInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	// Create OTLP exporter with the provided context
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
	}

	// Create resource with service information
	res := createResource(i.serviceName, i.serviceVersion)

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	i.sdkProvider = tp
	i.tracerProvider = tp
	i.tracer = tp.Tracer(ScopeName)

	if i.registerGlobal {
		i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "otlp")
		otel.SetTracerProvider(tp)
	} else {
		i.emitDebug("Skipping global tracer provider registration", "provider", "otlp")
	}

	i.emitInfo("Instrumentation initialized", "provider", "otlp", "endpoint", i.otlpEndpoint, "service", i.serviceName)

	return nil
}

// initOTLPHTTPProvider initializes the OTLP HTTP trace exporter.
// The context is used for connection establishment.
func (i *Instrumentation) initOTLPHTTPProvider(ctx context.Context) error {
	// If user provided a custom tracer provider, use it
	if i.customTracerProvider {
		i.emitDebug("Using custom user-provided tracer provider")
		if i.tracer == nil {
			i.tracer = i.tracerProvider.Tracer(ScopeName)
		}
		if i.registerGlobal {
			i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "otlp-http")
			otel.SetTracerProvider(i.tracerProvider)
		}

		return nil
	}

	// Build OTLP HTTP options
	opts := []otlptracehttp.Option{}

	if i.otlpEndpoint != "" {
		// Parse endpoint to extract host:port and determine if HTTP or HTTPS
		endpoint := i.otlpEndpoint
		isHTTP := false

		// Remove protocol prefix if present
		if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
			endpoint = trimmed
			isHTTP = true
		} else if trimmedHTTPS, trimmedOk := strings.CutPrefix(endpoint, "https://"); trimmedOk {
			endpoint = trimmedHTTPS
		}

		// Remove trailing path if present
		if idx := strings.Index(endpoint, "/"); idx != -1 {
			endpoint = endpoint[:idx]
		}

		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		if isHTTP {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	}

	// Create OTLP HTTP exporter with the provided context
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}

	// Create resource with service information
	res := createResource(i.serviceName, i.serviceVersion)

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	i.sdkProvider = tp
	i.tracerProvider = tp
	i.tracer = tp.Tracer(ScopeName)

	if i.registerGlobal {
		i.emitDebug("Setting global OpenTelemetry tracer provider", "provider", "otlp-http")
		otel.SetTracerProvider(tp)
	} else {
		i.emitDebug("Skipping global tracer provider registration", "provider", "otlp-http")
	}

	i.emitInfo("Instrumentation initialized", "provider", "otlp-http", "endpoint", i.otlpEndpoint, "service", i.serviceName)

	return nil
}

// createResource creates an OpenTelemetry resource with service information.
func createResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}
