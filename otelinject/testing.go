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
	"testing"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TestingInstrumentation creates a test [Instrumentation] with sensible
// defaults for unit tests. It uses [NoopProvider] to avoid any external
// dependencies and registers shutdown with t.Cleanup.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    inst := otelinject.TestingInstrumentation(t)
//	    // Use inst...
//	}
func TestingInstrumentation(t testing.TB, opts ...Option) *Instrumentation {
	t.Helper()

	// Default options for testing
	defaultOpts := []Option{
		WithServiceName("test-service"),
		WithServiceVersion("v1.0.0"),
		WithNoop(),
	}

	// Allow test-specific options to override defaults
	allOpts := append(defaultOpts, opts...)

	inst, err := New(allOpts...)
	if err != nil {
		t.Fatalf("TestingInstrumentation: failed to create instrumentation: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := inst.Shutdown(ctx); err != nil {
			t.Logf("TestingInstrumentation: shutdown warning: %v", err)
		}
	})

	return inst
}

// TestingInstrumentationWithRecorder creates a test [Instrumentation]
// backed by an in-memory span recorder, with W3C trace context extraction,
// so tests can assert on the spans a dispatch produced.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    inst, spans := otelinject.TestingInstrumentationWithRecorder(t)
//	    // Dispatch through inst.Wrap(...), then assert on spans.Ended().
//	}
func TestingInstrumentationWithRecorder(t testing.TB, opts ...Option) (*Instrumentation, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			t.Logf("TestingInstrumentationWithRecorder: provider shutdown warning: %v", err)
		}
	})

	defaultOpts := []Option{
		WithServiceName("test-service"),
		WithServiceVersion("v1.0.0"),
		WithTracerProvider(tp),
		WithCustomPropagator(propagation.TraceContext{}),
	}
	allOpts := append(defaultOpts, opts...)

	inst, err := New(allOpts...)
	if err != nil {
		t.Fatalf("TestingInstrumentationWithRecorder: failed to create instrumentation: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := inst.Shutdown(ctx); err != nil {
			t.Logf("TestingInstrumentationWithRecorder: shutdown warning: %v", err)
		}
	})

	return inst, recorder
}
