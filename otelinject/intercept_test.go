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
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rivaas.dev/inject"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// okHandler returns a handler answering 200 with a small JSON body.
func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
}

// statusHandler returns a handler answering with the given status code.
func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	})
}

// waitDispatch drives a dispatch through the future style and returns the
// outcome.
func waitDispatch(t testing.TB, fn inject.Func, handler http.Handler, target any) (*inject.Response, error) {
	t.Helper()

	result := fn(t.Context(), handler, target, nil)
	require.NotNil(t, result)

	return result.Wait(t.Context())
}

// endedSpan returns the single ended span the recorder captured.
func endedSpan(t testing.TB, spans *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()

	ended := spans.Ended()
	require.Len(t, ended, 1)

	return ended[0]
}

// findAttr looks up an attribute on a recorded span by key.
func findAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}

	return attribute.Value{}, false
}

// hasAttr reports whether a recorded span carries an attribute.
func hasAttr(span sdktrace.ReadOnlySpan, key attribute.Key) bool {
	_, ok := findAttr(span, key)
	return ok
}

// =============================================================================
// Span Production Tests
// =============================================================================

// TestWrap_FutureStyle tests that a future-style dispatch produces exactly
// one ended span.
func TestWrap_FutureStyle(t *testing.T) {
	t.Parallel()

	inst, spans := TestingInstrumentationWithRecorder(t)
	wrapped := inst.Wrap(inject.Inject)

	res, err := waitDispatch(t, wrapped, okHandler(), "/test")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	span := endedSpan(t, spans)
	assert.Equal(t, "GET /test", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
}

// TestWrap_CallbackStyle tests that a callback-style dispatch produces
// exactly one span, ended before the caller's callback runs.
func TestWrap_CallbackStyle(t *testing.T) {
	t.Parallel()

	inst, spans := TestingInstrumentationWithRecorder(t)
	wrapped := inst.Wrap(inject.Inject)

	type outcome struct {
		res       *inject.Response
		err       error
		endedAtCb int
	}
	done := make(chan outcome, 1)

	result := wrapped(t.Context(), okHandler(), "/test", func(res *inject.Response, err error) {
		done <- outcome{res: res, err: err, endedAtCb: len(spans.Ended())}
	})
	assert.Nil(t, result, "callback style stays fire-and-forget through the wrapper")

	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, http.StatusOK, out.res.StatusCode)
	assert.Equal(t, 1, out.endedAtCb, "span must end before the callback observes the outcome")
}

// TestWrap_SpanName tests span naming from the request target.
func TestWrap_SpanName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target any
		want   string
	}{
		{
			name:   "path with query",
			target: "/test?foo=bar",
			want:   "GET /test?foo=bar",
		},
		{
			name:   "options target",
			target: &inject.Options{Method: "post", URL: "/submit"},
			want:   "POST /submit",
		},
		{
			name:   "nil target",
			target: nil,
			want:   "GET /",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inst, spans := TestingInstrumentationWithRecorder(t)
			wrapped := inst.Wrap(inject.Inject)

			_, err := waitDispatch(t, wrapped, okHandler(), tt.target)
			require.NoError(t, err)

			assert.Equal(t, tt.want, endedSpan(t, spans).Name())
		})
	}
}

// TestWrap_HTTPMethods tests the method attribute across methods.
func TestWrap_HTTPMethods(t *testing.T) {
	t.Parallel()

	methods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodPatch,
	}

	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			t.Parallel()

			inst, spans := TestingInstrumentationWithRecorder(t)
			wrapped := inst.Wrap(inject.Inject)

			_, err := waitDispatch(t, wrapped, okHandler(), &inject.Options{Method: method, URL: "/test"})
			require.NoError(t, err)

			span := endedSpan(t, spans)
			got, ok := findAttr(span, "http.request.method")
			require.True(t, ok)
			assert.Equal(t, method, got.AsString())
			assert.Equal(t, method+" /test", span.Name())
		})
	}
}

// TestWrap_HandlerSeesSpanContext tests that the handler observes the span
// through the request context.
func TestWrap_HandlerSeesSpanContext(t *testing.T) {
	t.Parallel()

	inst, spans := TestingInstrumentationWithRecorder(t)
	wrapped := inst.Wrap(inject.Inject)

	var handlerSpanCtx trace.SpanContext
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerSpanCtx = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	_, err := waitDispatch(t, wrapped, handler, "/test")
	require.NoError(t, err)

	span := endedSpan(t, spans)
	require.True(t, handlerSpanCtx.IsValid())
	assert.Equal(t, span.SpanContext().TraceID(), handlerSpanCtx.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), handlerSpanCtx.SpanID())
}

// =============================================================================
// Attribute Tests
// =============================================================================

// TestSpanAttributes tests request attribute derivation.
func TestSpanAttributes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     any
		wantString map[attribute.Key]string
		wantInt    map[attribute.Key]int64
		wantAbsent []attribute.Key
	}{
		{
			name:   "path with query",
			target: "/test?foo=bar",
			wantString: map[attribute.Key]string{
				"http.request.method":      "GET",
				"url.path":                 "/test",
				"url.query":                "foo=bar",
				"url.full":                 "/test?foo=bar",
				"url.scheme":               "http",
				"network.protocol.version": "1.1",
			},
			wantAbsent: []attribute.Key{"server.address", "server.port", "client.address", "user_agent.original"},
		},
		{
			name:   "bare path",
			target: "/users",
			wantString: map[attribute.Key]string{
				"url.path": "/users",
				"url.full": "/users",
			},
			wantAbsent: []attribute.Key{"url.query"},
		},
		{
			name:   "absolute url",
			target: "https://api.example.com/v1/users",
			wantString: map[attribute.Key]string{
				"url.scheme": "https",
				"url.path":   "/v1/users",
				"url.full":   "https://api.example.com/v1/users",
			},
		},
		{
			name:   "nil target defaults",
			target: nil,
			wantString: map[attribute.Key]string{
				"http.request.method": "GET",
				"url.path":            "/",
				"url.scheme":          "http",
			},
		},
		{
			name: "host header with port",
			target: &inject.Options{
				URL:     "/test",
				Headers: map[string]string{"Host": "example.com:8080"},
			},
			wantString: map[attribute.Key]string{
				"server.address": "example.com",
			},
			wantInt: map[attribute.Key]int64{
				"server.port": 8080,
			},
		},
		{
			name: "host header without port",
			target: &inject.Options{
				URL:     "/test",
				Headers: map[string]string{"host": "example.com"},
			},
			wantString: map[attribute.Key]string{
				"server.address": "example.com",
			},
			wantAbsent: []attribute.Key{"server.port"},
		},
		{
			name: "host header with unparseable port",
			target: &inject.Options{
				URL:     "/test",
				Headers: map[string]string{"Host": "example.com:abc"},
			},
			wantString: map[attribute.Key]string{
				"server.address": "example.com",
			},
			wantAbsent: []attribute.Key{"server.port"},
		},
		{
			name: "client address",
			target: &inject.Options{
				URL:        "/test",
				RemoteAddr: "10.0.0.1:9999",
			},
			wantString: map[attribute.Key]string{
				"client.address": "10.0.0.1:9999",
			},
		},
		{
			name: "user agent",
			target: &inject.Options{
				URL:     "/test",
				Headers: map[string]string{"User-Agent": "client/2.1"},
			},
			wantString: map[attribute.Key]string{
				"user_agent.original": "client/2.1",
			},
		},
		{
			name: "lowercase user agent header",
			target: &inject.Options{
				URL:     "/test",
				Headers: map[string]string{"user-agent": "client/2.1"},
			},
			wantString: map[attribute.Key]string{
				"user_agent.original": "client/2.1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inst, spans := TestingInstrumentationWithRecorder(t)
			wrapped := inst.Wrap(inject.Inject)

			_, err := waitDispatch(t, wrapped, okHandler(), tt.target)
			require.NoError(t, err)

			span := endedSpan(t, spans)
			for key, want := range tt.wantString {
				got, ok := findAttr(span, key)
				require.True(t, ok, "missing attribute %s", key)
				assert.Equal(t, want, got.AsString(), "attribute %s", key)
			}
			for key, want := range tt.wantInt {
				got, ok := findAttr(span, key)
				require.True(t, ok, "missing attribute %s", key)
				assert.Equal(t, want, got.AsInt64(), "attribute %s", key)
			}
			for _, key := range tt.wantAbsent {
				assert.False(t, hasAttr(span, key), "attribute %s should be absent", key)
			}
		})
	}
}

// =============================================================================
// Status Tests
// =============================================================================

// TestErrorStatusCodes tests span status derivation from HTTP status codes.
func TestErrorStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		statusCode    int
		wantCode      codes.Code
		wantDesc      string
		wantErrorType string
	}{
		{
			name:       "200 OK",
			statusCode: http.StatusOK,
			wantCode:   codes.Ok,
		},
		{
			name:       "201 Created",
			statusCode: http.StatusCreated,
			wantCode:   codes.Ok,
		},
		{
			name:       "302 redirect",
			statusCode: http.StatusFound,
			wantCode:   codes.Ok,
		},
		{
			name:          "404 Not Found",
			statusCode:    http.StatusNotFound,
			wantCode:      codes.Error,
			wantDesc:      "HTTP 404",
			wantErrorType: "404",
		},
		{
			name:          "500 Internal Server Error",
			statusCode:    http.StatusInternalServerError,
			wantCode:      codes.Error,
			wantDesc:      "HTTP 500",
			wantErrorType: "500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inst, spans := TestingInstrumentationWithRecorder(t)
			wrapped := inst.Wrap(inject.Inject)

			res, err := waitDispatch(t, wrapped, statusHandler(tt.statusCode), "/test")
			require.NoError(t, err, "an error status is still a response, not a dispatch failure")
			assert.Equal(t, tt.statusCode, res.StatusCode)

			span := endedSpan(t, spans)
			assert.Equal(t, tt.wantCode, span.Status().Code)
			assert.Equal(t, tt.wantDesc, span.Status().Description)

			got, ok := findAttr(span, "http.response.status_code")
			require.True(t, ok)
			assert.Equal(t, int64(tt.statusCode), got.AsInt64())

			errType, hasErrType := findAttr(span, "error.type")
			if tt.wantErrorType == "" {
				assert.False(t, hasErrType, "successful responses carry no error.type")
			} else {
				require.True(t, hasErrType)
				assert.Equal(t, tt.wantErrorType, errType.AsString())
			}
		})
	}
}

// =============================================================================
// Error Path Tests
// =============================================================================

// TestWrap_HandlerPanic tests the error finalization path.
func TestWrap_HandlerPanic(t *testing.T) {
	t.Parallel()

	inst, spans := TestingInstrumentationWithRecorder(t)
	wrapped := inst.Wrap(inject.Inject)

	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	res, err := waitDispatch(t, wrapped, handler, "/test")
	require.Error(t, err)
	assert.Nil(t, res)

	var panicErr *inject.PanicError
	require.ErrorAs(t, err, &panicErr, "the dispatch error reaches the caller unchanged")

	span := endedSpan(t, spans)
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Contains(t, span.Status().Description, "handler panicked")

	errType, ok := findAttr(span, "error.type")
	require.True(t, ok)
	assert.Equal(t, "PanicError", errType.AsString())

	// RecordError captures the failure as an exception event.
	require.NotEmpty(t, span.Events())
	assert.Equal(t, "exception", span.Events()[0].Name)
}

// TestWrap_NilHandler tests that library-reported errors finish the span.
func TestWrap_NilHandler(t *testing.T) {
	t.Parallel()

	inst, spans := TestingInstrumentationWithRecorder(t)
	wrapped := inst.Wrap(inject.Inject)

	_, err := waitDispatch(t, wrapped, nil, "/test")
	require.Error(t, err)
	assert.ErrorIs(t, err, inject.ErrNilHandler)

	span := endedSpan(t, spans)
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, inject.ErrNilHandler.Error(), span.Status().Description)

	errType, ok := findAttr(span, "error.type")
	require.True(t, ok)
	assert.Equal(t, "Error", errType.AsString())
}

// TestWrap_MalformedTarget tests that a bad target still produces a span
// while the library reports its own error.
func TestWrap_MalformedTarget(t *testing.T) {
	t.Parallel()

	inst, spans := TestingInstrumentationWithRecorder(t)
	wrapped := inst.Wrap(inject.Inject)

	_, err := waitDispatch(t, wrapped, okHandler(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, inject.ErrUnsupportedTarget)

	// The span was still created, with defaulted request attributes.
	span := endedSpan(t, spans)
	assert.Equal(t, "GET /", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)
}

// TestWrap_CallbackErrorPath tests error finalization in the callback style.
func TestWrap_CallbackErrorPath(t *testing.T) {
	t.Parallel()

	inst, spans := TestingInstrumentationWithRecorder(t)
	wrapped := inst.Wrap(inject.Inject)

	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("cb boom")
	})

	done := make(chan error, 1)
	wrapped(t.Context(), handler, "/test", func(_ *inject.Response, err error) {
		done <- err
	})

	err := <-done
	var panicErr *inject.PanicError
	require.ErrorAs(t, err, &panicErr)

	span := endedSpan(t, spans)
	assert.Equal(t, codes.Error, span.Status().Code)
}

// =============================================================================
// Propagation Tests
// =============================================================================

// TestTraceContextPropagation tests parent linkage from inbound headers.
func TestTraceContextPropagation(t *testing.T) {
	t.Parallel()

	inst, spans := TestingInstrumentationWithRecorder(t)
	wrapped := inst.Wrap(inject.Inject)

	_, err := waitDispatch(t, wrapped, okHandler(), &inject.Options{
		URL: "/test",
		Headers: map[string]string{
			"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		},
	})
	require.NoError(t, err)

	span := endedSpan(t, spans)
	parent := span.Parent()
	require.True(t, parent.IsValid())
	assert.True(t, parent.IsRemote())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", parent.SpanID().String())
}

// TestWrap_NoInboundContext tests that spans without trace headers are
// roots.
func TestWrap_NoInboundContext(t *testing.T) {
	t.Parallel()

	inst, spans := TestingInstrumentationWithRecorder(t)
	wrapped := inst.Wrap(inject.Inject)

	_, err := waitDispatch(t, wrapped, okHandler(), "/test")
	require.NoError(t, err)

	span := endedSpan(t, spans)
	assert.False(t, span.Parent().IsValid())
}

// =============================================================================
// Hook Tests
// =============================================================================

// TestSpanLifecycleHooks tests the request and response hooks.
func TestSpanLifecycleHooks(t *testing.T) {
	t.Parallel()

	t.Run("hooks fire once each, in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		inst, spans := TestingInstrumentationWithRecorder(t,
			WithRequestHook(func(span trace.Span, opts *inject.Options) {
				order = append(order, "request")
				span.SetAttributes(attribute.String("hook.method", opts.Method))
			}),
			WithResponseHook(func(span trace.Span, res *inject.Response) {
				order = append(order, "response")
				span.SetAttributes(attribute.Int("hook.status", res.StatusCode))
			}),
		)
		wrapped := inst.Wrap(inject.Inject)

		_, err := waitDispatch(t, wrapped, okHandler(), "/test")
		require.NoError(t, err)

		assert.Equal(t, []string{"request", "response"}, order)

		span := endedSpan(t, spans)
		method, ok := findAttr(span, "hook.method")
		require.True(t, ok, "request hook attributes must land on the span")
		assert.Equal(t, "GET", method.AsString())

		status, ok := findAttr(span, "hook.status")
		require.True(t, ok, "response hook attributes must land on the span")
		assert.Equal(t, int64(http.StatusOK), status.AsInt64())
	})

	t.Run("hooks fire in the callback style too", func(t *testing.T) {
		t.Parallel()

		var order []string
		inst, spans := TestingInstrumentationWithRecorder(t,
			WithRequestHook(func(trace.Span, *inject.Options) {
				order = append(order, "request")
			}),
			WithResponseHook(func(trace.Span, *inject.Response) {
				order = append(order, "response")
			}),
		)
		wrapped := inst.Wrap(inject.Inject)

		done := make(chan struct{})
		wrapped(t.Context(), okHandler(), "/test", func(*inject.Response, error) {
			close(done)
		})
		<-done

		assert.Equal(t, []string{"request", "response"}, order)
		assert.Len(t, spans.Ended(), 1)
	})

	t.Run("response hook runs before the span ends", func(t *testing.T) {
		t.Parallel()

		var recording bool
		inst, spans := TestingInstrumentationWithRecorder(t,
			WithResponseHook(func(span trace.Span, _ *inject.Response) {
				recording = span.IsRecording()
			}),
		)
		wrapped := inst.Wrap(inject.Inject)

		_, err := waitDispatch(t, wrapped, okHandler(), "/test")
		require.NoError(t, err)

		assert.True(t, recording, "the hook must see a still-recording span")
		assert.Len(t, spans.Ended(), 1)
	})

	t.Run("error outcomes skip the response hook", func(t *testing.T) {
		t.Parallel()

		var responseHookRan bool
		inst, spans := TestingInstrumentationWithRecorder(t,
			WithResponseHook(func(trace.Span, *inject.Response) {
				responseHookRan = true
			}),
		)
		wrapped := inst.Wrap(inject.Inject)

		_, err := waitDispatch(t, wrapped, nil, "/test")
		require.Error(t, err)

		assert.False(t, responseHookRan)
		assert.Len(t, spans.Ended(), 1)
	})
}

// TestHookPanicIsolation tests that failing hooks never affect dispatches.
func TestHookPanicIsolation(t *testing.T) {
	t.Parallel()

	t.Run("request hook panic", func(t *testing.T) {
		t.Parallel()

		var events []Event
		inst, spans := TestingInstrumentationWithRecorder(t,
			WithRequestHook(func(trace.Span, *inject.Options) {
				panic("request hook failure")
			}),
			WithEventHandler(func(e Event) {
				if e.Type == EventError {
					events = append(events, e)
				}
			}),
		)
		wrapped := inst.Wrap(inject.Inject)

		res, err := waitDispatch(t, wrapped, okHandler(), "/test")
		require.NoError(t, err, "a failing hook must not fail the dispatch")
		assert.Equal(t, http.StatusOK, res.StatusCode)

		assert.Len(t, spans.Ended(), 1)
		require.Len(t, events, 1)
		assert.Contains(t, events[0].Message, "Request hook panicked")
	})

	t.Run("response hook panic", func(t *testing.T) {
		t.Parallel()

		var events []Event
		inst, spans := TestingInstrumentationWithRecorder(t,
			WithResponseHook(func(trace.Span, *inject.Response) {
				panic("response hook failure")
			}),
			WithEventHandler(func(e Event) {
				if e.Type == EventError {
					events = append(events, e)
				}
			}),
		)
		wrapped := inst.Wrap(inject.Inject)

		res, err := waitDispatch(t, wrapped, okHandler(), "/test")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)

		assert.Len(t, spans.Ended(), 1, "the span still ends when the response hook fails")
		require.Len(t, events, 1)
		assert.Contains(t, events[0].Message, "Response hook panicked")
	})
}

// =============================================================================
// Delegate Contract Tests
// =============================================================================

// TestWrap_SynchronousDelegate tests wrapping a delegate that settles the
// callback inline instead of on a separate goroutine.
func TestWrap_SynchronousDelegate(t *testing.T) {
	t.Parallel()

	inst, spans := TestingInstrumentationWithRecorder(t)

	inline := inject.Func(func(_ context.Context, _ http.Handler, _ any, cb inject.Callback) *inject.Result {
		cb(&inject.Response{StatusCode: http.StatusAccepted}, nil)
		return nil
	})
	wrapped := inst.Wrap(inline)

	done := make(chan *inject.Response, 1)
	wrapped(t.Context(), okHandler(), "/test", func(res *inject.Response, _ error) {
		done <- res
	})

	res := <-done
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Len(t, spans.Ended(), 1)
}

// TestWrap_NilResultDelegate tests the fallback for a delegate that
// returns no result.
func TestWrap_NilResultDelegate(t *testing.T) {
	t.Parallel()

	var warnings []Event
	inst, spans := TestingInstrumentationWithRecorder(t,
		WithEventHandler(func(e Event) {
			if e.Type == EventWarning {
				warnings = append(warnings, e)
			}
		}),
	)

	broken := inject.Func(func(context.Context, http.Handler, any, inject.Callback) *inject.Result {
		return nil
	})
	wrapped := inst.Wrap(broken)

	result := wrapped(t.Context(), okHandler(), "/test", nil)
	assert.Nil(t, result)

	// The span was started but can never be finished safely.
	assert.Len(t, spans.Started(), 1)
	assert.Empty(t, spans.Ended())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "Delegate returned no result")
}

// TestWrap_DelegateReceivesOriginalTarget tests that malformed targets are
// passed through to the delegate untouched.
func TestWrap_DelegateReceivesOriginalTarget(t *testing.T) {
	t.Parallel()

	inst, _ := TestingInstrumentationWithRecorder(t)

	var gotTarget any
	probe := inject.Func(func(ctx context.Context, handler http.Handler, target any, cb inject.Callback) *inject.Result {
		gotTarget = target
		return inject.Inject(ctx, handler, "/fallback", cb)
	})
	wrapped := inst.Wrap(probe)

	_, err := waitDispatch(t, wrapped, okHandler(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, gotTarget)
}

// TestWrap_DelegateReceivesNormalizedTarget tests that well-formed targets
// reach the delegate in normalized form.
func TestWrap_DelegateReceivesNormalizedTarget(t *testing.T) {
	t.Parallel()

	inst, _ := TestingInstrumentationWithRecorder(t)

	var gotTarget any
	probe := inject.Func(func(ctx context.Context, handler http.Handler, target any, cb inject.Callback) *inject.Result {
		gotTarget = target
		return inject.Inject(ctx, handler, target, cb)
	})
	wrapped := inst.Wrap(probe)

	_, err := waitDispatch(t, wrapped, okHandler(), "/test?x=1")
	require.NoError(t, err)

	opts, ok := gotTarget.(*inject.Options)
	require.True(t, ok)
	assert.Equal(t, "GET", opts.Method)
	assert.Equal(t, "/test?x=1", opts.URL)
}
