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
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"rivaas.dev/inject"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Wrap returns a dispatch func that traces every call before delegating to
// original. Each dispatch produces exactly one server span:
//
//   - the span parent comes from trace context found in the request
//     headers, extracted with the configured propagator
//   - request attributes follow the HTTP semantic conventions, derived
//     from the normalized request descriptor
//   - the handler observes the span through the derived context
//   - the span ends exactly once, through the response path or the error
//     path, in both the callback and the future call styles
//
// The wrapper has the same shape as original and is safe to publish in its
// place.
func (i *Instrumentation) Wrap(original inject.Func) inject.Func {
	return func(ctx context.Context, handler http.Handler, target any, cb inject.Callback) *inject.Result {
		opts, optsErr := inject.NormalizeOptions(target)

		// Derive the span parent from trace context carried in the
		// synthetic request headers.
		if len(opts.Headers) > 0 {
			ctx = i.propagator.Extract(ctx, propagation.MapCarrier(opts.Headers))
		}

		ctx, span := i.activeTracer().Start(ctx, i.spanName(opts),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestAttributes(opts)...),
		)

		i.runRequestHook(span, opts)

		// A malformed target still produced a usable descriptor for the
		// span; the delegate gets the original value so the library
		// reports its own error.
		delegateTarget := any(opts)
		if optsErr != nil {
			delegateTarget = target
		}

		if cb != nil {
			wrapped := func(res *inject.Response, err error) {
				i.finish(span, res, err)
				cb(res, err)
			}
			return original(ctx, handler, delegateTarget, wrapped)
		}

		result := original(ctx, handler, delegateTarget, nil)
		if result == nil {
			// Delegate broke the contract; nothing will ever settle, so
			// there is no safe point to end the span.
			i.emitWarning("Delegate returned no result; span left unfinished",
				"method", opts.Method,
				"url", opts.URL,
			)
			return result
		}
		result.OnComplete(func(res *inject.Response, err error) {
			i.finish(span, res, err)
		})

		return result
	}
}

// finish routes a settled dispatch outcome to the matching finalization
// path. Exactly one of res and err is expected to be non-nil.
func (i *Instrumentation) finish(span trace.Span, res *inject.Response, err error) {
	if err != nil {
		i.finishError(span, err)
		return
	}
	i.finishResponse(span, res)
}

// finishResponse records response attributes and status, runs the response
// hook, and ends the span.
func (i *Instrumentation) finishResponse(span trace.Span, res *inject.Response) {
	statusCode := http.StatusOK
	if res != nil && res.StatusCode != 0 {
		statusCode = res.StatusCode
	}

	span.SetAttributes(semconv.HTTPResponseStatusCode(statusCode))

	// Set status based on status code
	if statusCode >= 400 {
		span.SetAttributes(semconv.ErrorTypeKey.String(strconv.Itoa(statusCode)))
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	// Invoke response hook if configured (before ending span)
	i.runResponseHook(span, res)

	span.End()
}

// finishError records the failure as an exception event, marks the span
// status, and ends the span.
func (i *Instrumentation) finishError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetAttributes(semconv.ErrorTypeKey.String(errorType(err)))
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

// runRequestHook invokes the request hook under panic isolation. A failing
// hook is reported through diagnostics and never affects the dispatch.
func (i *Instrumentation) runRequestHook(span trace.Span, opts *inject.Options) {
	if i.requestHook == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			i.emitError("Request hook panicked", "panic", v)
		}
	}()
	i.requestHook(span, opts)
}

// runResponseHook invokes the response hook under panic isolation. The
// span still ends when the hook fails.
func (i *Instrumentation) runResponseHook(span trace.Span, res *inject.Response) {
	if i.responseHook == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			i.emitError("Response hook panicked", "panic", v)
		}
	}()
	i.responseHook(span, res)
}

// spanName builds "<METHOD> <url>" using the literal request target,
// query included.
func (i *Instrumentation) spanName(opts *inject.Options) string {
	sb := i.spanNamePool.Get().(*strings.Builder)
	sb.Reset()
	sb.WriteString(opts.Method)
	sb.WriteByte(' ')
	sb.WriteString(opts.URL)
	name := sb.String()
	i.spanNamePool.Put(sb)

	return name
}

// requestAttributes derives the span attributes from a normalized request
// descriptor. Keys whose source is absent are omitted, never recorded
// empty.
func requestAttributes(opts *inject.Options) []attribute.KeyValue {
	scheme := "http"
	path := opts.URL
	query := ""
	if u, err := url.Parse(opts.URL); err == nil {
		if u.Scheme != "" {
			scheme = u.Scheme
		}
		path = u.Path
		query = u.RawQuery
	}
	if path == "" {
		path = "/"
	}

	attrs := make([]attribute.KeyValue, 0, 10)
	attrs = append(attrs,
		semconv.HTTPRequestMethodKey.String(opts.Method),
		semconv.URLPath(path),
		semconv.URLScheme(scheme),
		semconv.URLFull(opts.URL),
		semconv.NetworkProtocolVersion("1.1"),
	)

	if query != "" {
		attrs = append(attrs, semconv.URLQuery(query))
	}
	if host := opts.Header("host"); host != "" {
		address, port := splitHostPort(host)
		attrs = append(attrs, semconv.ServerAddress(address))
		if port > 0 {
			attrs = append(attrs, semconv.ServerPort(port))
		}
	}
	if opts.RemoteAddr != "" {
		attrs = append(attrs, semconv.ClientAddress(opts.RemoteAddr))
	}
	if ua := opts.Header("user-agent"); ua != "" {
		attrs = append(attrs, semconv.UserAgentOriginal(ua))
	}

	return attrs
}

// splitHostPort splits a host header value on the first colon. A missing
// or unparseable port yields 0, meaning the port attribute is omitted
// while the address is kept.
func splitHostPort(host string) (string, int) {
	idx := strings.Index(host, ":")
	if idx < 0 {
		return host, 0
	}
	port, err := strconv.Atoi(host[idx+1:])
	if err != nil || port < 0 {
		return host[:idx], 0
	}

	return host[:idx], port
}

// errorType labels an error for the error.type attribute: the dynamic
// type's name after pointer dereferencing, the full type string for
// unnamed types, and a generic label for nil.
func errorType(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return "error"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}

	return t.String()
}
