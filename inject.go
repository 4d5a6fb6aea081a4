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

package inject

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
)

// Func is the signature of the dispatch entry point. Inject is the
// canonical implementation; wrappers (instrumentation, test harnesses)
// take and return this type so they stay interchangeable with it.
type Func func(ctx context.Context, handler http.Handler, target any, cb Callback) *Result

// Callback receives the outcome of an injected request. Exactly one of
// res and err is non-nil.
type Callback func(res *Response, err error)

// HeaderRequestID is the header carrying the per-request identifier.
// Requests injected without one get a UUIDv7 stamped under this name.
const HeaderRequestID = "X-Request-ID"

// defaultRemoteAddr is the synthetic peer address used when the target
// does not set one. It sits in TEST-NET-1 and never routes.
const defaultRemoteAddr = "192.0.2.1:1234"

// injectionKey marks request contexts produced by this package.
type injectionKey struct{}

// IsInjection reports whether r is a synthetic request produced by this
// package. Handlers can use it to skip work that only makes sense for
// requests that arrived over a socket.
func IsInjection(r *http.Request) bool {
	return r.Context().Value(injectionKey{}) != nil
}

// Inject dispatches a synthetic request described by target against
// handler. The handler runs on its own goroutine with ctx (plus the
// injection marker) as the request context.
//
// With a non-nil cb the call is fire-and-forget: cb receives the outcome
// and Inject returns nil. With a nil cb Inject returns a *Result that
// settles when the handler finishes.
func Inject(ctx context.Context, handler http.Handler, target any, cb Callback) *Result {
	result := newResult()
	if cb != nil {
		result.OnComplete(cb)
	}

	go dispatch(ctx, handler, target, result)

	if cb != nil {
		return nil
	}
	return result
}

// Do injects target against handler and waits for the outcome.
func Do(ctx context.Context, handler http.Handler, target any) (*Response, error) {
	return Inject(ctx, handler, target, nil).Wait(ctx)
}

// dispatch runs the handler and settles result. A handler panic is
// recovered into a *PanicError so it reaches the caller as an ordinary
// error.
func dispatch(ctx context.Context, handler http.Handler, target any, result *Result) {
	defer func() {
		if v := recover(); v != nil {
			result.complete(nil, &PanicError{Value: v, Stack: debug.Stack()})
		}
	}()

	if handler == nil {
		result.complete(nil, ErrNilHandler)
		return
	}

	opts, err := NormalizeOptions(target)
	if err != nil {
		result.complete(nil, err)
		return
	}

	req, err := newRequest(ctx, opts)
	if err != nil {
		result.complete(nil, err)
		return
	}

	rw := newRecorder()
	handler.ServeHTTP(rw, req)
	result.complete(rw.response(), nil)
}

// newRequest builds the synthetic HTTP/1.1 request for opts.
func newRequest(ctx context.Context, o *Options) (*http.Request, error) {
	u, err := url.ParseRequestURI(o.URL)
	if err != nil {
		return nil, err
	}

	req := &http.Request{
		Method:     o.Method,
		URL:        u,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header, len(o.Headers)+1),
		Host:       u.Host,
		RequestURI: o.URL,
		RemoteAddr: o.RemoteAddr,
		Body:       http.NoBody,
	}
	if req.RemoteAddr == "" {
		req.RemoteAddr = defaultRemoteAddr
	}

	for k, v := range o.Headers {
		// Go promotes the Host header onto the request itself.
		if strings.EqualFold(k, "host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.Must(uuid.NewV7()).String())
	}

	if o.Body != nil {
		req.Body = io.NopCloser(bytes.NewReader(o.Body))
		req.ContentLength = int64(len(o.Body))
	}

	return req.WithContext(context.WithValue(ctx, injectionKey{}, true)), nil
}
