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

// Package inject dispatches synthetic HTTP requests against an http.Handler
// without opening a network listener. It is built for fast handler tests,
// in-process service composition, and health probes that should not touch
// the socket layer.
//
// # Basic Usage
//
//	import (
//	    "context"
//	    "log"
//	    "rivaas.dev/inject"
//	)
//
//	res, err := inject.Do(context.Background(), handler, "/users/123")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Printf("status=%d body=%s", res.StatusCode, res.BodyString())
//
// # Targets
//
// The target argument describes the request. It accepts:
//
//   - nil: GET /
//   - string or url.URL: the request URL, method defaults to GET
//   - Options or *Options: full control over method, URL, headers, body,
//     and remote address
//
// Missing fields are defaulted (GET, "/") and the method is uppercased.
// The caller's Options value is never mutated.
//
// # Call Styles
//
// Inject supports a callback style and a future style. With a callback the
// outcome is delivered asynchronously and the return value is nil:
//
//	inject.Inject(ctx, handler, "/ping", func(res *inject.Response, err error) {
//	    // runs once the handler returns
//	})
//
// Without a callback a *Result is returned:
//
//	result := inject.Inject(ctx, handler, "/ping", nil)
//	res, err := result.Wait(ctx)
//
// Result observers registered with OnComplete run before any waiter is
// released, so bookkeeping attached to a dispatch is always visible to the
// code that consumes its outcome.
//
// # Synthetic Requests
//
// Injected requests are HTTP/1.1. A "host" header becomes Request.Host, the
// remote address defaults to a TEST-NET-1 address, and requests without an
// X-Request-ID header get a UUIDv7 identifier. Handlers can detect
// injection with IsInjection:
//
//	if inject.IsInjection(r) {
//	    // skip rate limiting for in-process probes
//	}
//
// # Failure Modes
//
// A nil handler yields ErrNilHandler, an unsupported target type yields
// ErrUnsupportedTarget, and a handler panic is recovered and reported as a
// *PanicError carrying the panic value and stack. The handler goroutine
// never takes the process down.
package inject
