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
	"context"
	"sync"
)

// Result is the deferred outcome of an injected request. It settles
// exactly once, with either a Response or an error, never both.
type Result struct {
	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	res       *Response
	err       error
	observers []func(*Response, error)
}

// newResult creates an unsettled Result.
func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

// complete settles the result. Observers registered so far run before the
// done channel closes, so their effects are visible to every waiter. A
// second completion is ignored.
func (r *Result) complete(res *Response, err error) {
	r.mu.Lock()
	if r.settled {
		r.mu.Unlock()
		return
	}
	r.settled = true
	r.res, r.err = res, err
	observers := r.observers
	r.observers = nil
	r.mu.Unlock()

	for _, fn := range observers {
		fn(res, err)
	}
	close(r.done)
}

// OnComplete registers fn to run once the result settles. Observers
// registered before settlement run, in registration order, before Wait
// returns or Done closes. An observer registered after settlement runs
// immediately on the calling goroutine.
func (r *Result) OnComplete(fn func(*Response, error)) {
	r.mu.Lock()
	if !r.settled {
		r.observers = append(r.observers, fn)
		r.mu.Unlock()
		return
	}
	res, err := r.res, r.err
	r.mu.Unlock()

	fn(res, err)
}

// Done returns a channel closed once the result has settled and all
// observers registered before settlement have run.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the result settles or ctx is done. On cancellation it
// returns ctx.Err(); the dispatch keeps running and the result may still
// settle later.
func (r *Result) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-r.done:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
