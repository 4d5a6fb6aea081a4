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

import "fmt"

// Error is the sentinel error kind used by this package. Declaring
// sentinels as typed constants keeps them comparable with errors.Is while
// giving them a stable runtime type.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

const (
	// ErrNilHandler is returned when Inject is called without a handler.
	ErrNilHandler Error = "inject: handler is nil"

	// ErrUnsupportedTarget is returned when the dispatch target is not one
	// of the accepted types. The returned error wraps this sentinel and
	// names the offending type.
	ErrUnsupportedTarget Error = "inject: unsupported target type"
)

// PanicError reports a panic recovered from a handler serving an injected
// request. The panic never escapes the dispatch goroutine; it is delivered
// to the caller as the request's error instead.
type PanicError struct {
	// Value is the value passed to panic.
	Value any

	// Stack is the stack trace captured at the recovery point.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("inject: handler panicked: %v", e.Value)
}

// Unwrap exposes the panic value when the handler panicked with an error,
// so errors.Is and errors.As see through the recovery.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
