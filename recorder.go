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
	"net/http"
)

// recorder is the http.ResponseWriter handed to handlers serving an
// injected request. Status, headers, and body are captured in memory and
// turned into a Response once the handler returns.
type recorder struct {
	header     http.Header
	snapshot   http.Header
	body       bytes.Buffer
	statusCode int
	written    bool
}

// newRecorder creates a recorder with an empty header map.
func newRecorder() *recorder {
	return &recorder{header: make(http.Header)}
}

// Ensure recorder implements the interfaces handlers probe for.
var (
	_ http.ResponseWriter = (*recorder)(nil)
	_ http.Flusher        = (*recorder)(nil)
)

// Header returns the header map the handler may mutate until the first
// write.
func (rw *recorder) Header() http.Header {
	return rw.header
}

// WriteHeader captures the status code and snapshots the headers, matching
// the point at which a real server flushes them to the wire.
func (rw *recorder) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.snapshot = rw.header.Clone()
		rw.written = true
	}
}

// Write appends to the body, implying a 200 when the handler never called
// WriteHeader.
func (rw *recorder) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}

	return rw.body.Write(b)
}

// StatusCode returns the HTTP status code.
func (rw *recorder) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}

	return rw.statusCode
}

// Flush implements http.Flusher. There is no wire to flush to; the call
// only commits the status and headers like a real flush would.
func (rw *recorder) Flush() {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
}

// response converts the captured state into a Response.
func (rw *recorder) response() *Response {
	header := rw.snapshot
	if header == nil {
		header = rw.header.Clone()
	}

	return &Response{
		StatusCode: rw.StatusCode(),
		Header:     header,
		Body:       bytes.Clone(rw.body.Bytes()),
	}
}
