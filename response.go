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
	"encoding/json"
	"net/http"
)

// Response is the recorded outcome of an injected request.
type Response struct {
	// StatusCode is the status the handler sent. Handlers that write a
	// body without calling WriteHeader report 200.
	StatusCode int

	// Header holds the response headers as of the first write.
	Header http.Header

	// Body is the accumulated response body.
	Body []byte
}

// BodyString returns the response body as a string.
func (r *Response) BodyString() string { return string(r.Body) }

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error { return json.Unmarshal(r.Body, v) }

// Cookies parses and returns the cookies the handler set.
func (r *Response) Cookies() []*http.Cookie {
	res := http.Response{Header: r.Header}
	return res.Cookies()
}
