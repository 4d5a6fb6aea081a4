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
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Options describes a request to inject. The zero value dispatches GET /.
type Options struct {
	// Method is the HTTP method. Empty means GET; the value is uppercased
	// during normalization.
	Method string

	// URL is the request target, either origin form ("/path?query") or an
	// absolute URL. Empty means "/".
	URL string

	// Headers are the request headers. A "host" entry (any case) becomes
	// Request.Host rather than a header.
	Headers map[string]string

	// Body is the request body. Nil means no body.
	Body []byte

	// RemoteAddr is the synthetic peer address. Empty means a fixed
	// TEST-NET-1 address.
	RemoteAddr string
}

// NormalizeOptions converts a dispatch target into a complete Options
// value. Accepted targets are nil, string, url.URL, *url.URL, Options, and
// *Options. The result is always non-nil with method and URL defaulted, so
// callers that only need a request description can use it even when the
// target type is unsupported; in that case the error wraps
// ErrUnsupportedTarget.
//
// The returned value is a shallow copy: the caller's Options is never
// mutated, while the header map and body are shared.
func NormalizeOptions(target any) (*Options, error) {
	var o Options
	var err error

	switch v := target.(type) {
	case nil:
	case string:
		o.URL = v
	case url.URL:
		o.URL = v.String()
	case *url.URL:
		if v != nil {
			o.URL = v.String()
		}
	case Options:
		o = v
	case *Options:
		if v != nil {
			o = *v
		}
	default:
		err = fmt.Errorf("%w: %T", ErrUnsupportedTarget, target)
	}

	if o.Method == "" {
		o.Method = http.MethodGet
	} else {
		o.Method = strings.ToUpper(o.Method)
	}
	if o.URL == "" {
		o.URL = "/"
	}
	return &o, err
}

// Header returns the value of the named request header, matching
// case-insensitively. Exact and lower-case spellings are tried first since
// header maps are usually written in one of those forms.
func (o *Options) Header(name string) string {
	if o == nil || o.Headers == nil {
		return ""
	}
	if v, ok := o.Headers[name]; ok {
		return v
	}
	if v, ok := o.Headers[strings.ToLower(name)]; ok {
		return v
	}
	for k, v := range o.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
