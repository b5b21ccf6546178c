// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"net/http"
)

// Req wraps an outgoing HTTP request together with per-request behavior
// flags. Request modifiers are applied via functional options passed to
// the client request methods.
//
// Example:
//
//	res, err := client.Get(ctx, "/dataservice/device",
//	    sdwan.Query("deviceId", "10.0.0.1"),
//	    sdwan.NoLogPayload)
type Req struct {
	// HTTPReq is the underlying HTTP request
	HTTPReq *http.Request

	// LogPayload controls whether the request/response payload is
	// written to the debug log
	LogPayload bool

	// Relogin controls whether a detected session-cookie rotation
	// triggers re-authentication and a single replay of this request
	Relogin bool
}

// Query adds a query parameter to the request URL
func Query(key, value string) func(*Req) {
	return func(req *Req) {
		q := req.HTTPReq.URL.Query()
		q.Add(key, value)
		req.HTTPReq.URL.RawQuery = q.Encode()
	}
}

// Header sets a header on the request
func Header(key, value string) func(*Req) {
	return func(req *Req) {
		req.HTTPReq.Header.Set(key, value)
	}
}

// NoLogPayload prevents the request and response payloads from being
// written to the debug log, e.g. for payloads carrying credentials
func NoLogPayload(req *Req) {
	req.LogPayload = false
}

// NoRelogin disables the session-cookie rotation recovery for this
// request. Used internally during logout and close.
func NoRelogin(req *Req) {
	req.Relogin = false
}
