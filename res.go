// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// DefaultSourceKey is the key under which the Manager places response
// payloads in the JSON envelope.
const DefaultSourceKey = "data"

// Res represents a Manager response envelope. It is a uniform view over
// controller responses: the raw body, a gjson view, the payload under a
// source key, and a best-effort structured error.
type Res struct {
	// StatusCode is the HTTP response status code
	StatusCode int

	// Header contains the response headers
	Header http.Header

	// RawBody is the response body as received
	RawBody string
}

// JSON returns the decoded body as a gjson.Result for path-based querying.
// The path follows gjson syntax.
//
// Example:
//
//	res, _ := client.Get(ctx, "/dataservice/device")
//	hostname := res.JSON().Get("data.0.host-name").String()
func (r Res) JSON() gjson.Result {
	return gjson.Parse(r.RawBody)
}

// Get retrieves a value from the response body using a gjson path
func (r Res) Get(path string) gjson.Result {
	return gjson.Get(r.RawBody, path)
}

// Data returns the payload under the default source key
func (r Res) Data() gjson.Result {
	return r.Get(DefaultSourceKey)
}

// ErrorInfo returns the structured error extracted from the response body.
// It always returns a value; fields are empty when the body carries no
// error object.
func (r Res) ErrorInfo() ErrorInfo {
	e := r.Get("error")
	return ErrorInfo{
		Message: e.Get("message").String(),
		Details: e.Get("details").String(),
		Code:    e.Get("code").String(),
	}
}

// DataObject decodes the value at sourceKey into a single typed object.
// An empty sourceKey decodes the whole body. It is an error when the value
// is missing, a list, or not an object.
//
// Example:
//
//	info, err := sdwan.DataObject[ServerInfo](res, "data")
func DataObject[T any](r Res, sourceKey string) (T, error) {
	var obj T
	value := gjson.Parse(r.RawBody)
	if sourceKey != "" {
		value = r.Get(sourceKey)
	}
	if !value.Exists() {
		return obj, fmt.Errorf("response payload key %q is missing", sourceKey)
	}
	if value.IsArray() {
		return obj, fmt.Errorf("response payload key %q contains a list, expected a single object", sourceKey)
	}
	if !value.IsObject() {
		return obj, fmt.Errorf("response payload key %q does not contain an object", sourceKey)
	}
	if err := json.Unmarshal([]byte(value.Raw), &obj); err != nil {
		return obj, fmt.Errorf("cannot decode response payload: %w", err)
	}
	return obj, nil
}

// DataSequence decodes the value at sourceKey into a typed slice. A
// missing key or an empty list yields an empty slice; a scalar or object
// at the key is an error.
//
// Example:
//
//	tenants, err := sdwan.DataSequence[Tenant](res, "data")
func DataSequence[T any](r Res, sourceKey string) ([]T, error) {
	value := gjson.Parse(r.RawBody)
	if sourceKey != "" {
		value = r.Get(sourceKey)
	}
	if !value.Exists() || value.Type == gjson.Null {
		return []T{}, nil
	}
	if !value.IsArray() {
		return nil, fmt.Errorf("response payload key %q does not contain a list", sourceKey)
	}
	items := value.Array()
	seq := make([]T, 0, len(items))
	for i, item := range items {
		var obj T
		if err := json.Unmarshal([]byte(item.Raw), &obj); err != nil {
			return nil, fmt.Errorf("cannot decode response payload item %d: %w", i, err)
		}
		seq = append(seq, obj)
	}
	return seq, nil
}
