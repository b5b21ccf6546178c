// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"plain string", "hello", "hello"},
		{"integer", 42, "42"},
		{"newline to space", "line1\nline2", "line1 line2"},
		{"crlf to spaces", "a\r\nb", "a  b"},
		{"tab to space", "a\tb", "a b"},
		{"escape to dot", "a\x1bb", "a.b"},
		{"bell and backspace", "a\x07\x08b", "a..b"},
		{"control to dot", "a\x01b", "a.b"},
		{"zero width stripped", "a\u200bb\ufeffc", "abc"},
		{"rtl override to space", "a\u202eb", "a b"},
		{"unicode preserved", "héllo wörld", "héllo wörld"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeLogValue(tt.input))
		})
	}
}

func TestSanitizeLogValueTruncation(t *testing.T) {
	long := strings.Repeat("x", MaxLogValueLength+100)
	out := sanitizeLogValue(long)
	assert.Len(t, out, MaxLogValueLength+len("...[TRUNCATED]"))
	assert.True(t, strings.HasSuffix(out, "...[TRUNCATED]"))

	exact := strings.Repeat("y", MaxLogValueLength)
	assert.Equal(t, exact, sanitizeLogValue(exact))
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "NONE", LogLevelNone.String())
	assert.Equal(t, "UNKNOWN(42)", LogLevel(42).String())
}

func TestZerologLogger(t *testing.T) {
	var buf strings.Builder
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Info("request completed", "method", "GET", "status", 200, "odd")

	line := buf.String()
	assert.Equal(t, "request completed", gjson.Get(line, "message").String())
	assert.Equal(t, "GET", gjson.Get(line, "method").String())
	assert.Equal(t, "200", gjson.Get(line, "status").String())
	assert.Equal(t, "<MISSING>", gjson.Get(line, "odd").String())
}
