// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import "time"

// Client configuration options using the functional options pattern

// Username sets the username for Manager authentication
func Username(username string) func(*Client) {
	return func(c *Client) {
		c.usr = username
	}
}

// Password sets the password for Manager authentication
func Password(password string) func(*Client) {
	return func(c *Client) {
		c.pwd = password
	}
}

// Subdomain sets the tenant subdomain to switch to when creating a
// provider-as-tenant session. Only valid for provider users; the Manager
// resolves the subdomain to a tenant id and issues a virtual session
// token during Login.
func Subdomain(subdomain string) func(*Client) {
	return func(c *Client) {
		c.subdomain = subdomain
	}
}

// Port sets the Manager port. When unset the port of the URL is used, or
// the scheme default.
func Port(port int) func(*Client) {
	return func(c *Client) {
		c.port = port
	}
}

// Insecure disables TLS certificate verification (default: false)
//
// WARNING: Disabling certificate verification makes the connection
// vulnerable to Man-in-the-Middle attacks. Use only with lab Managers
// running self-signed certificates.
func Insecure(insecure bool) func(*Client) {
	return func(c *Client) {
		c.Insecure = insecure
	}
}

// UserAgent overrides the User-Agent header (default: "go-sdwan")
func UserAgent(userAgent string) func(*Client) {
	return func(c *Client) {
		c.UserAgent = userAgent
	}
}

// RequestTimeout sets the timeout for a single HTTP request (default: 30s)
func RequestTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.RequestTimeout = duration
	}
}

// RestartTimeout sets how long WaitServerReady waits for the Manager to
// come back after a restart (default: 20m)
func RestartTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.RestartTimeout = duration
	}
}

// WithLogger sets a custom logger (default: NoOpLogger)
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		c.logger = logger
	}
}

// PrettyPrintLogs enables or disables pretty-printing of JSON payloads in
// debug logs (default: true)
func PrettyPrintLogs(enabled bool) func(*Client) {
	return func(c *Client) {
		c.prettyPrintLogs = enabled
	}
}
