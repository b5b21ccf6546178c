// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default client configuration values
const (
	DefaultUserAgent       = "go-sdwan"
	DefaultRequestTimeout  = 30 * time.Second
	DefaultRestartTimeout  = 20 * time.Minute
	DefaultPrettyPrintLogs = true
)

// Security limits for JSON processing and logging
const (
	MaxJSONSizeForLogging = 1 * 1024 * 1024 // 1MB limit to prevent ReDoS attacks
	MaxSensitiveFields    = 1000            // Max redaction operations to prevent DoS
)

// Logging message constants
const (
	JSONTooLargeMessage     = "[JSON TOO LARGE FOR LOGGING]"
	JSONTooManySensitiveMsg = "[JSON CONTAINS TOO MANY SENSITIVE FIELDS]"
)

// TraceEnv is the environment variable enabling verbose request/response
// tracing regardless of the configured logger level.
const TraceEnv = "SDWAN_DEBUG"

// passwordResetPage marks the redirect target the Manager serves when the
// user still carries the default password.
const passwordResetPage = "passwordReset.html"

// sessionCookieName is the Manager session cookie.
const sessionCookieName = "JSESSIONID"

// defaultRedactionPatterns contains regex patterns for redacting sensitive data in logs
var defaultRedactionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"password"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`"secret"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`"key"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`"token"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`j_password=[^&]*`),
}

var redactionReplacements = []string{
	`"password":"[REDACTED]"`,
	`"secret":"[REDACTED]"`,
	`"key":"[REDACTED]"`,
	`"token":"[REDACTED]"`,
	`j_password=[REDACTED]`,
}

// authState holds the session cookie, the anti-CSRF token and the
// per-tenant virtual session token. The empty token implies the empty
// cookie; the pair is replaced atomically on (re-)authentication.
type authState struct {
	sessionID  string
	token      string
	vsessionID string
}

// Client represents one authenticated session to a Catalyst SD-WAN
// Manager. A Client is a single logical session: requests are strictly
// serialized and the client must not be shared between goroutines.
// Callers that need parallelism create independent clients.
type Client struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// BaseURL is the Manager base URL, e.g. https://10.0.1.200:8443
	BaseURL string

	// UserAgent is attached to every outgoing request
	UserAgent string

	// Insecure disables TLS certificate verification
	Insecure bool

	// RequestTimeout bounds a single HTTP request
	RequestTimeout time.Duration

	// RestartTimeout bounds WaitServerReady after a Manager restart
	RestartTimeout time.Duration

	// Connection parameters
	url       string
	port      int
	usr       string // unexported for security
	pwd       string // unexported for security
	subdomain string

	// Session state
	auth         authState
	relogin      bool
	closed       bool
	sessionType  SessionType
	serverName   string
	platformVers string
	apiVersion   Version

	// Poll clock, replaceable in tests
	clock clock

	// Logging configuration
	logger            Logger
	prettyPrintLogs   bool
	trace             bool
	redactionPatterns []*regexp.Regexp
}

// NewClient creates a new Manager client with the specified URL and
// options.
//
// The client does NOT perform any network traffic; call Login to
// establish the session.
//
// Example:
//
//	client, err := sdwan.NewClient(
//	    "10.0.1.200",
//	    sdwan.Username("admin"),
//	    sdwan.Password("secret"),
//	    sdwan.Port(8443),
//	    sdwan.Insecure(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Login(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(context.Background())
//
// Returns a configured Client or an error if configuration validation fails.
func NewClient(targetURL string, opts ...func(*Client)) (*Client, error) {
	client := &Client{
		url:               targetURL,
		UserAgent:         DefaultUserAgent,
		RequestTimeout:    DefaultRequestTimeout,
		RestartTimeout:    DefaultRestartTimeout,
		relogin:           true,
		apiVersion:        NullVersion(),
		clock:             realClock{},
		logger:            &NoOpLogger{},
		prettyPrintLogs:   DefaultPrettyPrintLogs,
		trace:             os.Getenv(TraceEnv) != "",
		redactionPatterns: defaultRedactionPatterns,
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := client.validateConfig(); err != nil {
		return nil, err
	}

	base, err := composeBaseURL(client.url, client.port)
	if err != nil {
		return nil, err
	}
	client.BaseURL = base

	if client.HTTPClient == nil {
		client.HTTPClient = &http.Client{
			Timeout: client.RequestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: client.Insecure}, //nolint:gosec // Lab Managers commonly run self-signed certificates
			},
		}
	}

	client.logger.Info("sdwan client created",
		"base_url", client.BaseURL,
		"user", client.usr)

	return client, nil
}

// validateConfig validates client configuration before login
func (c *Client) validateConfig() error {
	if strings.TrimSpace(c.url) == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if c.port < 0 || c.port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got: %v", c.RequestTimeout)
	}
	if c.usr == "" || c.pwd == "" {
		c.logger.Warn("No credentials configured",
			"url", c.url,
			"message", "Manager will reject login")
	}
	if c.Insecure {
		c.logger.Warn("TLS certificate verification disabled",
			"url", c.url,
			"recommendation", "Use only in testing environments")
	}
	return nil
}

// composeBaseURL builds the base URL from an IP address or domain name.
// The scheme defaults to https; a user-supplied scheme and port are
// honored, an explicit port option is appended.
func composeBaseURL(raw string, port int) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	base := u.Scheme + "://" + u.Host
	if port != 0 && u.Port() == "" {
		base = fmt.Sprintf("%s:%d", base, port)
	}
	return base, nil
}

// SessionType returns the session type derived during Login
func (c *Client) SessionType() SessionType {
	return c.sessionType
}

// ServerName returns the Manager server name reported during Login
func (c *Client) ServerName() string {
	return c.serverName
}

// PlatformVersion returns the raw platform version string reported by the
// Manager during Login
func (c *Client) PlatformVersion() string {
	return c.platformVers
}

// APIVersion returns the parsed API version (major.minor) of the Manager.
// It is the null version before Login and on controllers forcing a
// default-password reset.
func (c *Client) APIVersion() Version {
	return c.apiVersion
}

// setPlatformVersion records the platform version and derives the API version
func (c *Client) setPlatformVersion(version string) {
	c.platformVers = version
	c.apiVersion = ParseAPIVersion(version)
}

// FullURL returns the base URL joined with the given path. Absolute URLs
// are returned verbatim.
func (c *Client) FullURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.BaseURL + path
}

// Do sends a request to the Manager and returns the parsed response
// envelope.
//
// The request flow is: attach authentication (session cookie, anti-CSRF
// token, virtual session token), send, detect session-cookie rotation.
// When the Manager rotated the session cookie the client re-authenticates
// and replays the original request exactly once. A response landing on the
// password reset page raises DefaultPasswordError. A status >= 400 raises
// HTTPError carrying the ErrorInfo parsed from the body.
func (c *Client) Do(ctx context.Context, method, path string, body string, mods ...func(*Req)) (Res, error) {
	fullURL := c.FullURL(path)

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return Res{}, fmt.Errorf("invalid request %s %s: %w", method, fullURL, err)
	}
	req := Req{HTTPReq: httpReq, LogPayload: true, Relogin: c.relogin}
	for _, mod := range mods {
		mod(&req)
	}

	correlation := uuid.NewString()[:8]
	logBody := ""
	if req.LogPayload {
		logBody = c.prepareJSONForLogging(body)
	}
	c.logger.Debug("HTTP request",
		"id", correlation,
		"method", method,
		"url", req.HTTPReq.URL.String(),
		"body", logBody)

	var httpRes *http.Response
	var resBody []byte

	// The rotated -> sending edge is taken at most once per logical request
	for attempt := 0; attempt < 2; attempt++ {
		attemptReq := req.HTTPReq.Clone(ctx)
		if body != "" {
			attemptReq.Body = io.NopCloser(strings.NewReader(body))
			attemptReq.ContentLength = int64(len(body))
			if attemptReq.Header.Get("Content-Type") == "" {
				attemptReq.Header.Set("Content-Type", "application/json")
			}
		}
		c.authorize(attemptReq)

		httpRes, err = c.HTTPClient.Do(attemptReq)
		if err != nil {
			return Res{}, &RequestError{Method: method, URL: fullURL, Err: err}
		}
		resBody, err = io.ReadAll(httpRes.Body)
		httpRes.Body.Close()
		if err != nil {
			return Res{}, &RequestError{Method: method, URL: fullURL, Err: err}
		}

		if req.Relogin && attempt == 0 && c.sessionRotated(httpRes) {
			c.logger.Warn("Session cookie rotation detected, logging in again",
				"id", correlation)
			if err := c.authenticate(ctx); err != nil {
				return Res{}, err
			}
			continue
		}
		break
	}

	res := Res{
		StatusCode: httpRes.StatusCode,
		Header:     httpRes.Header,
		RawBody:    string(resBody),
	}

	if c.trace || req.LogPayload {
		c.logger.Debug("HTTP response",
			"id", correlation,
			"status", httpRes.StatusCode,
			"body", c.prepareJSONForLogging(res.RawBody))
	}

	if httpRes.Request != nil && httpRes.Request.URL != nil &&
		strings.Contains(httpRes.Request.URL.String(), passwordResetPage) {
		return res, &DefaultPasswordError{URL: httpRes.Request.URL.String()}
	}

	if httpRes.StatusCode >= 400 {
		return res, &HTTPError{
			StatusCode: httpRes.StatusCode,
			Method:     method,
			URL:        fullURL,
			Info:       res.ErrorInfo(),
			Body:       res.RawBody,
		}
	}

	return res, nil
}

// Get sends a GET request
func (c *Client) Get(ctx context.Context, path string, mods ...func(*Req)) (Res, error) {
	return c.Do(ctx, http.MethodGet, path, "", mods...)
}

// Post sends a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path, body string, mods ...func(*Req)) (Res, error) {
	return c.Do(ctx, http.MethodPost, path, body, mods...)
}

// Put sends a PUT request with a JSON body
func (c *Client) Put(ctx context.Context, path, body string, mods ...func(*Req)) (Res, error) {
	return c.Do(ctx, http.MethodPut, path, body, mods...)
}

// Delete sends a DELETE request
func (c *Client) Delete(ctx context.Context, path string, mods ...func(*Req)) (Res, error) {
	return c.Do(ctx, http.MethodDelete, path, "", mods...)
}

// authorize attaches the current authentication state to the request:
// the session cookie, the anti-CSRF token, the User-Agent, and the
// virtual session token when switched to a tenant view.
func (c *Client) authorize(req *http.Request) {
	req.Header.Set("User-Agent", c.UserAgent)
	if c.auth.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: c.auth.sessionID})
	}
	if c.auth.token != "" {
		req.Header.Set("x-xsrf-token", c.auth.token)
	}
	if c.auth.vsessionID != "" {
		req.Header.Set("VSessionId", c.auth.vsessionID)
	}
}

// sessionRotated reports whether the response carries a session cookie
// different from the one held in the authentication state, meaning the
// Manager invalidated the current session.
func (c *Client) sessionRotated(res *http.Response) bool {
	if c.auth.sessionID == "" {
		return false
	}
	for _, cookie := range res.Cookies() {
		if cookie.Name == sessionCookieName && cookie.Value != "" && cookie.Value != c.auth.sessionID {
			return true
		}
	}
	return false
}

// prepareJSONForLogging redacts sensitive data and formats JSON for logging
//
// Size and sensitive-field count limits prevent regex-based DoS during
// redaction of malicious or malformed input.
//
// Returns the processed string safe for logging.
func (c *Client) prepareJSONForLogging(jsonStr string) string {
	if len(jsonStr) > MaxJSONSizeForLogging {
		return JSONTooLargeMessage
	}

	sensitiveCount := strings.Count(jsonStr, `"password"`) +
		strings.Count(jsonStr, `"secret"`) +
		strings.Count(jsonStr, `"key"`) +
		strings.Count(jsonStr, `"token"`)
	if sensitiveCount > MaxSensitiveFields {
		c.logger.Warn("Too many sensitive fields detected",
			"count", sensitiveCount,
			"max", MaxSensitiveFields)
		return JSONTooManySensitiveMsg
	}

	redacted := c.redactSensitiveData(jsonStr)

	if c.prettyPrintLogs {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(redacted), "", "  "); err == nil {
			return buf.String()
		}
	}

	return redacted
}

// redactSensitiveData replaces sensitive values with [REDACTED]
func (c *Client) redactSensitiveData(payload string) string {
	result := payload
	for i, pattern := range c.redactionPatterns {
		result = pattern.ReplaceAllString(result, redactionReplacements[i])
	}
	return result
}
