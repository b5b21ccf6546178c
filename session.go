// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Tenancy, user and view modes as reported by the Manager server probe
const (
	TenancyModeSingleTenant = "SingleTenant"
	TenancyModeMultiTenant  = "MultiTenant"

	UserModeProvider = "provider"
	UserModeTenant   = "tenant"

	ViewModeProvider = "provider"
	ViewModeTenant   = "tenant"
)

// SessionType is the quadrant derived from the server-reported tenancy,
// user and view modes.
type SessionType int

const (
	// SessionTypeNotDefined is reported for mode combinations outside the
	// recognized table. It is logged but not fatal.
	SessionTypeNotDefined SessionType = iota

	// SessionTypeSingleTenant is a tenant user on a single-tenant Manager
	SessionTypeSingleTenant

	// SessionTypeProvider is a provider user in provider view
	SessionTypeProvider

	// SessionTypeProviderAsTenant is a provider user switched to a tenant view
	SessionTypeProviderAsTenant

	// SessionTypeTenant is a tenant user on a multi-tenant Manager
	SessionTypeTenant
)

// String returns the string representation of a SessionType
func (s SessionType) String() string {
	switch s {
	case SessionTypeSingleTenant:
		return "single-tenant"
	case SessionTypeProvider:
		return "provider"
	case SessionTypeProviderAsTenant:
		return "provider-as-tenant"
	case SessionTypeTenant:
		return "tenant"
	default:
		return "not-defined"
	}
}

// DetermineSessionType derives the session type from the server-reported
// tenancy, user and view modes. Combinations outside the table yield
// SessionTypeNotDefined.
func DetermineSessionType(tenancyMode, userMode, viewMode string) SessionType {
	type modes struct{ tenancy, user, view string }
	table := map[modes]SessionType{
		{TenancyModeSingleTenant, UserModeTenant, ViewModeTenant}:    SessionTypeSingleTenant,
		{TenancyModeMultiTenant, UserModeProvider, ViewModeProvider}: SessionTypeProvider,
		{TenancyModeMultiTenant, UserModeProvider, ViewModeTenant}:   SessionTypeProviderAsTenant,
		{TenancyModeMultiTenant, UserModeTenant, ViewModeTenant}:     SessionTypeTenant,
	}
	return table[modes{tenancyMode, userMode, viewMode}]
}

// ServerInfo describes the Manager instance as reported by the
// /dataservice/client/server endpoint.
type ServerInfo struct {
	Server          string `json:"server"`
	PlatformVersion string `json:"platformVersion"`
	TenancyMode     string `json:"tenancyMode"`
	UserMode        string `json:"userMode"`
	ViewMode        string `json:"viewMode"`
}

// AboutInfo describes the Manager build as reported by the
// /dataservice/client/about endpoint.
type AboutInfo struct {
	Title              string `json:"title"`
	Version            string `json:"version"`
	ApplicationVersion string `json:"applicationVersion"`
	ApplicationServer  string `json:"applicationServer"`
	Copyright          string `json:"copyright"`
	Time               string `json:"time"`
	TimeZone           string `json:"timeZone"`
	Logo               string `json:"logo"`
}

// Login establishes the session: it authenticates, optionally switches to
// a tenant view, probes the server info and derives the session type.
//
// Sequence:
//  1. Two-step credential login (session cookie + anti-CSRF token).
//  2. When a tenant subdomain is configured: resolve it to a tenant id
//     and exchange it for a virtual session token attached to every
//     subsequent request.
//  3. Probe /dataservice/client/server; a Manager forcing a
//     default-password reset yields an empty ServerInfo instead.
//  4. Derive the session type; reject a subdomain supplied for a tenant
//     user with SessionNotCreatedError.
func (c *Client) Login(ctx context.Context) error {
	if err := c.authenticate(ctx); err != nil {
		return err
	}

	if c.subdomain != "" {
		tenantID, err := c.TenantID(ctx, c.subdomain)
		if err != nil {
			return err
		}
		vsessionID, err := c.VirtualSessionID(ctx, tenantID)
		if err != nil {
			return err
		}
		c.auth.vsessionID = vsessionID
	}

	info, err := c.Server(ctx)
	if err != nil {
		var defaultPassword *DefaultPasswordError
		if errors.As(err, &defaultPassword) {
			info = ServerInfo{}
		} else {
			return err
		}
	}

	c.serverName = info.Server
	c.setPlatformVersion(info.PlatformVersion)
	c.sessionType = DetermineSessionType(info.TenancyMode, info.UserMode, info.ViewMode)

	if info.UserMode == UserModeTenant && c.subdomain != "" {
		return &SessionNotCreatedError{
			Reason: fmt.Sprintf("subdomain %s passed to tenant session, cannot switch to tenant from tenant user mode", c.subdomain),
		}
	}
	if c.sessionType == SessionTypeNotDefined {
		c.logger.Warn("Cannot determine session type",
			"tenancy_mode", info.TenancyMode,
			"user_mode", info.UserMode,
			"view_mode", info.ViewMode)
	}

	c.logger.Info("Logged in to Manager",
		"platform_version", c.platformVers,
		"user", c.usr,
		"session_type", c.sessionType.String())

	return nil
}

// Server probes the Manager server info and records the platform version
func (c *Client) Server(ctx context.Context) (ServerInfo, error) {
	res, err := c.Get(ctx, "/dataservice/client/server")
	if err != nil {
		return ServerInfo{}, err
	}
	info, err := DataObject[ServerInfo](res, DefaultSourceKey)
	if err != nil {
		return ServerInfo{}, err
	}
	c.setPlatformVersion(info.PlatformVersion)
	return info, nil
}

// About returns the Manager build information
func (c *Client) About(ctx context.Context) (AboutInfo, error) {
	res, err := c.Get(ctx, "/dataservice/client/about")
	if err != nil {
		return AboutInfo{}, err
	}
	return DataObject[AboutInfo](res, DefaultSourceKey)
}

// TenantID resolves a tenant subdomain to its tenant id
func (c *Client) TenantID(ctx context.Context, subdomain string) (string, error) {
	res, err := c.Get(ctx, "/dataservice/tenant")
	if err != nil {
		return "", err
	}
	tenants, err := DataSequence[Tenant](res, DefaultSourceKey)
	if err != nil {
		return "", err
	}
	for _, tenant := range tenants {
		if tenant.Subdomain == subdomain && tenant.TenantID != "" {
			return tenant.TenantID, nil
		}
	}
	return "", &TenantSubdomainNotFoundError{Subdomain: subdomain}
}

// VirtualSessionID obtains the virtual session token for a tenant.
//
// Note: in a multitenant Manager this API is only available in the
// provider view.
func (c *Client) VirtualSessionID(ctx context.Context, tenantID string) (string, error) {
	res, err := c.Post(ctx, "/dataservice/tenant/"+tenantID+"/vsessionid", "")
	if err != nil {
		return "", err
	}
	vsessionID := res.Get("VSessionId").String()
	if vsessionID == "" {
		return "", fmt.Errorf("virtual session response for tenant %s did not contain VSessionId", tenantID)
	}
	return vsessionID, nil
}

// Logout ends the Manager session. The logout endpoint moved from GET to
// POST in 20.12; with an unknown API version logout is skipped.
func (c *Client) Logout(ctx context.Context) error {
	if c.apiVersion.IsNull() {
		c.logger.Warn("Cannot perform logout operation without known api version")
		return nil
	}
	var err error
	if c.apiVersion.AtLeast(Version{Major: 20, Minor: 12}) {
		_, err = c.Post(ctx, "/logout", "", NoRelogin)
	} else {
		_, err = c.Get(ctx, "/logout", NoRelogin)
	}
	return err
}

// Close closes the session: it disables the cookie-rotation recovery,
// performs a best-effort logout and releases the connection pool.
// Close is idempotent; logout failures are logged and swallowed.
func (c *Client) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.relogin = false

	if err := c.Logout(ctx); err != nil {
		c.logger.Warn("Logout failed during close",
			"error", err.Error())
	}
	c.auth = authState{}
	c.HTTPClient.CloseIdleConnections()

	c.logger.Info("Session closed",
		"base_url", c.BaseURL)
	return nil
}

// WaitServerReady waits until the Manager is ready for API requests after
// a restart, bounded by the given timeout. The Manager is first polled
// for plain HTTP availability, then for the server ready flag.
func (c *Client) WaitServerReady(ctx context.Context, timeout time.Duration) error {
	const pollPeriod = 10 * time.Second
	begin := c.clock.Now()

	c.logger.Info("Waiting for server ready",
		"timeout", timeout.String())

	for c.clock.Now().Sub(begin) < timeout {
		res, err := c.Get(ctx, "/dataservice/client/server/ready", NoRelogin)
		if err == nil && res.Get("isServerReady").Bool() {
			c.logger.Debug("Server ready",
				"elapsed", c.clock.Now().Sub(begin).String())
			return nil
		}
		var httpErr *HTTPError
		if err != nil && !errors.As(err, &httpErr) {
			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				return err
			}
		}
		if err := c.clock.Sleep(ctx, pollPeriod); err != nil {
			return err
		}
	}

	return &ServerReadyTimeoutError{Timeout: timeout.String()}
}

// RestartImminent notifies the session that a Manager restart is about to
// happen: it waits for the server to come back and logs in again.
func (c *Client) RestartImminent(ctx context.Context) error {
	if err := c.WaitServerReady(ctx, c.RestartTimeout); err != nil {
		return err
	}
	return c.Login(ctx)
}
