// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// authenticate performs the two-step Manager login and replaces the
// authentication state atomically.
//
// Manager REST API access control is session based. The typical steps to
// consume the API are:
//  1. Log in with a username and password to establish a session.
//  2. Get a cross-site request forgery prevention token, which is
//     required for most POST operations.
//
// The credential POST replies 200 regardless of outcome; only an empty
// response body indicates success. A non-empty body carries an HTML login
// fragment and means the credentials were rejected.
func (c *Client) authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("j_username", c.usr)
	form.Set("j_password", c.pwd)

	loginURL := c.FullURL("/j_security_check")
	loginReq, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	loginReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	loginReq.Header.Set("User-Agent", c.UserAgent)

	loginRes, err := c.HTTPClient.Do(loginReq)
	if err != nil {
		return &RequestError{Method: http.MethodPost, URL: loginURL, Err: err}
	}
	loginBody, err := io.ReadAll(loginRes.Body)
	loginRes.Body.Close()
	if err != nil {
		return &RequestError{Method: http.MethodPost, URL: loginURL, Err: err}
	}

	c.logger.Debug("Authenticating",
		"user", c.usr,
		"url", loginURL,
		"status", loginRes.StatusCode)

	if len(loginBody) != 0 {
		return &AuthenticationError{Username: c.usr}
	}

	sessionID := ""
	for _, cookie := range loginRes.Cookies() {
		if cookie.Name == sessionCookieName {
			sessionID = cookie.Value
		}
	}

	token, err := c.fetchToken(ctx, sessionID)
	if err != nil {
		return err
	}

	// Cookie and token are replaced together
	c.auth = authState{
		sessionID:  sessionID,
		token:      token,
		vsessionID: c.auth.vsessionID,
	}

	return nil
}

// fetchToken fetches the anti-CSRF token. The token is in the response
// body and is used along with the session cookie for ongoing API requests.
func (c *Client) fetchToken(ctx context.Context, sessionID string) (string, error) {
	tokenURL := c.FullURL("/dataservice/client/token")
	tokenReq, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", err
	}
	tokenReq.Header.Set("Content-Type", "application/json")
	tokenReq.Header.Set("User-Agent", c.UserAgent)
	tokenReq.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sessionID})

	tokenRes, err := c.HTTPClient.Do(tokenReq)
	if err != nil {
		return "", &RequestError{Method: http.MethodGet, URL: tokenURL, Err: err}
	}
	tokenBody, err := io.ReadAll(tokenRes.Body)
	tokenRes.Body.Close()
	if err != nil {
		return "", &RequestError{Method: http.MethodGet, URL: tokenURL, Err: err}
	}

	return strings.TrimSpace(string(tokenBody)), nil
}
