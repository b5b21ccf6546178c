// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances instantly so poll loops run without wall-clock waits
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

// testClient creates a client pointed at the test server with an
// instant clock
func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(server.URL, Username("usr"), Password("pwd"))
	require.NoError(t, err)
	client.HTTPClient = server.Client()
	client.clock = &fakeClock{now: time.Now()}
	return client
}

// loginHandlers registers the two-step login endpoints on mux
func loginHandlers(mux *http.ServeMux, sessionID, token string) {
	mux.HandleFunc("/j_security_check", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: sessionID})
	})
	mux.HandleFunc("/dataservice/client/token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(token))
	})
}

func TestNewClientBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		port     int
		expected string
	}{
		{"bare ip", "10.0.1.200", 0, "https://10.0.1.200"},
		{"ip with port option", "10.0.1.200", 8443, "https://10.0.1.200:8443"},
		{"explicit scheme", "http://manager.example.com", 0, "http://manager.example.com"},
		{"url port wins", "https://manager.example.com:443", 8443, "https://manager.example.com:443"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, Username("u"), Password("p"), Port(tt.port))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, client.BaseURL)
		})
	}
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)

	_, err = NewClient("10.0.1.200", RequestTimeout(0))
	assert.Error(t, err)
}

func TestFullURL(t *testing.T) {
	client, err := NewClient("10.0.1.200", Username("u"), Password("p"))
	require.NoError(t, err)

	assert.Equal(t, "https://10.0.1.200/dataservice/device", client.FullURL("/dataservice/device"))
	assert.Equal(t, "https://other/x", client.FullURL("https://other/x"))
}

func TestAuthenticate(t *testing.T) {
	mux := http.NewServeMux()
	loginHandlers(mux, "S1", "TOKEN1")
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	require.NoError(t, client.authenticate(context.Background()))
	assert.Equal(t, "S1", client.auth.sessionID)
	assert.Equal(t, "TOKEN1", client.auth.token)
}

func TestAuthenticateRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/j_security_check", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>Invalid User or Password</html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	err := client.authenticate(context.Background())
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "usr", authErr.Username)
}

func TestDoAttachesAuth(t *testing.T) {
	var gotCookie, gotToken, gotVSession, gotAgent string
	mux := http.NewServeMux()
	mux.HandleFunc("/dataservice/device", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("JSESSIONID"); err == nil {
			gotCookie = c.Value
		}
		gotToken = r.Header.Get("x-xsrf-token")
		gotVSession = r.Header.Get("VSessionId")
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"data":[]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	client.auth = authState{sessionID: "S1", token: "T1", vsessionID: "V1"}

	_, err := client.Get(context.Background(), "/dataservice/device")
	require.NoError(t, err)
	assert.Equal(t, "S1", gotCookie)
	assert.Equal(t, "T1", gotToken)
	assert.Equal(t, "V1", gotVSession)
	assert.Equal(t, DefaultUserAgent, gotAgent)
}

func TestDoSessionRotationReplay(t *testing.T) {
	var deviceCalls int
	var replayToken string
	mux := http.NewServeMux()
	loginHandlers(mux, "S2", "TOKEN2")
	mux.HandleFunc("/dataservice/device", func(w http.ResponseWriter, r *http.Request) {
		deviceCalls++
		if deviceCalls == 1 {
			// Manager invalidated the session and issued a new cookie
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "ROTATED"})
			w.Write([]byte(`{}`))
			return
		}
		replayToken = r.Header.Get("x-xsrf-token")
		w.Write([]byte(`{"data":[{"host-name":"vm1"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	client.auth = authState{sessionID: "S1", token: "TOKEN1"}

	res, err := client.Get(context.Background(), "/dataservice/device")
	require.NoError(t, err)
	assert.Equal(t, 2, deviceCalls, "original request must be replayed exactly once")
	assert.Equal(t, "vm1", res.Data().Get("0.host-name").String())
	assert.Equal(t, "S2", client.auth.sessionID)
	assert.Equal(t, "TOKEN2", replayToken)
}

func TestDoRotationDisabled(t *testing.T) {
	var deviceCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		deviceCalls++
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "ROTATED"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	client.auth = authState{sessionID: "S1", token: "T1"}

	_, err := client.Get(context.Background(), "/logout", NoRelogin)
	require.NoError(t, err)
	assert.Equal(t, 1, deviceCalls)
	assert.Equal(t, "S1", client.auth.sessionID, "auth state must not change")
}

func TestDoDefaultPasswordRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dataservice/client/server", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/passwordReset.html", http.StatusFound)
	})
	mux.HandleFunc("/passwordReset.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>reset</html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	_, err := client.Get(context.Background(), "/dataservice/client/server")
	var pwErr *DefaultPasswordError
	require.ErrorAs(t, err, &pwErr)
}

func TestDoHTTPError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dataservice/device", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid request","details":"device not found","code":"DEV0001"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	_, err := client.Get(context.Background(), "/dataservice/device")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "Invalid request", httpErr.Info.Message)
	assert.Equal(t, "device not found", httpErr.Info.Details)
	assert.Equal(t, "DEV0001", httpErr.Info.Code)
}

func TestDoTransportError(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	server.Close() // connection refused

	client, err := NewClient(server.URL, Username("u"), Password("p"))
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/dataservice/device")
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Error(t, errors.Unwrap(reqErr))
}

func TestRedactSensitiveData(t *testing.T) {
	client, err := NewClient("10.0.1.200", Username("u"), Password("p"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"password field", `{"password":"secret123"}`, `{"password":"[REDACTED]"}`},
		{"token field", `{"token":"abc"}`, `{"token":"[REDACTED]"}`},
		{"login form", `j_username=admin&j_password=secret`, `j_username=admin&j_password=[REDACTED]`},
		{"plain body", `{"host-name":"vm1"}`, `{"host-name":"vm1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, client.redactSensitiveData(tt.in))
		})
	}
}
