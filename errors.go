// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"fmt"
)

// ErrorInfo represents the structured error object the Manager embeds in
// failed response bodies under the "error" key. All fields are optional.
type ErrorInfo struct {
	// Message is the short error summary
	Message string `json:"message"`

	// Details is the longer error explanation
	Details string `json:"details"`

	// Code is the Manager error code, e.g. "USER0006"
	Code string `json:"code"`
}

// String returns a human-readable representation of the error info
func (e ErrorInfo) String() string {
	s := e.Message
	if e.Details != "" {
		s += ": " + e.Details
	}
	if e.Code != "" {
		s += " (code: " + e.Code + ")"
	}
	return s
}

// RequestError represents a network-level failure before an HTTP response
// was obtained. The underlying transport error is wrapped and available
// via errors.Unwrap.
type RequestError struct {
	// Method is the HTTP method of the failed request
	Method string

	// URL is the full request URL
	URL string

	// Err is the underlying transport error
	Err error
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("sdwan: request %s %s failed: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying transport error
func (e *RequestError) Unwrap() error {
	return e.Err
}

// HTTPError represents a response with status code >= 400. It carries the
// request coordinates, the response status and the ErrorInfo parsed from
// the response body when present.
type HTTPError struct {
	// StatusCode is the HTTP response status code
	StatusCode int

	// Method is the HTTP method of the failed request
	Method string

	// URL is the full request URL
	URL string

	// Info is the error object extracted from the response body.
	// Fields may be empty when the body carried no error object.
	Info ErrorInfo

	// Body is the raw response body
	Body string
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Info.Message != "" {
		return fmt.Sprintf("sdwan: %s %s returned HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Info)
	}
	return fmt.Sprintf("sdwan: %s %s returned HTTP %d", e.Method, e.URL, e.StatusCode)
}

// AuthenticationError indicates rejected credentials or a user not
// authorized to access the Manager. Retrying with the same credentials
// will not succeed.
type AuthenticationError struct {
	// Username used for the login attempt
	Username string
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("sdwan: authentication failed for user %q: wrong username/password or user not authorized", e.Username)
}

// DefaultPasswordError indicates the Manager redirected to the password
// reset page. The password must be changed before the session is usable.
type DefaultPasswordError struct {
	// URL is the final response URL containing the password reset page
	URL string
}

// Error implements the error interface
func (e *DefaultPasswordError) Error() string {
	return "sdwan: password must be changed to use this session"
}

// SessionNotCreatedError indicates the session configuration is not
// consistent, e.g. a tenant subdomain supplied for a tenant user.
type SessionNotCreatedError struct {
	Reason string
}

// Error implements the error interface
func (e *SessionNotCreatedError) Error() string {
	return "sdwan: session not created: " + e.Reason
}

// TenantSubdomainNotFoundError indicates the configured tenant subdomain
// was not present in the Manager tenant list.
type TenantSubdomainNotFoundError struct {
	Subdomain string
}

// Error implements the error interface
func (e *TenantSubdomainNotFoundError) Error() string {
	return fmt.Sprintf("sdwan: tenant id for sub-domain %q not found", e.Subdomain)
}

// ServerReadyTimeoutError indicates the Manager did not report ready
// within the configured restart timeout.
type ServerReadyTimeoutError struct {
	Timeout string
}

// Error implements the error interface
func (e *ServerReadyTimeoutError) Error() string {
	return "sdwan: waiting for server ready took longer than " + e.Timeout
}

// TaskValidationError indicates the Manager reported a validation failure
// for the task. Polling halts immediately when it is raised.
type TaskValidationError struct {
	// TaskID identifies the failed task
	TaskID string

	// Status is the observed validation status
	Status string
}

// Error implements the error interface
func (e *TaskValidationError) Error() string {
	return fmt.Sprintf("sdwan: task %s validation failed, validation status is: %s", e.TaskID, e.Status)
}

// TaskNotRegisteredError indicates an action submit response carried no
// task or process id.
type TaskNotRegisteredError struct {
	// Action names the submitted action
	Action string
}

// Error implements the error interface
func (e *TaskNotRegisteredError) Error() string {
	return fmt.Sprintf("sdwan: action %q submit response did not contain a task id", e.Action)
}

// EmptyTaskResponseError indicates a task was accepted but never reported
// any sub-task before the polling deadline.
type EmptyTaskResponseError struct {
	TaskID string
}

// Error implements the error interface
func (e *EmptyTaskResponseError) Error() string {
	return fmt.Sprintf("sdwan: task %s never reported any sub-task", e.TaskID)
}

// MultiplePersonalityError indicates a device batch mixing personalities
// was passed to an operation requiring a homogeneous batch.
type MultiplePersonalityError struct {
	Personalities []Personality
}

// Error implements the error interface
func (e *MultiplePersonalityError) Error() string {
	return fmt.Sprintf("sdwan: devices have more than one personality: %v", e.Personalities)
}

// VersionDeclarationError indicates an invalid combination of software
// selectors was passed to an install-type operation. Exactly one of image,
// image version, or remote server plus remote image must be provided.
type VersionDeclarationError struct {
	Reason string
}

// Error implements the error interface
func (e *VersionDeclarationError) Error() string {
	return "sdwan: " + e.Reason
}

// ImageNotInRepositoryError indicates the requested software image or
// version is not present in the Manager software repository.
type ImageNotInRepositoryError struct {
	Image string
}

// Error implements the error interface
func (e *ImageNotInRepositoryError) Error() string {
	return fmt.Sprintf("sdwan: software image %q is not in the software repository", e.Image)
}

// EmptyVersionPayloadError indicates a device in an action payload resolved
// to an empty version field, i.e. the requested version is not present in
// the device available or current versions.
type EmptyVersionPayloadError struct {
	DeviceID string
}

// Error implements the error interface
func (e *EmptyVersionPayloadError) Error() string {
	return fmt.Sprintf("sdwan: action payload for device %s contains an empty version field", e.DeviceID)
}
