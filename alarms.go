// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Alarm severity levels
const (
	AlarmLevelMinor    = "Minor"
	AlarmLevelMedium   = "Medium"
	AlarmLevelMajor    = "Major"
	AlarmLevelCritical = "Critical"
)

// Alarm is an alarm entry reported by the Manager
type Alarm struct {
	Component     string `json:"component"`
	Severity      string `json:"severity"`
	Active        bool   `json:"active"`
	Type          string `json:"type"`
	SystemIP      string `json:"system-ip"`
	HostName      string `json:"host-name"`
	SiteID        string `json:"site-id"`
	NewState      string `json:"new-state"`
	InterfaceName string `json:"if-name"`
	VPNID         string `json:"vpn-id"`
}

// Matches reports whether every non-empty field of the expected alarm is
// present with the same value in the actual alarm, compared case
// insensitively
func (a Alarm) Matches(actual Alarm) bool {
	match := func(expected, got string) bool {
		return expected == "" || strings.EqualFold(expected, got)
	}
	return match(a.Component, actual.Component) &&
		match(a.Severity, actual.Severity) &&
		match(a.Type, actual.Type) &&
		match(a.SystemIP, actual.SystemIP) &&
		match(a.HostName, actual.HostName) &&
		match(a.SiteID, actual.SiteID) &&
		match(a.NewState, actual.NewState) &&
		match(a.InterfaceName, actual.InterfaceName) &&
		match(a.VPNID, actual.VPNID)
}

// AlarmQuery narrows an alarm search. Zero values mean no filter.
type AlarmQuery struct {
	// Hours limits the query to alarms of the last n hours
	Hours int
	// Level filters by severity, one of the AlarmLevel constants
	Level string
	// Viewed filters on acknowledged state
	Viewed *bool
}

// GetAlarms queries the Manager alarm database
func (c *Client) GetAlarms(ctx context.Context, query AlarmQuery) ([]Alarm, error) {
	body := Body{}.
		Set("query.condition", "AND").
		SetRaw("query.rules", "[]")
	if query.Hours > 0 {
		body = body.Set("query.rules.-1", map[string]any{
			"value":    []string{strconv.Itoa(query.Hours)},
			"field":    "entry_time",
			"type":     "date",
			"operator": "last_n_hours",
		})
	}
	if query.Level != "" {
		body = body.Set("query.rules.-1", map[string]any{
			"value":    []string{query.Level},
			"field":    "severity",
			"type":     "string",
			"operator": "in",
		})
	}
	if query.Viewed != nil {
		body = body.Set("query.rules.-1", map[string]any{
			"value":    []string{strconv.FormatBool(*query.Viewed)},
			"field":    "acknowledged",
			"type":     "bool",
			"operator": "equal",
		})
	}
	payload, err := body.String()
	if err != nil {
		return nil, err
	}

	res, err := c.Post(ctx, "/dataservice/alarms", payload)
	if err != nil {
		return nil, err
	}
	return DataSequence[Alarm](res, DefaultSourceKey)
}

// GetNotViewedAlarms returns the alarms not yet acknowledged
func (c *Client) GetNotViewedAlarms(ctx context.Context) ([]Alarm, error) {
	viewed := false
	return c.GetAlarms(ctx, AlarmQuery{Viewed: &viewed})
}

// MarkAlarmsViewed acknowledges all alarms
func (c *Client) MarkAlarmsViewed(ctx context.Context) error {
	_, err := c.Post(ctx, "/dataservice/alarms/markallasviewed", "")
	return err
}

// VerifyAlarms polls the un-viewed alarms until every expected alarm has
// occurred or the timeout elapses. It returns the expected alarms that
// were found and those that were not.
func (c *Client) VerifyAlarms(ctx context.Context, expected []Alarm, timeout, interval time.Duration) (found, notFound []Alarm, err error) {
	remaining := make([]Alarm, len(expected))
	copy(remaining, expected)

	pollErr := c.pollUntil(ctx, "alarm verification", timeout, interval,
		func(ctx context.Context) (bool, error) {
			actual, err := c.GetNotViewedAlarms(ctx)
			if err != nil {
				return false, err
			}
			var missing []Alarm
			for _, alarm := range remaining {
				matched := false
				for _, observed := range actual {
					if alarm.Matches(observed) {
						matched = true
						break
					}
				}
				if matched {
					found = append(found, alarm)
				} else {
					missing = append(missing, alarm)
				}
			}
			remaining = missing
			return len(remaining) == 0, nil
		})

	if pollErr != nil && !errors.Is(pollErr, errPollTimeout) {
		return found, remaining, pollErr
	}
	c.logger.Info("Alarm verification finished",
		"found", len(found),
		"not_found", len(remaining))
	return found, remaining, nil
}
