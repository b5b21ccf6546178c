// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// errPollTimeout marks a poll loop that exhausted its attempts without
// the condition being met, as opposed to aborting on a check failure
var errPollTimeout = errors.New("condition not met")

// pollUntil runs check every interval until it reports done or the
// timeout elapses, bounded by ceil(timeout/interval) attempts. Transient
// transport and HTTP errors are logged and retried, everything else
// aborts the loop.
func (c *Client) pollUntil(ctx context.Context, what string, timeout, interval time.Duration, check func(context.Context) (bool, error)) error {
	attempts := int((timeout + interval - 1) / interval)
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := c.clock.Sleep(ctx, interval); err != nil {
				return err
			}
		}
		done, err := check(ctx)
		if err != nil {
			if !recoverablePollError(err) {
				return err
			}
			c.logger.Debug("Poll failed, retrying",
				"poll", what,
				"error", err.Error())
			continue
		}
		if done {
			return nil
		}
	}
	return fmt.Errorf("%s: %w within %s", what, errPollTimeout, timeout)
}

// Reboot triggers a reboot of the given devices and returns the task
func (c *Client) Reboot(ctx context.Context, devices []Device) (*Task, error) {
	personality, err := devicePersonality(devices)
	if err != nil {
		return nil, err
	}
	spec, err := installSpecification(personality, false)
	if err != nil {
		return nil, err
	}
	payloadDevices, err := actionDevices(devices)
	if err != nil {
		return nil, err
	}

	body := Body{}.
		Set("action", "reboot").
		Set("deviceType", spec.DeviceType).
		Set("devices", payloadDevices)
	payload, err := body.String()
	if err != nil {
		return nil, err
	}

	res, err := c.Post(ctx, "/dataservice/device/action/reboot", payload)
	if err != nil {
		return nil, err
	}
	return c.taskFromResponse(res, "reboot")
}

// RebootAndWait reboots the devices, waits for the task to succeed and
// then waits for every device to report reachable again. A device can
// stay reachable for a few seconds after the reboot is triggered, so
// reachability alone is not trusted before the task completes.
func (c *Client) RebootAndWait(ctx context.Context, devices []Device, mods ...func(*waitConfig)) error {
	task, err := c.Reboot(ctx, devices)
	if err != nil {
		return err
	}
	result, err := task.WaitForCompleted(ctx, mods...)
	if err != nil {
		return err
	}
	if !result.Result {
		return fmt.Errorf("reboot task %s did not succeed on all devices", task.ID)
	}
	for _, device := range devices {
		if err := c.WaitForReachability(ctx, device.DeviceID, ReachabilityReachable); err != nil {
			return err
		}
	}
	return nil
}

// WaitForReachability polls the inventory until the device reports the
// expected reachability
func (c *Client) WaitForReachability(ctx context.Context, deviceID string, expected Reachability) error {
	return c.pollUntil(ctx, "reachability of "+deviceID, 10*time.Minute, 5*time.Second,
		func(ctx context.Context) (bool, error) {
			device, err := c.GetDevice(ctx, deviceID)
			if err != nil {
				return false, err
			}
			return device.Reachability == expected, nil
		})
}

// Decommission releases a device from the overlay. The device entry is
// then polled until its certificate returns to the generated state and
// the device reports unreachable.
func (c *Client) Decommission(ctx context.Context, uuid string) error {
	_, err := c.Put(ctx, "/dataservice/system/device/decommission/"+uuid, "")
	if err != nil {
		return err
	}
	return c.pollUntil(ctx, "decommission of "+uuid, 5*time.Minute, 15*time.Second,
		func(ctx context.Context) (bool, error) {
			device, err := c.vedgeDetails(ctx, uuid)
			if err != nil {
				return false, err
			}
			return device.Reachability == ReachabilityUnreachable &&
				device.CertificateState == "generated", nil
		})
}

// vedgeDetails fetches the certificate-level inventory entry of a device
func (c *Client) vedgeDetails(ctx context.Context, uuid string) (Device, error) {
	res, err := c.Get(ctx, "/dataservice/system/device/vedges", Query("uuid", uuid))
	if err != nil {
		return Device{}, err
	}
	devices, err := DataSequence[Device](res, DefaultSourceKey)
	if err != nil {
		return Device{}, err
	}
	if len(devices) != 1 {
		return Device{}, fmt.Errorf("expected one inventory entry for uuid %s, got %d", uuid, len(devices))
	}
	return devices[0], nil
}

// PushCertificates sends the current certificate state to the
// controllers. The push reports no per-subtask envelope, so the raw
// status list is polled until every entry reports Success.
func (c *Client) PushCertificates(ctx context.Context) error {
	res, err := c.Post(ctx, "/dataservice/certificate/vedge/list", "", Query("action", "push"))
	if err != nil {
		return err
	}
	task, err := c.taskFromResponse(res, "certificate push")
	if err != nil {
		return err
	}

	return c.pollUntil(ctx, "certificate push "+task.ID, 10*time.Minute, 5*time.Second,
		func(ctx context.Context) (bool, error) {
			data, err := task.Status(ctx)
			if err != nil {
				return false, err
			}
			if len(data.Data) == 0 {
				return false, nil
			}
			for _, entry := range data.Data {
				if entry.Status != OperationStatusSuccess {
					return false, nil
				}
			}
			return true, nil
		})
}

// BFDSession is one BFD session entry of a device
type BFDSession struct {
	State           string `json:"state"`
	SiteID          string `json:"site-id"`
	SystemIP        string `json:"system-ip"`
	LocalColor      string `json:"local-color"`
	Color           string `json:"color"`
	SourceIP        string `json:"src-ip"`
	DestinationIP   string `json:"dst-ip"`
	Uptime          string `json:"uptime"`
	TransitionCount int    `json:"transitions"`
}

// GetBFDSessions lists the BFD sessions of a device
func (c *Client) GetBFDSessions(ctx context.Context, deviceID string) ([]BFDSession, error) {
	res, err := c.Get(ctx, "/dataservice/device/bfd/sessions", Query("deviceId", deviceID))
	if err != nil {
		return nil, err
	}
	return DataSequence[BFDSession](res, DefaultSourceKey)
}

// WaitForBFDUp polls the device until every BFD session reports the up
// state. An empty session list does not count as up.
func (c *Client) WaitForBFDUp(ctx context.Context, deviceID string) error {
	return c.pollUntil(ctx, "bfd sessions of "+deviceID, time.Minute, 5*time.Second,
		func(ctx context.Context) (bool, error) {
			sessions, err := c.GetBFDSessions(ctx, deviceID)
			if err != nil {
				return false, err
			}
			if len(sessions) == 0 {
				return false, nil
			}
			for _, session := range sessions {
				if session.State != "up" {
					return false, nil
				}
			}
			return true, nil
		})
}
