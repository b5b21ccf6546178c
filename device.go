// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"context"
	"fmt"
)

// Personality is the role of a device in the overlay
type Personality string

const (
	PersonalityVManage Personality = "vmanage"
	PersonalityVSmart  Personality = "vsmart"
	PersonalityVBond   Personality = "vbond"
	PersonalityVEdge   Personality = "vedge"
)

// Reachability is the control-plane reachability of a device
type Reachability string

const (
	ReachabilityReachable   Reachability = "reachable"
	ReachabilityUnreachable Reachability = "unreachable"
)

// Device is an inventory entry as reported by the Manager
type Device struct {
	DeviceID         string       `json:"deviceId"`
	SystemIP         string       `json:"system-ip"`
	HostName         string       `json:"host-name"`
	Reachability     Reachability `json:"reachability"`
	Personality      Personality  `json:"personality"`
	DeviceModel      string       `json:"device-model"`
	DeviceType       string       `json:"device-type"`
	UUID             string       `json:"uuid"`
	BoardSerial      string       `json:"board-serial"`
	SiteID           string       `json:"site-id"`
	Version          string       `json:"version"`
	Status           string       `json:"status"`
	State            string       `json:"state"`
	Validity         string       `json:"validity"`
	CertificateState string       `json:"vedgeCertificateState"`
	ChasisNumber     string       `json:"chasisNumber"`
}

// GetDevices lists the device inventory
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	res, err := c.Get(ctx, "/dataservice/device")
	if err != nil {
		return nil, err
	}
	return DataSequence[Device](res, DefaultSourceKey)
}

// GetDevice fetches a single inventory entry by its device id
func (c *Client) GetDevice(ctx context.Context, deviceID string) (Device, error) {
	res, err := c.Get(ctx, "/dataservice/device", Query("deviceId", deviceID))
	if err != nil {
		return Device{}, err
	}
	devices, err := DataSequence[Device](res, DefaultSourceKey)
	if err != nil {
		return Device{}, err
	}
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("device %s not found", deviceID)
	}
	return devices[0], nil
}

// FilterByPersonality returns the devices matching any of the given roles
func FilterByPersonality(devices []Device, personalities ...Personality) []Device {
	filtered := make([]Device, 0, len(devices))
	for _, device := range devices {
		for _, personality := range personalities {
			if device.Personality == personality {
				filtered = append(filtered, device)
				break
			}
		}
	}
	return filtered
}

// devicePersonality verifies that all devices share one personality and
// returns it. Mixed-role device lists cannot be targeted by a single
// software action.
func devicePersonality(devices []Device) (Personality, error) {
	if len(devices) == 0 {
		return "", fmt.Errorf("device list is empty")
	}
	personality := devices[0].Personality
	seen := map[Personality]struct{}{personality: {}}
	for _, device := range devices[1:] {
		if _, ok := seen[device.Personality]; !ok {
			seen[device.Personality] = struct{}{}
		}
	}
	if len(seen) > 1 {
		personalities := make([]Personality, 0, len(seen))
		for p := range seen {
			personalities = append(personalities, p)
		}
		return "", &MultiplePersonalityError{Personalities: personalities}
	}
	return personality, nil
}

// InstallSpecification describes how a software action payload must be
// shaped for a device role
type InstallSpecification struct {
	Family      string
	VersionType string
	DeviceType  string
}

// installSpecification maps a device personality to its action payload
// shape. Remote-server installs use the image family names under which
// the Manager files remotely hosted images.
func installSpecification(personality Personality, remote bool) (InstallSpecification, error) {
	versionType := "vmanage"
	if remote {
		versionType = "remote"
	}
	switch personality {
	case PersonalityVManage:
		return InstallSpecification{
			Family:      "vmanage",
			VersionType: versionType,
			DeviceType:  "vmanage",
		}, nil
	case PersonalityVSmart, PersonalityVBond:
		family := "vedge"
		if remote {
			family = "vedge-x86"
		}
		return InstallSpecification{
			Family:      family,
			VersionType: versionType,
			DeviceType:  "controller",
		}, nil
	case PersonalityVEdge:
		family := "vedge"
		if remote {
			family = "c8000v"
		}
		return InstallSpecification{
			Family:      family,
			VersionType: versionType,
			DeviceType:  "vedge",
		}, nil
	default:
		return InstallSpecification{}, fmt.Errorf("no install specification for personality %q", personality)
	}
}
