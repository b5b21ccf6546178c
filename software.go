// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"context"
	"fmt"
	"strings"
)

// SoftwareAPI groups the software lifecycle actions: install, partition
// activation, default partition and partition removal. All actions
// require a device list with one homogeneous personality and return a
// Task to wait on.
type SoftwareAPI struct {
	client *Client
}

// Software returns the software lifecycle API
func (c *Client) Software() *SoftwareAPI {
	return &SoftwareAPI{client: c}
}

// InstallParams selects the software to install and how. Exactly one of
// Image, ImageVersion, or the RemoteServerName/RemoteImageFilename pair
// must be set.
type InstallParams struct {
	// Image is a software image path or filename in the repository
	Image string
	// ImageVersion is a version already present in the repository
	ImageVersion string
	// RemoteServerName and RemoteImageFilename select an image hosted on
	// a configured remote server
	RemoteServerName    string
	RemoteImageFilename string

	// Reboot activates the new partition immediately after install
	Reboot bool
	// NoSync disables settings synchronization after the action
	NoSync bool
	// SkipDowngradeCheck disables the version regression check. Required
	// for remote-server installs, whose images carry no version name.
	SkipDowngradeCheck bool

	VEdgeVPN  int
	VSmartVPN int
}

// actionDevice is one entry of an action payload device list
type actionDevice struct {
	DeviceID string `json:"deviceId"`
	DeviceIP string `json:"deviceIP"`
	Version  any    `json:"version,omitempty"`
}

// Install triggers a software install on a homogeneous device list
func (s *SoftwareAPI) Install(ctx context.Context, devices []Device, params InstallParams) (*Task, error) {
	personality, err := devicePersonality(devices)
	if err != nil {
		return nil, err
	}

	selectors := 0
	if params.Image != "" {
		selectors++
	}
	if params.ImageVersion != "" {
		selectors++
	}
	remote := params.RemoteServerName != "" && params.RemoteImageFilename != ""
	if remote {
		selectors++
	}
	if selectors != 1 {
		return nil, &VersionDeclarationError{
			Reason: "provide exactly one of image, image version, or remote server name with remote image filename",
		}
	}
	if remote && !params.SkipDowngradeCheck {
		return nil, &VersionDeclarationError{
			Reason: "downgrade check is not supported for images from a remote server",
		}
	}

	version := params.ImageVersion
	var remoteImage SoftwareImage
	if params.Image != "" {
		version, err = s.client.ImageVersion(ctx, params.Image)
		if err != nil {
			return nil, err
		}
	}
	if remote {
		remoteImage, err = s.client.RemoteImage(ctx, params.RemoteImageFilename, params.RemoteServerName)
		if err != nil {
			return nil, err
		}
	}

	spec, err := installSpecification(personality, remote)
	if err != nil {
		return nil, err
	}
	payloadDevices, err := actionDevices(devices)
	if err != nil {
		return nil, err
	}

	input := Body{}.
		Set("vEdgeVPN", params.VEdgeVPN).
		Set("vSmartVPN", params.VSmartVPN).
		Set("versionType", spec.VersionType).
		Set("reboot", params.Reboot).
		Set("sync", !params.NoSync)
	if remote {
		input = input.Set("data", []map[string]any{{
			"family":         spec.Family,
			"version":        remoteImage.VersionID,
			"versionId":      remoteImage.VersionID,
			"remoteServerId": remoteImage.RemoteServerID,
		}})
	} else {
		input = input.
			Set("family", spec.Family).
			Set("version", version)
	}

	if !params.SkipDowngradeCheck && (personality == PersonalityVManage || personality == PersonalityVEdge) {
		if err := s.downgradeCheck(ctx, payloadDevices, version, spec.Family); err != nil {
			return nil, err
		}
	}

	body := Body{}.
		Set("action", "install").
		Set("deviceType", spec.DeviceType).
		Set("devices", payloadDevices).
		SetRaw("input", input.Res())
	payload, err := body.String()
	if err != nil {
		return nil, err
	}

	res, err := s.client.Post(ctx, "/dataservice/device/action/install", payload)
	if err != nil {
		return nil, err
	}
	return s.client.taskFromResponse(res, "install")
}

// Activate sets an already-installed version as the running partition.
// Exactly one of version or image must be given.
func (s *SoftwareAPI) Activate(ctx context.Context, devices []Device, version, image string) (*Task, error) {
	personality, err := devicePersonality(devices)
	if err != nil {
		return nil, err
	}
	if (version == "") == (image == "") {
		return nil, &VersionDeclarationError{
			Reason: "provide exactly one of version or image",
		}
	}
	if image != "" {
		version, err = s.client.ImageVersion(ctx, image)
		if err != nil {
			return nil, err
		}
	}

	payloadDevices, err := s.devicesWithAvailableVersion(ctx, devices, version)
	if err != nil {
		return nil, err
	}
	return s.partitionAction(ctx, "changepartition", personality, payloadDevices)
}

// SetDefaultPartition marks a partition as the boot default. With an
// empty partition the currently running version is used.
func (s *SoftwareAPI) SetDefaultPartition(ctx context.Context, devices []Device, partition string) (*Task, error) {
	personality, err := devicePersonality(devices)
	if err != nil {
		return nil, err
	}

	var payloadDevices []actionDevice
	if partition != "" {
		payloadDevices, err = s.devicesWithAvailableVersion(ctx, devices, partition)
	} else {
		payloadDevices, err = s.devicesWithCurrentVersion(ctx, devices)
	}
	if err != nil {
		return nil, err
	}
	return s.partitionAction(ctx, "defaultpartition", personality, payloadDevices)
}

// RemovePartition removes installed software versions from devices. With
// an empty partition all available versions are removed. Unless force is
// set, removal of the running or default version is rejected.
func (s *SoftwareAPI) RemovePartition(ctx context.Context, devices []Device, partition string, force bool) (*Task, error) {
	personality, err := devicePersonality(devices)
	if err != nil {
		return nil, err
	}

	var payloadDevices []actionDevice
	if partition != "" {
		payloadDevices, err = s.devicesWithAvailableVersion(ctx, devices, partition)
		for i := range payloadDevices {
			payloadDevices[i].Version = []string{payloadDevices[i].Version.(string)}
		}
	} else {
		payloadDevices, err = s.devicesWithAvailableVersions(ctx, devices)
	}
	if err != nil {
		return nil, err
	}

	if !force {
		if err := s.checkRemovePartitionPossibility(ctx, payloadDevices); err != nil {
			return nil, err
		}
	}
	return s.partitionAction(ctx, "removepartition", personality, payloadDevices)
}

func (s *SoftwareAPI) partitionAction(ctx context.Context, action string, personality Personality, payloadDevices []actionDevice) (*Task, error) {
	for _, device := range payloadDevices {
		if device.Version == nil || device.Version == "" {
			return nil, &EmptyVersionPayloadError{DeviceID: device.DeviceID}
		}
	}
	spec, err := installSpecification(personality, false)
	if err != nil {
		return nil, err
	}

	body := Body{}.
		Set("action", action).
		Set("deviceType", spec.DeviceType).
		Set("devices", payloadDevices)
	payload, err := body.String()
	if err != nil {
		return nil, err
	}

	res, err := s.client.Post(ctx, "/dataservice/device/action/"+action, payload)
	if err != nil {
		return nil, err
	}
	return s.client.taskFromResponse(res, action)
}

// actionDevices converts inventory entries into payload entries,
// rejecting devices without the identifiers the action endpoints require
func actionDevices(devices []Device) ([]actionDevice, error) {
	payload := make([]actionDevice, 0, len(devices))
	for _, device := range devices {
		if device.UUID == "" || device.DeviceID == "" {
			return nil, fmt.Errorf("device %s is missing uuid or device ip required for this action", device.HostName)
		}
		payload = append(payload, actionDevice{DeviceID: device.UUID, DeviceIP: device.DeviceID})
	}
	return payload, nil
}

// devicesWithAvailableVersion attaches the first available version
// matching the requested one to each payload entry
func (s *SoftwareAPI) devicesWithAvailableVersion(ctx context.Context, devices []Device, version string) ([]actionDevice, error) {
	return s.devicesWithMatchingVersion(ctx, devices, version, false)
}

func (s *SoftwareAPI) devicesWithMatchingVersion(ctx context.Context, devices []Device, version string, installed bool) ([]actionDevice, error) {
	payload, err := actionDevices(devices)
	if err != nil {
		return nil, err
	}
	repository, err := s.client.DevicesVersionRepository(ctx)
	if err != nil {
		return nil, err
	}
	for i, device := range payload {
		versions := repository[device.DeviceID].AvailableVersions
		if installed {
			versions = repository[device.DeviceID].InstalledVersions
		}
		for _, candidate := range versions {
			if candidate != "" && containsVersion(candidate, version) {
				payload[i].Version = candidate
				break
			}
		}
		if payload[i].Version == nil {
			return nil, &EmptyVersionPayloadError{DeviceID: device.DeviceID}
		}
	}
	return payload, nil
}

func (s *SoftwareAPI) devicesWithCurrentVersion(ctx context.Context, devices []Device) ([]actionDevice, error) {
	payload, err := actionDevices(devices)
	if err != nil {
		return nil, err
	}
	repository, err := s.client.DevicesVersionRepository(ctx)
	if err != nil {
		return nil, err
	}
	for i, device := range payload {
		payload[i].Version = repository[device.DeviceID].CurrentVersion
	}
	return payload, nil
}

func (s *SoftwareAPI) devicesWithAvailableVersions(ctx context.Context, devices []Device) ([]actionDevice, error) {
	payload, err := actionDevices(devices)
	if err != nil {
		return nil, err
	}
	repository, err := s.client.DevicesVersionRepository(ctx)
	if err != nil {
		return nil, err
	}
	for i, device := range payload {
		payload[i].Version = repository[device.DeviceID].AvailableVersions
	}
	return payload, nil
}

// downgradeCheck rejects installs that would regress a Manager outside
// its current major.minor release. Other families only log a warning on
// regression.
func (s *SoftwareAPI) downgradeCheck(ctx context.Context, payloadDevices []actionDevice, versionToUpgrade, family string) error {
	repository, err := s.client.DevicesVersionRepository(ctx)
	if err != nil {
		return err
	}
	upgrade := ParseVersion(versionToUpgrade)

	var blocked []string
	for _, device := range payloadDevices {
		current := ParseVersion(repository[device.DeviceID].CurrentVersion)
		if !current.GreaterThan(upgrade) {
			continue
		}
		s.client.logger.Warn("Requested downgrade",
			"device_id", device.DeviceID,
			"current_version", current.String(),
			"requested_version", upgrade.String())
		if family == "vmanage" && !current.SameRelease(upgrade) {
			blocked = append(blocked, device.DeviceID)
		}
	}
	if len(blocked) > 0 {
		return fmt.Errorf("current version of devices %v is higher than upgrade version, action denied", blocked)
	}
	return nil
}

func (s *SoftwareAPI) checkRemovePartitionPossibility(ctx context.Context, payloadDevices []actionDevice) error {
	repository, err := s.client.DevicesVersionRepository(ctx)
	if err != nil {
		return err
	}
	var invalid []string
	for _, device := range payloadDevices {
		versions, ok := device.Version.([]string)
		if !ok {
			continue
		}
		entry := repository[device.DeviceID]
		for _, version := range versions {
			if version == entry.CurrentVersion || version == entry.DefaultVersion {
				invalid = append(invalid, device.DeviceID)
				break
			}
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("current or default version of devices %v is equal to remove version, action denied", invalid)
	}
	return nil
}

// containsVersion reports whether an available version entry refers to
// the requested version. Entries are longer strings like
// "20.12.2-185" matched against "20.12.2".
func containsVersion(candidate, version string) bool {
	return version != "" && strings.Contains(candidate, version)
}
