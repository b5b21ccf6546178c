// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"context"
	"path"
	"strings"
)

// SoftwareImage describes an image stored in the Manager software
// repository. AvailableFiles is reported as a single comma-separated
// string, not a list.
type SoftwareImage struct {
	AvailableFiles string `json:"availableFiles"`
	VersionName    string `json:"versionName"`
	VersionType    string `json:"versionType"`
	VersionID      string `json:"versionId"`
	RemoteServerID string `json:"remoteServerId"`
	ImageType      string `json:"imageType"`
	NetworkFunType string `json:"networkFunctionType"`
}

// DeviceSoftwareRepository is the per-device view of software versions.
// InstalledVersions is derived, the available versions plus the one
// currently running.
type DeviceSoftwareRepository struct {
	DeviceID          string   `json:"uuid"`
	CurrentVersion    string   `json:"version"`
	DefaultVersion    string   `json:"defaultVersion"`
	AvailableVersions []string `json:"availableVersions"`
	InstalledVersions []string `json:"-"`
}

// GetSoftwareImages lists all images in the Manager software repository
func (c *Client) GetSoftwareImages(ctx context.Context) ([]SoftwareImage, error) {
	res, err := c.Get(ctx, "/dataservice/device/action/software/images", Query("imageType", "software"))
	if err != nil {
		return nil, err
	}
	return DataSequence[SoftwareImage](res, DefaultSourceKey)
}

// ImageVersion resolves a software image path or filename to the version
// it carries. Images filed without a usable version name (the Manager
// reports "--" for those) are skipped.
func (c *Client) ImageVersion(ctx context.Context, softwareImage string) (string, error) {
	imageName := path.Base(softwareImage)
	images, err := c.GetSoftwareImages(ctx)
	if err != nil {
		return "", err
	}
	for _, image := range images {
		if !strings.Contains(image.AvailableFiles, imageName) {
			continue
		}
		if image.VersionName != "" && image.VersionName != "--" {
			return image.VersionName, nil
		}
		c.logger.Warn("Image in available files has no usable version name",
			"image", imageName,
			"version_name", image.VersionName)
	}
	return "", &ImageNotInRepositoryError{Image: imageName}
}

// RemoteImage resolves an image hosted on a configured remote server.
// The returned details carry the version and remote server ids required
// to build a remote install payload.
func (c *Client) RemoteImage(ctx context.Context, remoteImageFilename, remoteServerName string) (SoftwareImage, error) {
	imageName := path.Base(remoteImageFilename)
	images, err := c.GetSoftwareImages(ctx)
	if err != nil {
		return SoftwareImage{}, err
	}
	for _, image := range images {
		if image.AvailableFiles == "" || image.VersionType == "" {
			continue
		}
		if !strings.Contains(image.AvailableFiles, imageName) || !strings.Contains(image.VersionType, remoteServerName) {
			continue
		}
		if image.RemoteServerID == "" || image.VersionID == "" {
			return SoftwareImage{}, &VersionDeclarationError{
				Reason: "remote image " + imageName + " is missing remote server id or version id",
			}
		}
		return image, nil
	}
	return SoftwareImage{}, &ImageNotInRepositoryError{Image: imageName}
}

// DeleteImage removes an image from the Manager software repository
func (c *Client) DeleteImage(ctx context.Context, imageName string) error {
	images, err := c.GetSoftwareImages(ctx)
	if err != nil {
		return err
	}
	for _, image := range images {
		if strings.Contains(image.AvailableFiles, imageName) {
			_, err := c.Delete(ctx, "/dataservice/device/action/software/"+image.VersionID)
			return err
		}
	}
	return &ImageNotInRepositoryError{Image: imageName}
}

// DevicesVersionRepository aggregates the per-device software versions
// across all device types, keyed by device uuid
func (c *Client) DevicesVersionRepository(ctx context.Context) (map[string]DeviceSoftwareRepository, error) {
	repository := map[string]DeviceSoftwareRepository{}
	for _, deviceType := range []string{"controller", "vedge", "vmanage"} {
		res, err := c.Get(ctx, "/dataservice/device/action/install/devices/"+deviceType)
		if err != nil {
			return nil, err
		}
		devices, err := DataSequence[DeviceSoftwareRepository](res, DefaultSourceKey)
		if err != nil {
			return nil, err
		}
		for _, device := range devices {
			device.InstalledVersions = append(append([]string{}, device.AvailableVersions...), device.CurrentVersion)
			repository[device.DeviceID] = device
		}
	}
	return repository, nil
}
