// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"context"
	"fmt"
)

// DeviceTemplate is a device template inventory entry
type DeviceTemplate struct {
	TemplateID      string `json:"templateId"`
	Name            string `json:"templateName"`
	Description     string `json:"templateDescription"`
	DeviceType      string `json:"deviceType"`
	ConfigType      string `json:"configType"`
	DevicesAttached int    `json:"devicesAttached"`
	LastUpdatedBy   string `json:"lastUpdatedBy"`
	LastUpdatedOn   int64  `json:"lastUpdatedOn"`
}

// GetDeviceTemplates lists the device templates
func (c *Client) GetDeviceTemplates(ctx context.Context) ([]DeviceTemplate, error) {
	res, err := c.Get(ctx, "/dataservice/template/device")
	if err != nil {
		return nil, err
	}
	return DataSequence[DeviceTemplate](res, DefaultSourceKey)
}

// GetDeviceTemplate finds a device template by name
func (c *Client) GetDeviceTemplate(ctx context.Context, name string) (DeviceTemplate, error) {
	templates, err := c.GetDeviceTemplates(ctx)
	if err != nil {
		return DeviceTemplate{}, err
	}
	for _, template := range templates {
		if template.Name == name {
			return template, nil
		}
	}
	return DeviceTemplate{}, fmt.Errorf("template %s not found", name)
}

// ValidateTemplateConfig renders and validates a template against a
// device and returns the resulting configuration
func (c *Client) ValidateTemplateConfig(ctx context.Context, templateID string, device Device) (string, error) {
	body := Body{}.
		Set("templateId", templateID).
		Set("device", templateDeviceEntry(templateID, device)).
		Set("isEdited", false).
		Set("isMasterEdited", false).
		Set("isRFSRequired", true)
	payload, err := body.String()
	if err != nil {
		return "", err
	}
	res, err := c.Post(ctx, "/dataservice/template/device/config/config/", payload)
	if err != nil {
		return "", err
	}
	return res.RawBody, nil
}

// AttachFeatureTemplate attaches a feature device template to a device.
// Device-specific variable values are passed in vars and merged into the
// attachment entry.
func (c *Client) AttachFeatureTemplate(ctx context.Context, templateID string, device Device, vars map[string]string) (*Task, error) {
	entry := templateDeviceEntry(templateID, device)
	for property, value := range vars {
		entry[property] = value
	}

	body := Body{}.Set("deviceTemplateList", []map[string]any{{
		"templateId": templateID,
		"device":     []map[string]any{entry},
	}})
	payload, err := body.String()
	if err != nil {
		return nil, err
	}

	c.logger.Info("Attaching feature template",
		"template_id", templateID,
		"device", device.HostName)
	res, err := c.Post(ctx, "/dataservice/template/device/config/attachfeature", payload)
	if err != nil {
		return nil, err
	}
	return c.taskFromResponse(res, "attach feature template")
}

// AttachCLITemplate validates a CLI template against the device and
// attaches it
func (c *Client) AttachCLITemplate(ctx context.Context, templateID string, device Device) (*Task, error) {
	if _, err := c.ValidateTemplateConfig(ctx, templateID, device); err != nil {
		return nil, err
	}

	body := Body{}.Set("deviceTemplateList", []map[string]any{{
		"templateId": templateID,
		"device":     []map[string]any{templateDeviceEntry(templateID, device)},
	}})
	payload, err := body.String()
	if err != nil {
		return nil, err
	}

	c.logger.Info("Attaching CLI template",
		"template_id", templateID,
		"device", device.HostName)
	res, err := c.Post(ctx, "/dataservice/template/device/config/attachcli", payload)
	if err != nil {
		return nil, err
	}
	return c.taskFromResponse(res, "attach cli template")
}

// DeviceToCLIMode detaches a device from its template by switching it to
// CLI configuration mode
func (c *Client) DeviceToCLIMode(ctx context.Context, device Device) (*Task, error) {
	body := Body{}.
		Set("deviceType", string(device.Personality)).
		Set("devices", []map[string]any{{
			"deviceId": device.UUID,
			"deviceIP": device.DeviceID,
		}})
	payload, err := body.String()
	if err != nil {
		return nil, err
	}

	c.logger.Info("Changing device to CLI mode",
		"device", device.HostName)
	res, err := c.Post(ctx, "/dataservice/template/config/device/mode/cli", payload)
	if err != nil {
		return nil, err
	}
	return c.taskFromResponse(res, "device to cli mode")
}

// DeleteTemplate removes a device template. Templates with attached
// devices cannot be deleted.
func (c *Client) DeleteTemplate(ctx context.Context, name string) error {
	template, err := c.GetDeviceTemplate(ctx, name)
	if err != nil {
		return err
	}
	if template.DevicesAttached > 0 {
		return fmt.Errorf("template %s is attached to %d devices and cannot be deleted", name, template.DevicesAttached)
	}
	_, err = c.Delete(ctx, "/dataservice/template/device/"+template.TemplateID)
	return err
}

// templateDeviceEntry builds the csv-style attachment entry the template
// endpoints expect
func templateDeviceEntry(templateID string, device Device) map[string]any {
	return map[string]any{
		"csv-status":     "complete",
		"csv-deviceId":   device.UUID,
		"csv-deviceIP":   device.DeviceID,
		"csv-host-name":  device.HostName,
		"csv-templateId": templateID,
	}
}
