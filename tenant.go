// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path"
	"regexp"
)

// Tenant is a customer partition on a multi-tenant Manager
type Tenant struct {
	Name            string `json:"name"`
	Desc            string `json:"desc"`
	OrgName         string `json:"orgName"`
	Subdomain       string `json:"subDomain"`
	TenantID        string `json:"tenantId,omitempty"`
	FlakeID         int64  `json:"flakeId,omitempty"`
	WANEdgeForecast int    `json:"wanEdgeForecast,omitempty"`
	State           string `json:"state,omitempty"`
}

// GetTenants lists the tenants of a multi-tenant Manager
func (c *Client) GetTenants(ctx context.Context) ([]Tenant, error) {
	res, err := c.Get(ctx, "/dataservice/tenant")
	if err != nil {
		return nil, err
	}
	return DataSequence[Tenant](res, DefaultSourceKey)
}

// ImportInfo is returned when a tenant data import is started
type ImportInfo struct {
	ProcessID         string `json:"processId"`
	MigrationTokenURL string `json:"migrationTokenURL"`
}

// MigrationID extracts the migration identifier from the token URL
func (i ImportInfo) MigrationID() (string, error) {
	tokenURL, err := url.Parse(i.MigrationTokenURL)
	if err != nil {
		return "", fmt.Errorf("invalid migration token URL %q: %w", i.MigrationTokenURL, err)
	}
	migrationID := tokenURL.Query().Get("migrationId")
	if migrationID == "" {
		return "", fmt.Errorf("migration token URL %q carries no migration id", i.MigrationTokenURL)
	}
	return migrationID, nil
}

// exportFilePattern locates the export archive path in the final
// activity line of the export task
var exportFilePattern = regexp.MustCompile(`file location: (.*)`)

// ExportTenant starts the export of single-tenant deployment data.
// Executed on the migrated single-tenant Manager.
func (c *Client) ExportTenant(ctx context.Context, tenant Tenant) (*Task, error) {
	body := Body{}.
		Set("name", tenant.Name).
		Set("desc", tenant.Desc).
		Set("orgName", tenant.OrgName).
		Set("subDomain", tenant.Subdomain)
	if tenant.WANEdgeForecast > 0 {
		body = body.Set("wanEdgeForecast", tenant.WANEdgeForecast)
	}
	payload, err := body.String()
	if err != nil {
		return nil, err
	}

	res, err := c.Post(ctx, "/tenantmigration/export", payload)
	if err != nil {
		return nil, err
	}
	processID := res.Get("processId").String()
	if processID == "" {
		return nil, &TaskNotRegisteredError{Action: "tenant export"}
	}
	return c.Task(processID), nil
}

// ExportFileName extracts the export archive name from a finished export
// task. The Manager reports the path only as free text in the last
// activity line.
func ExportFileName(result TaskResult) (string, error) {
	if len(result.SubTasks) == 0 || len(result.SubTasks[0].Activity) == 0 {
		return "", fmt.Errorf("export task reported no activity")
	}
	activity := result.SubTasks[0].Activity
	match := exportFilePattern.FindStringSubmatch(activity[len(activity)-1])
	if match == nil {
		return "", fmt.Errorf("file location not found in activity %q", activity[len(activity)-1])
	}
	return path.Base(match[1]), nil
}

// DownloadTenantData downloads an exported tenant archive
func (c *Client) DownloadTenantData(ctx context.Context, remoteFilename string) ([]byte, error) {
	res, err := c.Get(ctx, "/tenantmigration/download/"+remoteFilename, NoLogPayload)
	if err != nil {
		return nil, err
	}
	return []byte(res.RawBody), nil
}

// ImportTenant uploads exported tenant data into a multi-tenant Manager
// and starts the import process. Executed on the target multi-tenant
// Manager.
func (c *Client) ImportTenant(ctx context.Context, data io.Reader, filename string) (*Task, ImportInfo, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, ImportInfo{}, err
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, ImportInfo{}, err
	}
	if err := writer.Close(); err != nil {
		return nil, ImportInfo{}, err
	}

	res, err := c.Post(ctx, "/tenantmigration/import", buf.String(),
		Header("Content-Type", writer.FormDataContentType()), NoLogPayload)
	if err != nil {
		return nil, ImportInfo{}, err
	}
	info, err := DataObject[ImportInfo](res, "")
	if err != nil {
		return nil, ImportInfo{}, err
	}
	if info.ProcessID == "" {
		return nil, ImportInfo{}, &TaskNotRegisteredError{Action: "tenant import"}
	}
	return c.Task(info.ProcessID), info, nil
}

// MigrationToken fetches the migration token for an import identified by
// migration id. Executed on the target multi-tenant Manager.
func (c *Client) MigrationToken(ctx context.Context, migrationID string) (string, error) {
	res, err := c.Get(ctx, "/tenantmigration/migrationToken", Query("migrationId", migrationID))
	if err != nil {
		return "", err
	}
	return res.RawBody, nil
}

// MigrateNetwork starts the overlay migration using a previously
// obtained migration token. Executed on the single-tenant Manager.
func (c *Client) MigrateNetwork(ctx context.Context, token string) (*Task, error) {
	res, err := c.Post(ctx, "/tenantmigration/networkMigration", token)
	if err != nil {
		return nil, err
	}
	processID := res.Get("processId").String()
	if processID == "" {
		return nil, &TaskNotRegisteredError{Action: "network migration"}
	}
	return c.Task(processID), nil
}

// MigrateTenant migrates a single-tenant overlay into a multi-tenant
// deployment:
//
//  1. Export the deployment data from the single-tenant Manager.
//  2. Download the export archive when the task succeeds.
//  3. Import the archive on the multi-tenant Manager.
//  4. Obtain the migration token for the finished import.
//  5. Start the network migration on the single-tenant Manager.
//
// All artifacts are kept in memory.
func MigrateTenant(ctx context.Context, single, multi *Client, tenant Tenant) error {
	single.logger.Info("Exporting tenant", "tenant", tenant.Name)
	exportTask, err := single.ExportTenant(ctx, tenant)
	if err != nil {
		return err
	}
	exportResult, err := exportTask.WaitForCompleted(ctx)
	if err != nil {
		return err
	}
	if !exportResult.Result {
		return fmt.Errorf("tenant export task %s did not succeed", exportTask.ID)
	}
	remoteFilename, err := ExportFileName(exportResult)
	if err != nil {
		return err
	}

	single.logger.Info("Downloading tenant export", "file", remoteFilename)
	archive, err := single.DownloadTenantData(ctx, remoteFilename)
	if err != nil {
		return err
	}

	multi.logger.Info("Importing tenant data", "file", remoteFilename)
	importTask, importInfo, err := multi.ImportTenant(ctx, bytes.NewReader(archive), remoteFilename)
	if err != nil {
		return err
	}
	importResult, err := importTask.WaitForCompleted(ctx)
	if err != nil {
		return err
	}
	if !importResult.Result {
		return fmt.Errorf("tenant import task %s did not succeed", importTask.ID)
	}

	migrationID, err := importInfo.MigrationID()
	if err != nil {
		return err
	}
	token, err := multi.MigrationToken(ctx, migrationID)
	if err != nil {
		return err
	}

	single.logger.Info("Starting network migration", "migration_id", migrationID)
	migrateTask, err := single.MigrateNetwork(ctx, token)
	if err != nil {
		return err
	}
	migrateResult, err := migrateTask.WaitForCompleted(ctx)
	if err != nil {
		return err
	}
	if !migrateResult.Result {
		return fmt.Errorf("network migration task %s did not succeed", migrateTask.ID)
	}
	single.logger.Info("Tenant migration completed", "tenant", tenant.Name)
	return nil
}
