// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package sdwan provides a simple, fluent API for the Cisco Catalyst SD-WAN
// Manager (formerly vManage) REST API.
//
// The library handles session-cookie based authentication including automatic
// re-login when the Manager rotates the session cookie, multitenancy (provider,
// tenant and provider-as-tenant views), response envelope parsing, and polling
// of the asynchronous tasks that back every non-trivial management action
// (software install, partition changes, reboot, template attach, tenant
// migration, certificate push).
//
// # Quick Start
//
// Create a client and log in:
//
//	client, err := sdwan.NewClient(
//	    "10.0.1.200",
//	    sdwan.Username("admin"),
//	    sdwan.Password("secret"),
//	    sdwan.Insecure(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx := context.Background()
//	if err := client.Login(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	// Query devices
//	res, err := client.Get(ctx, "/dataservice/device")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	hostname := res.Data().Get("0.host-name").String()
//
// # Asynchronous Tasks
//
// Management actions return a task id. A Task handle polls the action status
// endpoint until every sub-task reaches a terminal state:
//
//	devices, _ := client.GetDevices(ctx)
//	vsmarts := FilterByPersonality(devices, sdwan.PersonalityVSmart)
//
//	task, err := client.Software().Install(ctx, vsmarts, sdwan.InstallParams{
//	    ImageVersion: "20.12.2",
//	    Reboot:       true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := task.WaitForCompleted(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Result {
//	    log.Fatal("install failed on at least one device")
//	}
//
// # JSON Manipulation
//
// Use the Body builder for constructing JSON payloads:
//
//	body := sdwan.Body{}.
//	    Set("action", "reboot").
//	    Set("deviceType", "controller")
//	res, err := client.Post(ctx, "/dataservice/device/action/reboot", body.Res())
//
// # Multitenancy
//
// A provider user can act on behalf of a tenant by supplying the tenant
// subdomain. The client resolves the subdomain to a tenant id, obtains a
// virtual session token and attaches it to every subsequent request:
//
//	client, _ := sdwan.NewClient(
//	    "manager.example.com",
//	    sdwan.Username("provider-admin"),
//	    sdwan.Password("secret"),
//	    sdwan.Subdomain("alpha.tenant.net"),
//	)
//
// # Concurrency
//
// A client is a single logical session: requests on one client are strictly
// serialized and must not be issued concurrently from multiple goroutines.
// Callers that need parallelism create independent clients.
//
// # References
//
//   - Catalyst SD-WAN Manager API: https://developer.cisco.com/docs/sdwan/
//   - gjson: https://github.com/tidwall/gjson
//   - sjson: https://github.com/tidwall/sjson
package sdwan
