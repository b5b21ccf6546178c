// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestBodySet(t *testing.T) {
	body := Body{}.
		Set("action", "reboot").
		Set("deviceType", "controller").
		Set("devices.0.deviceId", "uuid-1").
		Set("devices.0.deviceIP", "10.0.0.1").
		Set("input.reboot", true)

	payload, err := body.String()
	require.NoError(t, err)
	assert.Equal(t, "reboot", gjson.Get(payload, "action").String())
	assert.Equal(t, "uuid-1", gjson.Get(payload, "devices.0.deviceId").String())
	assert.True(t, gjson.Get(payload, "input.reboot").Bool())
}

func TestBodySetSlice(t *testing.T) {
	payload, err := Body{}.Set("devices", []map[string]string{
		{"deviceId": "uuid-1"},
		{"deviceId": "uuid-2"},
	}).String()
	require.NoError(t, err)
	assert.Len(t, gjson.Get(payload, "devices").Array(), 2)
	assert.Equal(t, "uuid-2", gjson.Get(payload, "devices.1.deviceId").String())
}

func TestBodySetRaw(t *testing.T) {
	body := Body{}.
		Set("query.condition", "AND").
		SetRaw("query.rules", `[]`).
		Set("query.rules.-1", map[string]any{"field": "severity", "type": "severity"})

	payload, err := body.String()
	require.NoError(t, err)
	assert.Equal(t, "severity", gjson.Get(payload, "query.rules.0.field").String())
}

func TestBodyDelete(t *testing.T) {
	payload, err := Body{}.
		Set("a", "1").
		Set("b", "2").
		Delete("a").
		String()
	require.NoError(t, err)
	assert.False(t, gjson.Get(payload, "a").Exists())
	assert.Equal(t, "2", gjson.Get(payload, "b").String())
}

func TestBodyErrorPropagation(t *testing.T) {
	body := Body{}.
		Set("", "value").
		Set("later", "ignored")

	require.Error(t, body.Err())
	assert.Empty(t, body.Res())

	_, err := body.String()
	assert.Error(t, err)
}
