// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected Version
	}{
		{"20.12.0", Version{Major: 20, Minor: 12}},
		{"20.12.0-144", Version{Major: 20, Minor: 12, Post: 144}},
		{"20.12.0-144-li", Version{Major: 20, Minor: 12, Post: 144}},
		{"smart-li-20.13.999-3077", Version{Major: 20, Minor: 13, Micro: 999, Post: 3077}},
		{"vmanage-20.9", Version{Major: 20, Minor: 9}},
		{"20", Version{Major: 20}},
		{"20.6.3.1", Version{Major: 20, Minor: 6, Micro: 3}},
		{"  20.6.3 ", Version{Major: 20, Minor: 6, Micro: 3}},
		{"Not a version.", NullVersion()},
		{"", NullVersion()},
		{"li-smart", NullVersion()},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseVersion(tt.input))
		})
	}
}

func TestParseVersionRoundTrip(t *testing.T) {
	versions := []Version{
		{Major: 20, Minor: 12},
		{Major: 20, Minor: 12, Micro: 1},
		{Major: 20, Minor: 13, Micro: 999, Post: 3077},
	}
	for _, v := range versions {
		t.Run(v.String(), func(t *testing.T) {
			assert.Equal(t, v, ParseVersion(v.String()))
		})
	}
}

func TestParseAPIVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected Version
	}{
		{"20.12.0-111-xy", Version{Major: 20, Minor: 12}},
		{"20.6.3", Version{Major: 20, Minor: 6}},
		{"20", Version{Major: 20}},
		{"garbage", NullVersion()},
		{"", NullVersion()},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseAPIVersion(tt.input))
		})
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "20.12.0", Version{Major: 20, Minor: 12}.String())
	assert.Equal(t, "20.12.1-144", Version{Major: 20, Minor: 12, Micro: 1, Post: 144}.String())
	assert.Equal(t, "NullVersion", NullVersion().String())
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Version
		expected int
	}{
		{"equal", Version{Major: 20, Minor: 12}, Version{Major: 20, Minor: 12}, 0},
		{"major wins", Version{Major: 21}, Version{Major: 20, Minor: 99, Micro: 99}, 1},
		{"minor wins", Version{Major: 20, Minor: 13}, Version{Major: 20, Minor: 12, Micro: 9}, 1},
		{"micro wins", Version{Major: 20, Minor: 12, Micro: 2}, Version{Major: 20, Minor: 12, Micro: 1}, 1},
		{"post wins", Version{Major: 20, Minor: 12, Post: 2}, Version{Major: 20, Minor: 12, Post: 1}, 1},
		{"null below all", NullVersion(), Version{}, -1},
		{"null equals null", NullVersion(), NullVersion(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.expected, tt.b.Compare(tt.a))
		})
	}
}

func TestVersionAtLeast(t *testing.T) {
	threshold := Version{Major: 20, Minor: 12}
	assert.True(t, Version{Major: 20, Minor: 12}.AtLeast(threshold))
	assert.True(t, Version{Major: 20, Minor: 13}.AtLeast(threshold))
	assert.False(t, Version{Major: 20, Minor: 11, Micro: 9}.AtLeast(threshold))
	assert.False(t, NullVersion().AtLeast(threshold))
}

func TestVersionSameRelease(t *testing.T) {
	assert.True(t, Version{Major: 20, Minor: 12}.SameRelease(Version{Major: 20, Minor: 12, Micro: 4}))
	assert.False(t, Version{Major: 20, Minor: 12}.SameRelease(Version{Major: 20, Minor: 13}))
	assert.False(t, NullVersion().SameRelease(NullVersion()))
}
