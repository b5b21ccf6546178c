// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package sdwan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version represents a normalized Manager software or API version as a
// comparable (major, minor, micro, post) tuple.
//
// The zero value is NOT the null version; use NullVersion() to obtain the
// sentinel that compares lower than any real version.
type Version struct {
	Major int
	Minor int
	Micro int

	// Post is the vendor build number appended after the release tuple,
	// e.g. 144 in "20.12.0-144-li"
	Post int

	null bool
}

// NullVersion returns the sentinel version that compares strictly lower
// than every real version. It is produced by ParseVersion for strings that
// cannot be interpreted as a version.
func NullVersion() Version {
	return Version{null: true}
}

// IsNull reports whether the version is the null sentinel
func (v Version) IsNull() bool {
	return v.null
}

// String returns the canonical string form of the version. The null
// version renders as "NullVersion". Parsing the returned string yields a
// version equal to the receiver.
func (v Version) String() string {
	if v.null {
		return "NullVersion"
	}
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
	if v.Post > 0 {
		s += fmt.Sprintf("-%d", v.Post)
	}
	return s
}

// Compare returns -1, 0 or 1 when v is lower than, equal to or greater
// than other. The null version is lower than every real version and equal
// to itself.
func (v Version) Compare(other Version) int {
	if v.null || other.null {
		switch {
		case v.null && other.null:
			return 0
		case v.null:
			return -1
		default:
			return 1
		}
	}
	a := [4]int{v.Major, v.Minor, v.Micro, v.Post}
	b := [4]int{other.Major, other.Minor, other.Micro, other.Post}
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// GreaterThan reports whether v is strictly greater than other
func (v Version) GreaterThan(other Version) bool {
	return v.Compare(other) > 0
}

// LessThan reports whether v is strictly lower than other
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// AtLeast reports whether v is greater than or equal to other
func (v Version) AtLeast(other Version) bool {
	return v.Compare(other) >= 0
}

// SameRelease reports whether both versions share the same major and minor
// release pair. Always false when either side is the null version.
func (v Version) SameRelease(other Version) bool {
	if v.null || other.null {
		return false
	}
	return v.Major == other.Major && v.Minor == other.Minor
}

var numericPart = regexp.MustCompile(`\d.*\d`)

// ParseVersion parses a Manager version string which may contain vendor
// prefixes and suffixes. Strings observed in the wild include
// "20.12.0-144-li" (GET /client/server) and "smart-li-20.13.999-3077"
// (software image listing). The strategy is to iterate by removing
// potentially problematic parts until a version parses; strings with no
// usable version yield the null version.
//
//	ParseVersion("20.12.0-144-li")        // 20.12.0-144
//	ParseVersion("smart-li-20.13.999-3077") // 20.13.999-3077
//	ParseVersion("Not a version.")        // NullVersion
func ParseVersion(version string) Version {
	for _, candidate := range []string{version, numericPart.FindString(version)} {
		if v, ok := parseCandidate(candidate); ok {
			return v
		}
	}
	return NullVersion()
}

// ParseAPIVersion parses the given version string keeping only the major
// and minor part, which is the granularity at which API behavior changes.
// Strings with no usable version yield the null version.
//
//	ParseAPIVersion("20.12.0-111-xy") // 20.12.0
//	ParseAPIVersion("20")             // 20.0.0
//	ParseAPIVersion("Not a version.") // NullVersion
func ParseAPIVersion(version string) Version {
	parsed := ParseVersion(version)
	if parsed.IsNull() {
		return NullVersion()
	}
	return Version{Major: parsed.Major, Minor: parsed.Minor}
}

// parseCandidate interprets one candidate string as a version. The first
// dash-separated token that is a dotted numeric release is the release
// tuple; an immediately following all-digit token is the post number.
func parseCandidate(candidate string) (Version, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return Version{}, false
	}
	tokens := strings.Split(candidate, "-")
	for i, token := range tokens {
		release, ok := parseRelease(token)
		if !ok {
			continue
		}
		if i+1 < len(tokens) {
			if post, err := strconv.Atoi(tokens[i+1]); err == nil && post >= 0 {
				release.Post = post
			}
		}
		return release, true
	}
	return Version{}, false
}

// parseRelease parses a dotted numeric release like "20.12.0". One to
// three segments are accepted; missing segments default to zero.
func parseRelease(s string) (Version, bool) {
	if s == "" {
		return Version{}, false
	}
	segments := strings.Split(s, ".")
	if len(segments) > 3 {
		segments = segments[:3]
	}
	parts := make([]int, 0, 3)
	for _, segment := range segments {
		n, err := strconv.Atoi(segment)
		if err != nil || n < 0 {
			return Version{}, false
		}
		parts = append(parts, n)
	}
	for len(parts) < 3 {
		parts = append(parts, 0)
	}
	return Version{Major: parts[0], Minor: parts[1], Micro: parts[2]}, true
}
