package transport

import (
	"regexp"
	"strconv"
	"strings"
)

// Known-defective beacon implementations. Affected iOS and older
// macOS/Safari builds silently drop or duplicate beacon payloads, so the
// fast path is disabled for them and batches go through plain requests.
//
// The detection is a best-effort heuristic over representative user-agent
// strings, not an exact version-boundary check.
var (
	iosVersionPattern   = regexp.MustCompile(`(?i)(?:iphone|ipad|ipod).*? os (\d+)_`)
	macosVersionPattern = regexp.MustCompile(`Mac OS X 10[_.](\d+)`)
)

// Version boundaries of the defect. iOS builds through major 13 and
// macOS builds through 10.14 carry the broken beacon implementation.
const (
	maxDefectiveIOSMajor   = 13
	maxDefectiveMacOSMinor = 14
)

// BeaconDenied reports whether the user agent is on the beacon defect
// denylist.
//
// Parameters:
//   - userAgent: The host's user-agent string (empty never matches)
//
// Returns:
//   - bool: true if the beacon fast path must not be used
func BeaconDenied(userAgent string) bool {
	if userAgent == "" {
		return false
	}

	if m := iosVersionPattern.FindStringSubmatch(userAgent); m != nil {
		if major, err := strconv.Atoi(m[1]); err == nil && major <= maxDefectiveIOSMajor {
			return true
		}
	}

	// The macOS defect is specific to Safari; other engines on the same
	// OS ship their own beacon implementation.
	if strings.Contains(userAgent, "Safari") && !strings.Contains(userAgent, "Chrome") {
		if m := macosVersionPattern.FindStringSubmatch(userAgent); m != nil {
			if minor, err := strconv.Atoi(m[1]); err == nil && minor <= maxDefectiveMacOSMinor {
				return true
			}
		}
	}

	return false
}
