// Package settings reads tenant settings. Values are stored untyped; all
// coercion to typed values happens here, with a fallback default.
package settings

import (
	"time"

	"github.com/spf13/cast"
)

const (
	KeyScanCooldownSeconds = "scan_cooldown_seconds"

	DefaultCooldown = 30 * time.Second
)

// Cooldown coerces the scan cooldown out of a settings map.
// Missing or malformed values fall back to DefaultCooldown.
func Cooldown(m map[string]string) time.Duration {
	raw, ok := m[KeyScanCooldownSeconds]
	if !ok {
		return DefaultCooldown
	}
	secs, err := cast.ToIntE(raw)
	if err != nil || secs < 0 {
		return DefaultCooldown
	}
	return time.Duration(secs) * time.Second
}
