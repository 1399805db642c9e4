package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldown(t *testing.T) {
	cases := []struct {
		name string
		in   map[string]string
		want time.Duration
	}{
		{"missing key", map[string]string{}, DefaultCooldown},
		{"plain int", map[string]string{KeyScanCooldownSeconds: "45"}, 45 * time.Second},
		{"zero disables", map[string]string{KeyScanCooldownSeconds: "0"}, 0},
		{"garbage falls back", map[string]string{KeyScanCooldownSeconds: "soon"}, DefaultCooldown},
		{"negative falls back", map[string]string{KeyScanCooldownSeconds: "-5"}, DefaultCooldown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Cooldown(tc.in))
		})
	}
}
