package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"demo", "demo"},
		{"uptime-kuma", "uptime-kuma"},
		{"my app", "my-app"},
		{"node.js", "node.js"},
		{"path/to/thing", "path-to-thing"},
		{"special@chars!", "specialchars"},
		{"", "unknown"},
		{"-._", "unknown"},
		{"MixedCase", "mixedcase"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeID(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "image_web", CacheKey("image", "web"))
	assert.Equal(t, "volume_web_/data", CacheKey("volume", "web", "/data"))
}
