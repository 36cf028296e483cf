package cmd

import (
	"testing"

	"github.com/sikenali/DTOLPK/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFindings(t *testing.T) {
	tests := []struct {
		name      string
		detection wizard.DetectionResult
		found     map[string]bool
		details   map[string]string
	}{
		{
			name: "everything present",
			detection: wizard.DetectionResult{
				DockerAvailable: true,
				LzcCLIAvailable: true,
				ComposeFiles:    []string{"docker-compose.yml", "compose.yaml"},
				Icons:           []string{"icon.png"},
				CacheFound:      true,
			},
			found: map[string]bool{"compose": true, "icon": true, "docker": true, "lzc-cli": true, "answer cache": true},
			details: map[string]string{
				"compose": "docker-compose.yml, compose.yaml",
				"icon":    "icon.png",
				"docker":  "in PATH",
			},
		},
		{
			name:      "empty directory",
			detection: wizard.DetectionResult{},
			found:     map[string]bool{"compose": false, "icon": false, "docker": false, "lzc-cli": false, "answer cache": false},
			details: map[string]string{
				"compose":      "none found",
				"icon":         "none found",
				"answer cache": "none",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scanFindings(tt.detection)
			require.Len(t, got, len(tt.found))
			for _, f := range got {
				assert.Equal(t, tt.found[f.name], f.found, f.name)
				if want, ok := tt.details[f.name]; ok {
					assert.Equal(t, want, f.detail, f.name)
				}
			}
		})
	}
}
