package util

import (
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// ExpandPath expands a leading ~ to the user's home directory and cleans
// the result. Paths it cannot expand are returned cleaned but otherwise
// unchanged.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return filepath.Clean(expanded)
}
