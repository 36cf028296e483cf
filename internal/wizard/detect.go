package wizard

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/sikenali/DTOLPK/internal/cache"
	"github.com/sikenali/DTOLPK/internal/compose"
)

// DetectionResult holds what was auto-detected in the working directory.
type DetectionResult struct {
	DockerAvailable bool
	LzcCLIAvailable bool
	ComposeFiles    []string
	Icons           []string
	CacheFound      bool
}

// Detector abstracts filesystem and path lookups for testing.
type Detector interface {
	LookPath(name string) (string, error)
	Stat(path string) (os.FileInfo, error)
	Glob(pattern string) ([]string, error)
}

// OSDetector uses the real OS for detection.
type OSDetector struct{}

func (OSDetector) LookPath(name string) (string, error) { return exec.LookPath(name) }
func (OSDetector) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }
func (OSDetector) Glob(pattern string) ([]string, error) { return filepath.Glob(pattern) }

var iconPatterns = []string{"icon.*", "logo.*", "favicon.*"}

var iconExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".svg": true, ".webp": true, ".ico": true}

// Detect scans the current directory for compose files, icons and the
// external tools image handling relies on.
func Detect(d Detector) DetectionResult {
	if d == nil {
		d = OSDetector{}
	}

	result := DetectionResult{}

	if _, err := d.LookPath("docker"); err == nil {
		result.DockerAvailable = true
	}
	if _, err := d.LookPath("lzc-cli"); err == nil {
		result.LzcCLIAvailable = true
	}

	for _, name := range compose.DefaultFiles {
		if info, err := d.Stat(name); err == nil && !info.IsDir() {
			result.ComposeFiles = append(result.ComposeFiles, name)
		}
	}

	seen := map[string]bool{}
	for _, pattern := range iconPatterns {
		matches, err := d.Glob(pattern)
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			if seen[m] || !iconExts[filepath.Ext(m)] {
				continue
			}
			seen[m] = true
			result.Icons = append(result.Icons, m)
		}
	}

	if _, err := d.Stat(cache.FileName); err == nil {
		result.CacheFound = true
	}

	return result
}
