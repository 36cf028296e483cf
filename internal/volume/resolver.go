// Package volume maps Compose bind mounts into the app sandbox.
package volume

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sikenali/DTOLPK/internal/decide"
	"github.com/sikenali/DTOLPK/internal/model"
	"github.com/sikenali/DTOLPK/internal/util"
	"go.uber.org/zap"
)

var namedVolumeRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Detector abstracts filesystem lookups for testing.
type Detector interface {
	Stat(path string) (os.FileInfo, error)
}

// OSDetector uses the real filesystem.
type OSDetector struct{}

func (OSDetector) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

// Resolver turns bind mounts into sandbox-safe "source:target" strings.
type Resolver struct {
	Layout   model.Layout
	Dir      string // compose file directory
	Decider  decide.Decider
	Detector Detector
	Logger   *zap.Logger
}

// IsNamedVolume reports whether source is a named volume token rather than
// a path.
func IsNamedVolume(source string) bool {
	if source == "" || !namedVolumeRe.MatchString(source) {
		return false
	}
	return !strings.HasPrefix(source, ".")
}

// Resolve maps one mount of service. ok is false when the mount is skipped.
func (r *Resolver) Resolve(ctx context.Context, service string, m model.BindMount) (bind string, ok bool, err error) {
	if !path.IsAbs(m.Target) {
		return "", false, &model.ValidationError{
			Field:   fmt.Sprintf("services.%s.volumes", service),
			Message: fmt.Sprintf("target %q is not an absolute path", m.Target),
		}
	}

	var (
		c       string
		options []string
		rel     string
	)
	switch {
	case m.Anonymous() || IsNamedVolume(m.Source):
		c = decide.CaseUnmanaged
		options = []string{decide.ActionData, decide.ActionHome, decide.ActionSkip}
	case r.Layout.InSandbox(m.Source):
		return join(path.Clean(m.Source), m.Target), true, nil
	default:
		var inside bool
		rel, inside = r.existing(m.Source)
		if inside {
			c = decide.CaseExisting
			options = []string{decide.ActionContent, decide.ActionClassify, decide.ActionHome, decide.ActionSkip}
		} else {
			c = decide.CaseOther
			options = []string{decide.ActionClassify, decide.ActionData, decide.ActionHome, decide.ActionSkip}
		}
	}

	action, err := r.Decider.Decide(ctx, decide.Question{
		Kind:    decide.KindVolumeAction,
		Key:     util.CacheKey("volume", service, m.Target),
		Service: service,
		Subject: m.Source,
		Target:  m.Target,
		Case:    c,
		Title:   title(service, m),
		Options: actionOptions(options, r.Layout, service, m, rel),
		Default: options[0],
	})
	if err != nil {
		return "", false, err
	}

	var source string
	switch action {
	case decide.ActionContent:
		source = r.Layout.ContentPath(rel)
	case decide.ActionClassify:
		source = Classify(r.Layout, service, m.Source, m.Target)
	case decide.ActionData:
		source = path.Join(r.Layout.DataRoot, path.Base(m.Target))
	case decide.ActionHome:
		source, err = r.home(ctx, service, m)
		if err != nil {
			return "", false, err
		}
	case decide.ActionSkip:
		r.logger().Info("skipping mount", zap.String("service", service), zap.String("source", m.Source), zap.String("target", m.Target))
		return "", false, nil
	default:
		return "", false, fmt.Errorf("unknown volume action %q", action)
	}

	r.logger().Debug("mount resolved",
		zap.String("service", service),
		zap.String("source", m.Source),
		zap.String("action", action),
		zap.String("bind", source))
	return join(source, m.Target), true, nil
}

// existing reports whether source names a file or directory inside the
// compose directory, and its slash-separated path relative to it.
func (r *Resolver) existing(source string) (string, bool) {
	if source == "" || r.Dir == "" {
		return "", false
	}
	p := util.ExpandPath(source)
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.Dir, p)
	}
	rel, err := filepath.Rel(filepath.Clean(r.Dir), p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if _, err := r.detector().Stat(p); err != nil {
		return "", false
	}
	if rel == "." {
		rel = ""
	}
	return filepath.ToSlash(rel), true
}

func (r *Resolver) home(ctx context.Context, service string, m model.BindMount) (string, error) {
	sub, err := r.Decider.Decide(ctx, decide.Question{
		Kind:     decide.KindHomeSubdir,
		Key:      util.CacheKey("home", service, m.Target),
		Service:  service,
		Subject:  m.Source,
		Target:   m.Target,
		Title:    fmt.Sprintf("[%s] Folder under the user's documents for %s", service, m.Target),
		Default:  path.Base(m.Target),
		Validate: ValidateSubdir,
	})
	if err != nil {
		return "", err
	}
	if err := ValidateSubdir(sub); err != nil {
		return "", err
	}
	return path.Join(r.Layout.HomeRoot, sub), nil
}

// ValidateSubdir checks a user documents folder name.
func ValidateSubdir(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return &model.ValidationError{Field: "home_subdir", Message: "folder name is empty"}
	}
	if strings.ContainsAny(s, `/\`) {
		return &model.ValidationError{Field: "home_subdir", Message: fmt.Sprintf("folder name %q contains a path separator", s), Suggestion: "use a single folder name"}
	}
	if s == "." || s == ".." {
		return &model.ValidationError{Field: "home_subdir", Message: fmt.Sprintf("folder name %q is not allowed", s)}
	}
	return nil
}

// Classify picks a per-service directory under the var root from keywords
// in the source path.
func Classify(l model.Layout, service, source, target string) string {
	lower := strings.ToLower(source)
	dir := path.Join(l.VarRoot, service)
	switch {
	case strings.Contains(lower, "config"):
		return path.Join(dir, "config")
	case strings.Contains(lower, "log"):
		return path.Join(dir, "logs")
	case strings.Contains(lower, "data"):
		return path.Join(dir, "data")
	}
	base := path.Base(filepath.ToSlash(source))
	if base == "." || base == "/" || base == ".." || base == "~" {
		base = path.Base(target)
	}
	return path.Join(dir, base)
}

func join(source, target string) string {
	return source + ":" + target
}

func title(service string, m model.BindMount) string {
	if m.Anonymous() {
		return fmt.Sprintf("[%s] How should the anonymous volume %s be mounted?", service, m.Target)
	}
	return fmt.Sprintf("[%s] How should %s → %s be mounted?", service, m.Source, m.Target)
}

func actionOptions(actions []string, l model.Layout, service string, m model.BindMount, rel string) []decide.Option {
	opts := make([]decide.Option, 0, len(actions))
	for _, a := range actions {
		var label string
		switch a {
		case decide.ActionContent:
			label = "Package the existing content (" + l.ContentPath(rel) + ")"
		case decide.ActionClassify:
			label = "Persistent app directory (" + Classify(l, service, m.Source, m.Target) + ")"
		case decide.ActionData:
			label = "Empty directory (" + path.Join(l.DataRoot, path.Base(m.Target)) + ")"
		case decide.ActionHome:
			label = "Folder in the user's documents (" + l.HomeRoot + "/...)"
		case decide.ActionSkip:
			label = "Skip this mount"
		}
		opts = append(opts, decide.Option{Label: label, Value: a})
	}
	return opts
}

func (r *Resolver) detector() Detector {
	if r.Detector == nil {
		return OSDetector{}
	}
	return r.Detector
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
