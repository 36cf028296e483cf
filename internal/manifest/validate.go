package manifest

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/sikenali/DTOLPK/internal/model"
)

var (
	versionRe   = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	segmentRe   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	subdomainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	minOSRe     = regexp.MustCompile(`^(>=|>|<=|<|=)\s*(\d+\.\d+\.\d+)$`)
)

// ValidateVersion checks an X.Y.Z app version.
func ValidateVersion(v string) error {
	if !versionRe.MatchString(v) {
		return &model.ValidationError{Field: "version", Message: fmt.Sprintf("invalid version %q", v), Suggestion: "use X.Y.Z, e.g. 1.0.0"}
	}
	return nil
}

// ValidatePackage checks a dot-separated package id.
func ValidatePackage(p string) error {
	if p == "" {
		return &model.ValidationError{Field: "package", Message: "package is empty", Suggestion: "use a reverse-domain id, e.g. com.example.app"}
	}
	for _, seg := range strings.Split(p, ".") {
		if !segmentRe.MatchString(seg) {
			return &model.ValidationError{Field: "package", Message: fmt.Sprintf("invalid package %q", p), Suggestion: "use dot-separated letters, digits, - and _, e.g. com.example.app"}
		}
	}
	return nil
}

// ValidateMinOSVersion checks an operator plus X.Y.Z, e.g. ">= 1.2.0".
func ValidateMinOSVersion(v string) error {
	v = strings.TrimSpace(v)
	if !minOSRe.MatchString(v) {
		return &model.ValidationError{Field: "min_os_version", Message: fmt.Sprintf("invalid version requirement %q", v), Suggestion: "use an operator and X.Y.Z, e.g. >= 1.0.0"}
	}
	if _, err := semver.NewConstraint(v); err != nil {
		return &model.ValidationError{Field: "min_os_version", Message: fmt.Sprintf("invalid version requirement %q: %v", v, err)}
	}
	return nil
}

// ValidateSubdomain checks a DNS label.
func ValidateSubdomain(s string) error {
	if !subdomainRe.MatchString(s) || len(s) > 63 {
		return &model.ValidationError{Field: "subdomain", Message: fmt.Sprintf("invalid subdomain %q", s), Suggestion: "use lowercase letters, digits and hyphens"}
	}
	return nil
}

// ValidateMime checks a MIME type like text/plain.
func ValidateMime(m string) error {
	if t, sub, ok := strings.Cut(m, "/"); !ok || t == "" || sub == "" {
		return &model.ValidationError{Field: "file_handler.mime", Message: fmt.Sprintf("invalid MIME type %q", m), Suggestion: "e.g. text/plain or image/*"}
	}
	return nil
}

// ValidateApp checks the identity and feature settings of an app.
func ValidateApp(app model.AppSpec) error {
	if strings.TrimSpace(app.Name) == "" {
		return &model.ValidationError{Field: "name", Message: "name is empty"}
	}
	if err := ValidatePackage(app.Package); err != nil {
		return err
	}
	if err := ValidateVersion(app.Version); err != nil {
		return err
	}
	if app.Subdomain != "" {
		if err := ValidateSubdomain(app.Subdomain); err != nil {
			return err
		}
	}
	for _, p := range app.UnsupportedPlatforms {
		if !slices.Contains(model.Platforms, p) {
			return &model.ValidationError{
				Field:      "unsupported_platforms",
				Message:    fmt.Sprintf("unknown platform %q", p),
				Suggestion: "choose from " + strings.Join(model.Platforms, ", "),
			}
		}
	}
	if app.HasVersionRequirement {
		if err := ValidateMinOSVersion(app.MinOSVersion); err != nil {
			return err
		}
	}
	if app.Features.FileHandler {
		if len(app.FileHandler.Mime) == 0 {
			return &model.ValidationError{Field: "file_handler.mime", Message: "no MIME types given"}
		}
		for _, m := range app.FileHandler.Mime {
			if err := ValidateMime(m); err != nil {
				return err
			}
		}
		if !strings.Contains(app.FileHandler.OpenAction, model.FilePlaceholder) {
			return &model.ValidationError{
				Field:      "file_handler.open",
				Message:    fmt.Sprintf("open action %q lacks the %s placeholder", app.FileHandler.OpenAction, model.FilePlaceholder),
				Suggestion: "e.g. /open?file=" + model.FilePlaceholder,
			}
		}
	}
	for _, p := range app.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			return &model.ValidationError{Field: "public_paths", Message: fmt.Sprintf("public path %q must start with /", p)}
		}
	}
	return nil
}
