// Package image settles the image reference each service ships with,
// pulling, building and pushing through docker and lzc-cli when asked to.
package image

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sikenali/DTOLPK/internal/cache"
	"github.com/sikenali/DTOLPK/internal/decide"
	"github.com/sikenali/DTOLPK/internal/model"
	"github.com/sikenali/DTOLPK/internal/util"
	"go.uber.org/zap"
)

// RegistryKey is the answer cache key of the last custom registry used.
const RegistryKey = "registry"

var uploadedRe = regexp.MustCompile(`uploaded:\s+(\S+)`)

// Resolver decides and produces the final image of a service.
type Resolver struct {
	Runner  Runner
	Decider decide.Decider
	Store   cache.Store
	Package string // app package; its last segment names pushed repositories
	Dir     string // build contexts resolve against it
	Logger  *zap.Logger
	Now     func() time.Time
}

// Resolve returns the image reference to write into the manifest.
func (r *Resolver) Resolve(ctx context.Context, svc model.ComposeService) (string, error) {
	hasImage, hasBuild := svc.Image != "", svc.Build != nil

	switch {
	case !hasImage && !hasBuild:
		return "", &model.MissingImageError{Service: svc.Name, Reason: "neither image nor build is set"}
	case hasImage && hasBuild:
		src, err := r.Decider.Decide(ctx, decide.Question{
			Kind:    decide.KindImageSource,
			Key:     util.CacheKey(svc.Name, "build_or_image"),
			Service: svc.Name,
			Subject: svc.Image,
			Title:   fmt.Sprintf("[%s] The service has both build and image. Which one should be used?", svc.Name),
			Options: []decide.Option{
				{Label: "Use the image (" + svc.Image + ")", Value: decide.SourceImage},
				{Label: "Build from " + svc.Build.Context, Value: decide.SourceBuild},
			},
			Default: decide.SourceImage,
		})
		if err != nil {
			return "", err
		}
		if src == decide.SourceBuild {
			return r.build(ctx, svc)
		}
		return r.image(ctx, svc)
	case hasBuild:
		ok, err := r.confirm(ctx, decide.Question{
			Kind:    decide.KindBuild,
			Key:     util.CacheKey("build", svc.Name, "confirm"),
			Service: svc.Name,
			Title:   fmt.Sprintf("[%s] The service has no image. Build it?", svc.Name),
			Default: decide.Yes,
		})
		if err != nil {
			return "", err
		}
		if !ok {
			return "", &model.MissingImageError{Service: svc.Name, Reason: "build was declined"}
		}
		return r.build(ctx, svc)
	default:
		return r.image(ctx, svc)
	}
}

func (r *Resolver) image(ctx context.Context, svc model.ComposeService) (string, error) {
	key := imageKey(svc.Image)
	if ref, ok, err := r.cached(ctx, svc.Name, key); err != nil || ok {
		return ref, err
	}

	target, err := r.pushTarget(ctx, svc.Name, svc.Image, true)
	if err != nil {
		return "", err
	}

	var ref string
	switch target {
	case decide.PushNone:
		return svc.Image, nil
	case decide.PushLazyCat:
		ref, err = r.copyImage(ctx, svc.Image)
	case decide.PushCustom:
		registry, rerr := r.registry(ctx, svc.Name)
		if rerr != nil {
			return "", rerr
		}
		ref = fmt.Sprintf("%s/%s:%s", registry, r.repository(), md5hex(svc.Image))
		err = r.run(ctx, svc.Name,
			[]string{"docker", "pull", svc.Image},
			[]string{"docker", "tag", svc.Image, ref},
			[]string{"docker", "push", ref})
	}
	if err != nil {
		return "", err
	}
	r.remember(key, ref)
	return ref, nil
}

func (r *Resolver) build(ctx context.Context, svc model.ComposeService) (string, error) {
	key := util.CacheKey("build", svc.Name)
	if ref, ok, err := r.cached(ctx, svc.Name, key); err != nil || ok {
		return ref, err
	}

	target, err := r.pushTarget(ctx, svc.Name, svc.Build.Context, false)
	if err != nil {
		return "", err
	}

	hash := md5hex(svc.Name + "_" + r.now().UTC().Format(time.RFC3339Nano))
	tag := "temp-build-" + hash
	if target == decide.PushCustom {
		registry, err := r.registry(ctx, svc.Name)
		if err != nil {
			return "", err
		}
		tag = fmt.Sprintf("%s/%s:%s", registry, r.repository(), hash)
	}

	buildCtx := svc.Build.Context
	if !filepath.IsAbs(buildCtx) {
		buildCtx = filepath.Join(r.Dir, buildCtx)
	}
	args := []string{"docker", "build", "-t", tag}
	if svc.Build.Dockerfile != "" {
		df := svc.Build.Dockerfile
		if !filepath.IsAbs(df) {
			df = filepath.Join(buildCtx, df)
		}
		args = append(args, "-f", df)
	}
	args = append(args, buildCtx)
	if err := r.run(ctx, svc.Name, args); err != nil {
		return "", err
	}

	ref := tag
	switch target {
	case decide.PushCustom:
		err = r.run(ctx, svc.Name, []string{"docker", "push", tag})
	case decide.PushLazyCat:
		ref, err = r.copyImage(ctx, tag)
	case decide.PushNone:
		r.logger().Warn("built image is only available locally", zap.String("service", svc.Name), zap.String("image", tag))
	}
	if err != nil {
		return "", err
	}
	r.remember(key, ref)
	return ref, nil
}

// cached offers a previously produced reference for reuse.
func (r *Resolver) cached(ctx context.Context, service, key string) (string, bool, error) {
	if r.Store == nil {
		return "", false, nil
	}
	ref, ok := r.Store.Get(key)
	if !ok || ref == "" {
		return "", false, nil
	}
	reuse, err := r.confirm(ctx, decide.Question{
		Kind:    decide.KindReuseCached,
		Service: service,
		Subject: ref,
		Title:   fmt.Sprintf("[%s] Reuse the previously pushed image %s?", service, ref),
		Default: decide.Yes,
	})
	if err != nil {
		return "", false, err
	}
	if !reuse {
		return "", false, nil
	}
	r.logger().Info("reusing cached image", zap.String("service", service), zap.String("image", ref))
	return ref, true, nil
}

func (r *Resolver) pushTarget(ctx context.Context, service, subject string, allowNone bool) (string, error) {
	opts := []decide.Option{
		{Label: "Push to a custom registry", Value: decide.PushCustom},
		{Label: "Copy to the LazyCat registry (lzc-cli)", Value: decide.PushLazyCat},
		{Label: "Do not push", Value: decide.PushNone},
	}
	def := decide.PushCustom
	title := fmt.Sprintf("[%s] Where should the built image be pushed?", service)
	if allowNone {
		opts = append([]decide.Option{opts[2]}, opts[:2]...)
		def = decide.PushNone
		title = fmt.Sprintf("[%s] Where should %s be pushed?", service, subject)
	}
	return r.Decider.Decide(ctx, decide.Question{
		Kind:    decide.KindPushTarget,
		Key:     util.CacheKey("push", service),
		Service: service,
		Subject: subject,
		Title:   title,
		Options: opts,
		Default: def,
	})
}

func (r *Resolver) registry(ctx context.Context, service string) (string, error) {
	def := ""
	if r.Store != nil {
		def, _ = r.Store.Get(RegistryKey)
	}
	reg, err := r.Decider.Decide(ctx, decide.Question{
		Kind:     decide.KindRegistry,
		Key:      RegistryKey,
		Service:  service,
		Title:    "Registry address",
		Default:  def,
		Validate: validateRegistry,
	})
	if err != nil {
		return "", err
	}
	if err := validateRegistry(reg); err != nil {
		return "", err
	}
	reg = strings.TrimRight(strings.TrimSpace(reg), "/")
	r.remember(RegistryKey, reg)
	return reg, nil
}

func validateRegistry(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return &model.ValidationError{Field: "images.registry", Message: "registry address is empty", Suggestion: "e.g. registry.example.com/team"}
	}
	if strings.Contains(s, "://") {
		return &model.ValidationError{Field: "images.registry", Message: fmt.Sprintf("registry %q must not include a scheme", s), Suggestion: "drop the http:// or https:// prefix"}
	}
	return nil
}

func (r *Resolver) copyImage(ctx context.Context, ref string) (string, error) {
	r.logger().Info("copying image to the LazyCat registry", zap.String("image", ref))
	out, err := r.Runner.Run(ctx, "lzc-cli", "appstore", "copy-image", ref)
	if err != nil {
		return "", err
	}
	m := uploadedRe.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("lzc-cli appstore copy-image %s: no uploaded image in output", ref)
	}
	return m[1], nil
}

func (r *Resolver) run(ctx context.Context, service string, commands ...[]string) error {
	for _, c := range commands {
		r.logger().Info("running", zap.String("service", service), zap.Strings("command", c))
		if _, err := r.Runner.Run(ctx, c[0], c[1:]...); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) confirm(ctx context.Context, q decide.Question) (bool, error) {
	q.Options = []decide.Option{{Label: "Yes", Value: decide.Yes}, {Label: "No", Value: decide.No}}
	a, err := r.Decider.Decide(ctx, q)
	if err != nil {
		return false, err
	}
	return a == decide.Yes, nil
}

// remember records an answer. Cache failures only cost a future prompt.
func (r *Resolver) remember(key, value string) {
	if r.Store == nil {
		return
	}
	if err := r.Store.Set(key, value); err != nil {
		r.logger().Warn("could not update answer cache", zap.String("key", key), zap.Error(err))
	}
}

func (r *Resolver) repository() string {
	segs := strings.Split(r.Package, ".")
	return util.SanitizeID(segs[len(segs)-1])
}

func (r *Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func imageKey(ref string) string {
	return util.CacheKey("image", strings.NewReplacer("/", "_", ":", "_").Replace(ref))
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
