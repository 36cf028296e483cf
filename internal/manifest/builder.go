// Package manifest builds the platform manifest from normalized Compose
// services, app settings and routes.
package manifest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sikenali/DTOLPK/internal/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ImageResolver settles the image of a service.
type ImageResolver interface {
	Resolve(ctx context.Context, svc model.ComposeService) (string, error)
}

// BindResolver maps a mount to a "source:target" bind. ok is false when
// the mount is skipped.
type BindResolver interface {
	Resolve(ctx context.Context, service string, m model.BindMount) (bind string, ok bool, err error)
}

// Builder assembles manifests. Images and Binds are optional: without them
// services must carry literal images and sandbox-rooted mount sources.
type Builder struct {
	Layout model.Layout
	Images ImageResolver
	Binds  BindResolver
	Logger *zap.Logger
}

// Build produces the manifest. Services are processed in order and the
// first failure aborts the build.
func (b *Builder) Build(ctx context.Context, app model.AppSpec, services []model.ComposeService, routes []model.Route) (*model.Manifest, error) {
	if err := ValidateApp(app); err != nil {
		return nil, err
	}

	var names []string
	for _, s := range services {
		if !s.Reserved() {
			names = append(names, s.Name)
		}
	}

	if len(routes) == 0 && app.AutoRoute {
		if r, ok := DefaultRoute(services); ok {
			b.logger().Info("adding default route", zap.String("service", r.Service), zap.Int("port", r.Port))
			routes = []model.Route{r}
		}
	}

	rr := &routeRenderer{layout: b.Layout, pkg: app.Package, services: names}
	entries, ingress, err := rr.render(routes)
	if err != nil {
		return nil, err
	}

	m := &model.Manifest{
		SDKVersion:  model.SDKVersion,
		Name:        app.Name,
		Package:     app.Package,
		Version:     app.Version,
		Description: app.Description,
		Homepage:    app.Homepage,
		Author:      app.Author,
		License:     app.License,
		Locales:     app.Locales,
		Application: model.Application{
			Subdomain:      Subdomain(app),
			BackgroundTask: app.Features.BackgroundTask,
			MultiInstance:  app.Features.MultiInstance,
			GPUAccel:       app.Features.GPUAccel,
			KVMAccel:       app.Features.KVMAccel,
			USBAccel:       app.Features.USBAccel,
			Routes:         entries,
			Ingress:        ingress,
		},
		Services: map[string]*model.ServiceManifest{},
	}
	if len(app.UnsupportedPlatforms) > 0 {
		m.UnsupportedPlatforms = app.UnsupportedPlatforms
	}
	if app.HasVersionRequirement {
		m.MinOSVersion = strings.TrimSpace(app.MinOSVersion)
	}
	if app.Features.PublicPath {
		m.Application.PublicPath = publicPaths(app.PublicPaths, routes)
	}
	if app.Features.FileHandler {
		m.Application.FileHandler = &model.FileHandler{
			Mime:    app.FileHandler.Mime,
			Actions: model.FileHandlerAct{Open: app.FileHandler.OpenAction},
		}
	}

	for _, svc := range services {
		if svc.Reserved() {
			b.logger().Warn("skipping reserved service", zap.String("service", svc.Name))
			continue
		}
		sm, err := b.service(ctx, svc)
		if err != nil {
			return nil, err
		}
		m.Services[svc.Name] = sm
	}
	return m, nil
}

// Subdomain returns the override or the last package segment.
func Subdomain(app model.AppSpec) string {
	if app.Subdomain != "" {
		return app.Subdomain
	}
	segs := strings.Split(app.Package, ".")
	return segs[len(segs)-1]
}

func (b *Builder) service(ctx context.Context, svc model.ComposeService) (*model.ServiceManifest, error) {
	image := svc.Image
	if b.Images != nil {
		ref, err := b.Images.Resolve(ctx, svc)
		if err != nil {
			return nil, err
		}
		image = ref
	}
	if image == "" {
		return nil, &model.MissingImageError{Service: svc.Name, Reason: "neither image nor build is set"}
	}

	sm := &model.ServiceManifest{
		Image:       image,
		Environment: svc.Environment,
		Command:     svc.Command,
		Entrypoint:  svc.Entrypoint,
		DependsOn:   svc.DependsOn,
		HealthCheck: healthCheck(svc.HealthCheck),
	}

	for i, mount := range svc.Volumes {
		bind, ok, err := b.bind(ctx, svc.Name, mount)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		source, _, _ := strings.Cut(bind, ":")
		if !b.Layout.InSandbox(source) {
			return nil, &model.ValidationError{
				Field:   fmt.Sprintf("services.%s.volumes[%d]", svc.Name, i),
				Message: fmt.Sprintf("bind source %q is outside %s", source, b.Layout.Root),
			}
		}
		sm.Binds = append(sm.Binds, bind)
	}
	return sm, nil
}

func (b *Builder) bind(ctx context.Context, service string, m model.BindMount) (string, bool, error) {
	if b.Binds != nil {
		return b.Binds.Resolve(ctx, service, m)
	}
	return m.Source + ":" + m.Target, true, nil
}

func healthCheck(hc *model.HealthCheck) *model.HealthCheckManifest {
	if hc == nil || hc.Disable {
		return &model.HealthCheckManifest{Disable: true}
	}
	retries := hc.Retries
	return &model.HealthCheckManifest{
		Test:        hc.Test,
		TestURL:     hc.TestURL,
		StartPeriod: hc.StartPeriod,
		Interval:    hc.Interval,
		Timeout:     hc.Timeout,
		Retries:     &retries,
	}
}

// Marshal serializes m as manifest.yml. Struct fields keep their declared
// order and map keys are sorted, so equal manifests give equal bytes.
func Marshal(m *model.Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses manifest.yml.
func Unmarshal(data []byte) (*model.Manifest, error) {
	var m model.Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}

func (b *Builder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}
