// Package convert runs a whole conversion: compose files in, .lpk out.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize/english"
	"github.com/sikenali/DTOLPK/internal/cache"
	"github.com/sikenali/DTOLPK/internal/compose"
	"github.com/sikenali/DTOLPK/internal/decide"
	"github.com/sikenali/DTOLPK/internal/image"
	"github.com/sikenali/DTOLPK/internal/lpk"
	"github.com/sikenali/DTOLPK/internal/manifest"
	"github.com/sikenali/DTOLPK/internal/model"
	"github.com/sikenali/DTOLPK/internal/volume"
	"go.uber.org/zap"
)

// DotEnvFile is read from the working directory for interpolation values.
const DotEnvFile = ".env"

// RoutePlanner is asked for routes when none are configured. It sees the
// normalized services so it can offer their ports.
type RoutePlanner func(ctx context.Context, services []model.ComposeService) ([]model.Route, error)

// Stage names reported to Progress.
const (
	StageCompose  = "compose"
	StageRoutes   = "routes"
	StageManifest = "manifest"
	StagePackage  = "package"
)

// Progress receives stage updates. Started is only sent for stages that
// never prompt, so a Done may follow other output.
type Progress interface {
	Started(stage string)
	Done(stage, detail string)
	Skipped(stage string)
}

type nopProgress struct{}

func (nopProgress) Started(string)      {}
func (nopProgress) Done(string, string) {}
func (nopProgress) Skipped(string)      {}

// Context carries everything a conversion needs. Nothing is read from
// globals.
type Context struct {
	App model.AppSpec

	ComposePaths []string // empty means look for a default file in WorkDir
	IconPath     string
	ContentDir   string // defaults to the compose directory
	OutputDir    string // defaults to WorkDir
	WorkDir      string // defaults to the process working directory

	Layout   model.Layout
	Decider  decide.Decider
	Store    cache.Store
	Runner   image.Runner
	Detector volume.Detector
	Logger   *zap.Logger
	Progress Progress

	Routes     []model.Route
	PlanRoutes RoutePlanner

	// DotEnv overrides the .env file in WorkDir when set.
	DotEnv map[string]string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv compose.LookupFunc

	// Patterns are extra content exclusion patterns.
	Patterns []string
	// Timeout bounds each external tool call.
	Timeout time.Duration
	Now     func() time.Time
}

// Result describes a finished conversion.
type Result struct {
	Path         string
	Size         int64
	ContentFiles int
	Manifest     *model.Manifest
	Services     []string // services written to the manifest, in order
}

// ErrNoDecider is returned when a Context has no Decider.
var ErrNoDecider = errors.New("convert: no decider configured")

// Run converts the compose project described by c. Services are handled in
// order and the first failure aborts the run before anything is written.
func Run(ctx context.Context, c *Context) (*Result, error) {
	if c.Decider == nil {
		return nil, ErrNoDecider
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	progress := c.Progress
	if progress == nil {
		progress = nopProgress{}
	}

	workDir, err := c.workDir()
	if err != nil {
		return nil, err
	}

	paths, err := c.composePaths(workDir)
	if err != nil {
		return nil, err
	}

	dotenv := c.DotEnv
	if dotenv == nil {
		if dotenv, err = compose.LoadDotEnv(filepath.Join(workDir, DotEnvFile)); err != nil {
			return nil, err
		}
	}

	progress.Started(StageCompose)
	project, err := compose.LoadFiles(paths, compose.Options{
		DotEnv:    dotenv,
		LookupEnv: c.LookupEnv,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("converting", zap.String("package", c.App.Package), zap.Strings("services", project.Names()))
	progress.Done(StageCompose, fmt.Sprintf("%s from %s", plural(len(project.Services), "service"), plural(len(project.Files), "file")))

	routes := c.Routes
	switch {
	case len(routes) > 0:
		progress.Done(StageRoutes, plural(len(routes), "configured route"))
	case c.PlanRoutes != nil:
		if routes, err = c.PlanRoutes(ctx, project.Services); err != nil {
			return nil, fmt.Errorf("planning routes: %w", err)
		}
		progress.Done(StageRoutes, plural(len(routes), "selected route"))
	default:
		progress.Skipped(StageRoutes)
	}

	store := c.Store
	if store == nil {
		store = cache.NewMemory()
	}
	runner := c.Runner
	if runner == nil {
		runner = &image.ExecRunner{Timeout: c.Timeout, Logger: logger, Dir: project.Dir}
	}
	layout := c.Layout
	if layout == (model.Layout{}) {
		layout = model.DefaultLayout()
	}

	builder := &manifest.Builder{
		Layout: layout,
		Images: &image.Resolver{
			Runner:  runner,
			Decider: c.Decider,
			Store:   store,
			Package: c.App.Package,
			Dir:     project.Dir,
			Logger:  logger,
			Now:     c.Now,
		},
		Binds: &volume.Resolver{
			Layout:   layout,
			Dir:      project.Dir,
			Decider:  c.Decider,
			Detector: c.Detector,
			Logger:   logger,
		},
		Logger: logger,
	}
	m, err := builder.Build(ctx, c.App, project.Services, routes)
	if err != nil {
		return nil, err
	}
	progress.Done(StageManifest, fmt.Sprintf("%s, %s", plural(len(m.Services), "service"), plural(len(m.Application.Routes), "route")))

	contentDir := project.Dir
	if c.ContentDir != "" {
		contentDir = within(workDir, c.ContentDir)
	}
	outputDir := workDir
	if c.OutputDir != "" {
		outputDir = within(workDir, c.OutputDir)
	}

	exclude := append([]string{}, project.Files...)
	exclude = append(exclude,
		filepath.Join(workDir, DotEnvFile),
		filepath.Join(workDir, cache.FileName),
		filepath.Join(project.Dir, cache.FileName))

	progress.Started(StagePackage)
	pkg, err := lpk.Assemble(ctx, lpk.Input{
		Manifest:     m,
		IconPath:     within(workDir, c.IconPath),
		ContentDir:   contentDir,
		OutputDir:    outputDir,
		ExcludeFiles: exclude,
		Patterns:     c.Patterns,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	progress.Done(StagePackage, english.Plural(pkg.ContentFiles, "content entry", "content entries"))

	var names []string
	for _, s := range project.Services {
		if _, ok := m.Services[s.Name]; ok {
			names = append(names, s.Name)
		}
	}
	return &Result{
		Path:         pkg.Path,
		Size:         pkg.Size,
		ContentFiles: pkg.ContentFiles,
		Manifest:     m,
		Services:     names,
	}, nil
}

func (c *Context) workDir() (string, error) {
	if c.WorkDir != "" {
		return c.WorkDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", &model.IOError{Op: "getwd", Path: ".", Err: err}
	}
	return wd, nil
}

func (c *Context) composePaths(workDir string) ([]string, error) {
	if len(c.ComposePaths) > 0 {
		paths := make([]string, len(c.ComposePaths))
		for i, p := range c.ComposePaths {
			paths[i] = within(workDir, p)
		}
		return paths, nil
	}
	p, ok := compose.FindFile(workDir)
	if !ok {
		return nil, &model.IOError{Op: "find compose file", Path: workDir, Err: os.ErrNotExist}
	}
	return []string{p}, nil
}

// within resolves p against dir unless it is absolute.
func within(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func plural(n int, word string) string {
	return english.Plural(n, word, word+"s")
}
