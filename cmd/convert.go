package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sikenali/DTOLPK/internal/cache"
	"github.com/sikenali/DTOLPK/internal/config"
	"github.com/sikenali/DTOLPK/internal/convert"
	"github.com/sikenali/DTOLPK/internal/model"
	"github.com/sikenali/DTOLPK/internal/ui"
	"github.com/sikenali/DTOLPK/internal/util"
	"github.com/sikenali/DTOLPK/internal/wizard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	appName        string
	appPackage     string
	appVersion     string
	appDescription string
	appHomepage    string
	appAuthor      string
	backgroundTask bool
	multiInstance  bool
	publicPaths    []string
	subdomain      string
	iconPath       string
	composePaths   []string
	routesJSON     string
	outputDir      string
	nonInteractive bool
	noCache        bool
)

func init() {
	rootCmd.AddCommand(newConvertCmd())
}

// newConvertCmd builds the convert command. Registering its flags resets
// the flag variables to their defaults.
func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a Docker Compose project into an .lpk package",
		Long: `Read the compose file(s), settle images and volume mounts, build
manifest.yml and write {package}.lpk to the output directory.

Without --non-interactive, missing settings and every image or volume
decision are asked for; answers are remembered in .docker2lpk-cache.db.`,
		Args: cobra.NoArgs,
		RunE: runConvert,
	}

	f := cmd.Flags()
	f.StringVarP(&appName, "name", "n", "", "application name")
	f.StringVarP(&appPackage, "package", "p", "", "package id, e.g. com.example.myapp")
	f.StringVar(&appVersion, "app-version", "", "application version (X.Y.Z)")
	f.StringVarP(&appDescription, "description", "d", "", "application description")
	f.StringVar(&appHomepage, "homepage", "", "application homepage")
	f.StringVarP(&appAuthor, "author", "a", "", "application author")
	f.BoolVarP(&backgroundTask, "background-task", "b", false, "keep the app running in the background")
	f.BoolVarP(&multiInstance, "multi-instance", "m", false, "run one instance per user")
	f.StringSliceVar(&publicPaths, "public-paths", nil, "paths reachable without login")
	f.StringVarP(&subdomain, "subdomain", "s", "", "subdomain (default: last package segment)")
	f.StringVarP(&iconPath, "icon", "i", "", "icon file")
	f.StringArrayVarP(&composePaths, "compose", "c", nil, "compose file, repeatable (default: docker-compose.yml)")
	f.StringVar(&routesJSON, "routes", "", `routes as a JSON array, e.g. '[{"type":"http","path":"/","service":"web","port":80}]'`)
	f.StringVarP(&outputDir, "output", "o", "", "output directory (default: current directory)")
	f.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; answer from config and flags")
	f.BoolVar(&noCache, "no-cache", false, "do not read or write the answer cache")
	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprint(os.Stderr, ui.FormatError("Failed to load config", err.Error(), "run 'docker2lpk init' to create a config file"))
		return err
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		fmt.Fprint(os.Stderr, ui.Describe("Invalid flags", err))
		return err
	}

	if nonInteractive {
		if err := cfg.RequireFeatures(); err != nil {
			fmt.Fprint(os.Stderr, ui.FormatError("Missing settings", err.Error(), "set them in docker2lpk.yml or pass the flags"))
			return err
		}
	}

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	store := openStore(cfg, workDir, logger)
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	app := cfg.AppSpec()
	c := &convert.Context{
		ComposePaths: cfg.Compose,
		IconPath:     cfg.Icon,
		ContentDir:   cfg.ContentDir,
		OutputDir:    cfg.Output,
		WorkDir:      workDir,
		Store:        store,
		Logger:       logger,
		Routes:       cfg.Routes,
		Patterns:     cfg.Exclude,
		Timeout:      cfg.Images.Timeout,
		Progress:     &stepPrinter{},
	}
	if c.IconPath != "" {
		c.IconPath = util.ExpandPath(c.IconPath)
	}
	if c.OutputDir != "" {
		c.OutputDir = util.ExpandPath(c.OutputDir)
	}

	if nonInteractive {
		if app.Version == "" {
			app.Version = config.DefaultVersion
		}
		c.Decider = cfg.Policy()
	} else {
		d := &wizard.Decider{Store: store, Logger: logger}
		askFeatures := cfg.App.BackgroundTask == nil || cfg.App.MultiInstance == nil
		if err := d.AskApp(ctx, &app, askFeatures); err != nil {
			return fmt.Errorf("wizard: %w", err)
		}
		if len(c.Routes) == 0 {
			c.PlanRoutes = d.AskRoutes
			app.AutoRoute = false
		}
		c.Decider = d
	}
	c.App = app

	if c.IconPath == "" {
		detection := wizard.Detect(nil)
		if len(detection.Icons) == 0 {
			err := &config.ConfigError{Key: "icon", Message: "no icon given and none found in the current directory"}
			fmt.Fprint(os.Stderr, ui.FormatError("Missing icon", err.Error(), "pass --icon or set icon in docker2lpk.yml"))
			return err
		}
		c.IconPath = detection.Icons[0]
		logger.Info("using detected icon", zap.String("icon", c.IconPath))
	}

	fmt.Println(ui.Bold(fmt.Sprintf("Converting %s...", app.Package)))
	res, err := convert.Run(ctx, c)
	if err != nil {
		fmt.Fprint(os.Stderr, ui.Describe("Conversion failed", err))
		return err
	}

	ui.PackageWritten(res.Path, res.Size, len(res.Services))
	return nil
}

// stepPrinter shows conversion stages as status lines. A stage that may
// prompt only reports when done, so its line is printed fresh.
type stepPrinter struct {
	pending string
}

func (p *stepPrinter) Started(stage string) {
	ui.Step(stage)
	p.pending = stage
}

func (p *stepPrinter) Done(stage, detail string) {
	if p.pending == stage {
		ui.StepDone(stage, detail)
	} else {
		ui.StepOK(stage, detail)
	}
	p.pending = ""
}

func (p *stepPrinter) Skipped(stage string) {
	ui.StepSkipped(stage)
	p.pending = ""
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&cfg.App.Name, appName)
	setString(&cfg.App.Package, appPackage)
	setString(&cfg.App.Version, appVersion)
	setString(&cfg.App.Description, appDescription)
	setString(&cfg.App.Homepage, appHomepage)
	setString(&cfg.App.Author, appAuthor)
	setString(&cfg.App.Subdomain, subdomain)
	setString(&cfg.Icon, iconPath)
	setString(&cfg.Output, outputDir)

	if flags.Changed("background-task") {
		v := backgroundTask
		cfg.App.BackgroundTask = &v
	}
	if flags.Changed("multi-instance") {
		v := multiInstance
		cfg.App.MultiInstance = &v
	}
	if len(publicPaths) > 0 {
		cfg.App.PublicPaths = publicPaths
	}
	if len(composePaths) > 0 {
		cfg.Compose = composePaths
	}
	if noCache {
		cfg.NoCache = true
	}
	if routesJSON != "" {
		routes, err := model.ParseRoutes(routesJSON)
		if err != nil {
			return err
		}
		cfg.Routes = routes
	}
	return nil
}

// openStore opens the answer cache in the working directory. Failures fall
// back to an in-memory store.
func openStore(cfg *config.Config, workDir string, logger *zap.Logger) cache.Store {
	if cfg.NoCache {
		return cache.NewMemory()
	}
	store, err := cache.OpenBolt(filepath.Join(workDir, cache.FileName))
	if err != nil {
		logger.Warn("answer cache unavailable", zap.Error(err))
		return cache.NewMemory()
	}
	return store
}
