package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/sikenali/DTOLPK/internal/compose"
	"github.com/sikenali/DTOLPK/internal/config"
	"github.com/sikenali/DTOLPK/internal/convert"
	"github.com/sikenali/DTOLPK/internal/decide"
	"github.com/sikenali/DTOLPK/internal/manifest"
	"github.com/sikenali/DTOLPK/internal/model"
	"github.com/sikenali/DTOLPK/internal/ui"
	"github.com/sikenali/DTOLPK/internal/util"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate docker2lpk.yml, the compose files and the icon",
	Long: `Check that the app settings are valid, the compose files load, the icon
exists and the tools needed by the image settings are installed.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// checks counts validation results.
type checks struct {
	passed, failed int
}

func (c *checks) ok(field, detail string) {
	ui.ValidationOK(field, detail)
	c.passed++
}

func (c *checks) fail(field string, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		if verr.Field != "" {
			field += "." + verr.Field
		}
		ui.ValidationErr(field, verr.Message, verr.Suggestion)
	} else {
		ui.ValidationErr(field, err.Error(), "")
	}
	c.failed++
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprint(os.Stderr, ui.FormatError("Failed to load config", err.Error(), "run 'docker2lpk init' to create a config file"))
		return err
	}

	fmt.Println(ui.Bold("Validating docker2lpk.yml..."))
	var c checks

	app := cfg.AppSpec()
	if app.Version == "" {
		app.Version = config.DefaultVersion
	}
	if err := manifest.ValidateApp(app); err != nil {
		c.fail("app", err)
	} else {
		c.ok("app", fmt.Sprintf("%s (%s %s)", app.Name, app.Package, app.Version))
	}

	if err := cfg.RequireFeatures(); err != nil {
		ui.ValidationErr("app", err.Error(), "needed by --non-interactive")
		c.failed++
	}

	for i, r := range cfg.Routes {
		if !r.Type.Valid() {
			c.fail(fmt.Sprintf("routes[%d]", i), fmt.Errorf("unknown route type %q", r.Type))
		}
	}

	paths := cfg.Compose
	if len(paths) == 0 {
		if p, ok := compose.FindFile("."); ok {
			paths = []string{p}
		}
	}
	if len(paths) == 0 {
		ui.ValidationErr("compose", "no compose file found", "pass --compose or set compose in docker2lpk.yml")
		c.failed++
	} else {
		validateCompose(cmd, &c, paths)
	}

	icon := util.ExpandPath(cfg.Icon)
	switch info, err := os.Stat(icon); {
	case cfg.Icon == "":
		ui.ValidationErr("icon", "not set", "set icon in docker2lpk.yml")
		c.failed++
	case err != nil:
		ui.ValidationErr("icon", fmt.Sprintf("file not found: %s", cfg.Icon), "check the path")
		c.failed++
	case info.IsDir():
		ui.ValidationErr("icon", fmt.Sprintf("%s is a directory", cfg.Icon), "")
		c.failed++
	default:
		c.ok("icon", cfg.Icon)
	}

	validateTools(&c, cfg.Images.PushTarget)

	fmt.Println()
	if c.failed == 0 {
		ui.Success(fmt.Sprintf("%d checks passed, 0 errors", c.passed))
	} else {
		fmt.Printf("%d checks passed, %d errors\n", c.passed, c.failed)
	}

	if c.failed > 0 {
		return fmt.Errorf("%d validation errors", c.failed)
	}
	return nil
}

// validateCompose loads the files with the normalizer and cross-checks them
// with the reference compose loader.
func validateCompose(cmd *cobra.Command, c *checks, paths []string) {
	project, err := loadCompose(".", paths)
	if err != nil {
		c.fail("compose", err)
		return
	}
	c.ok("compose", fmt.Sprintf("%d services in %d file(s)", len(project.Services), len(project.Files)))

	opts, err := cli.NewProjectOptions(
		paths,
		cli.WithDotEnv,
		cli.WithInterpolation(true),
	)
	if err != nil {
		c.fail("compose", fmt.Errorf("project options: %w", err))
		return
	}
	if _, err := cli.ProjectFromOptions(cmd.Context(), opts); err != nil {
		ui.Warn(fmt.Sprintf("docker compose would reject this project: %v", err))
	}
}

// loadCompose interpolates with dir/.env the way convert does.
func loadCompose(dir string, paths []string) (*compose.Project, error) {
	env, err := compose.LoadDotEnv(filepath.Join(dir, convert.DotEnvFile))
	if err != nil {
		return nil, err
	}
	return compose.LoadFiles(paths, compose.Options{DotEnv: env})
}

func validateTools(c *checks, pushTarget string) {
	need := map[string]string{}
	switch pushTarget {
	case decide.PushCustom:
		need["docker"] = "needed to push images"
	case decide.PushLazyCat:
		need["lzc-cli"] = "needed to copy images"
	}
	for _, tool := range []string{"docker", "lzc-cli"} {
		path, err := findExecutable(tool)
		switch {
		case err == nil:
			c.ok(tool, path)
		case need[tool] != "":
			ui.ValidationErr(tool, "not found in PATH", need[tool])
			c.failed++
		default:
			fmt.Printf("  %s %s\n", ui.Hint("-- "), ui.Hint(tool+" not found (only needed for builds and pushes)"))
		}
	}
}
