package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/sikenali/DTOLPK/internal/cache"
	"github.com/sikenali/DTOLPK/internal/config"
	"github.com/sikenali/DTOLPK/internal/ui"
	"github.com/sikenali/DTOLPK/internal/wizard"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a docker2lpk.yml config file interactively",
	Long: `Scan the current directory for compose files and icons, then write
docker2lpk.yml through an interactive wizard. The file drives
'docker2lpk convert --non-interactive'.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// finding is one line of the scan summary.
type finding struct {
	name   string
	detail string
	found  bool
}

// scanFindings lists what the wizard will offer as defaults.
func scanFindings(d wizard.DetectionResult) []finding {
	join := func(items []string) string {
		if len(items) == 0 {
			return "none found"
		}
		return strings.Join(items, ", ")
	}
	tool := func(ok bool) string {
		if ok {
			return "in PATH"
		}
		return "not found (only needed for builds and pushes)"
	}
	cached := "none"
	if d.CacheFound {
		cached = cache.FileName + " (previous answers are reused by convert)"
	}
	return []finding{
		{"compose", join(d.ComposeFiles), len(d.ComposeFiles) > 0},
		{"icon", join(d.Icons), len(d.Icons) > 0},
		{"docker", tool(d.DockerAvailable), d.DockerAvailable},
		{"lzc-cli", tool(d.LzcCLIAvailable), d.LzcCLIAvailable},
		{"answer cache", cached, d.CacheFound},
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := config.FileName

	if _, err := os.Stat(configPath); err == nil {
		overwrite := false
		confirm := huh.NewConfirm().
			Title(configPath + " already exists. Overwrite it?").
			Value(&overwrite)
		if err := huh.NewForm(huh.NewGroup(confirm)).RunWithContext(cmd.Context()); err != nil {
			return fmt.Errorf("wizard: %w", err)
		}
		if !overwrite {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println(ui.Bold("Scanning current directory..."))
	detection := wizard.Detect(nil)
	for _, f := range scanFindings(detection) {
		if f.found {
			ui.ValidationOK(f.name, f.detail)
		} else {
			fmt.Printf("  %s %s\n", ui.Hint("-- "), ui.Hint(f.name+": "+f.detail))
		}
	}
	fmt.Println()

	answers, err := wizard.Run(detection)
	if err != nil {
		return fmt.Errorf("wizard: %w", err)
	}

	content, err := wizard.GenerateConfig(*answers)
	if err != nil {
		return fmt.Errorf("generating config: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	ui.Success(fmt.Sprintf("Created %s for %s", configPath, answers.Package))
	fmt.Println()
	fmt.Printf("Next step: %s\n", ui.Bold("docker2lpk convert --non-interactive"))
	fmt.Printf("           %s\n", ui.Hint(fmt.Sprintf("writes %s.lpk; edit %s to fine-tune volumes and images", answers.Package, configPath)))

	return nil
}
