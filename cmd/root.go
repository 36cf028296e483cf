package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/sikenali/DTOLPK/internal/config"
	"github.com/sikenali/DTOLPK/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docker2lpk",
	Short: "Convert Docker Compose applications into LPK packages",
	Long: `docker2lpk turns a Docker Compose project into an LPK application package:
a zip holding manifest.yml, the app icon and the packaged content directory.

Run it interactively, or drive it entirely from docker2lpk.yml and flags
with --non-interactive.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: docker2lpk.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every step to stderr")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(config.Name)
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("DOCKER2LPK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}
}

func newLogger() *zap.Logger {
	return logging.New(verbose)
}
