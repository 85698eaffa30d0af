// Package cmd provides the ausfc command-line interface.
//
// Configuration is layered: command-line flags override AUSFC_-prefixed
// environment variables, which override the .ausfc.yml config file.
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aurelia/sfc-vite/internal/config"
	"github.com/aurelia/sfc-vite/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ausfc",
	Short: "Compile Aurelia single-file components on demand",
	Long: `ausfc compiles .au single-file components (script + template + styles)
into executable modules and scoped stylesheets, either on demand behind a
hot-reloading dev server or in batch to disk.

Quick start:
  ausfc generate my-button      Scaffold a component
  ausfc serve                   Start the dev server
  ausfc build                   Compile all components to disk`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .ausfc.yml)")
	rootCmd.PersistentFlags().String("root", "", "project root containing component files")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig wires viper's config sources: the --config flag, then the
// AUSFC_CONFIG_FILE environment variable, then .ausfc.yml in the working
// directory. Missing config files degrade to defaults silently.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("AUSFC_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ausfc")
	}

	viper.SetEnvPrefix("AUSFC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = viper.ReadInConfig()
}

// loadConfig builds the effective configuration and a matching logger.
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: "text",
		Output: os.Stderr,
	})

	return cfg, logger, nil
}
