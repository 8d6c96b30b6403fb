// -- cmd/root.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kaidhar/prism-cli/internal/config"
	"github.com/kaidhar/prism-cli/internal/observability"
)

var (
	cfgFile string
	project string

	// loggerReady flips once InitializeLogger has run, so Execute knows
	// whether errors can go through zap or must fall back to stderr.
	loggerReady bool

	// cfg is the canonical configuration, built once in PersistentPreRunE and
	// shared by every subcommand.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "prism-cli",
	Short: "Prism captures a web application's pages and design tokens for code generation.",
	// Version is dynamically set at build time. See cmd/version.go.
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Runs before any command, setting up config and logging.
		if err := config.LoadDotEnv(); err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
		if err := initializeViper(); err != nil {
			return err
		}

		built, warnings, err := config.NewFromViper(viper.GetViper())
		if err != nil {
			// Initialize a fallback logger so the failure is still reported
			// through the normal channel.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "prism-cli"})
			loggerReady = true
			return err
		}
		cfg = built

		observability.InitializeLogger(cfg.Logger)
		loggerReady = true
		logger := observability.GetLogger()
		for _, w := range warnings {
			logger.Warn(w)
		}
		logger.Info("Starting prism-cli", zap.String("version", Version))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. The run is cancelable with SIGINT/SIGTERM; cancellation
// propagates through every phase via the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Flag parse errors surface before the logger exists.
		if loggerReady {
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&project, "project", "p", "", "project name; reads ./<project>.yaml when --config is unset")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// initializeViper reads in the config file and ENV variables if set.
func initializeViper() error {
	v := viper.GetViper()
	config.SetDefaults(v)

	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	case project != "":
		v.AddConfigPath(".")
		v.SetConfigName(project)
		v.SetConfigType("yaml")
	default:
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PRISM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars.
	}
	return nil
}
