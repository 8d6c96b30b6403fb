// -- cmd/capture.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/config"
	"github.com/kaidhar/prism-cli/internal/observability"
	"github.com/kaidhar/prism-cli/internal/pipeline"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Authenticate, discover pages and capture screenshots, HTML and design tokens.",
	Long: `Capture runs the acquisition half of the pipeline: the pre-capture gate,
login, page discovery, per-page capture, token extraction and manifest
assembly, then the post-capture gate over the produced artifacts.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return applyRunFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		p := pipeline.New(cfg, logger, nil)

		if summary, err := p.Validate(cmd.Context(), string(schemas.PhasePreCapture)); err != nil {
			return err
		} else if !summary.Success() {
			printGateFailures(summary)
			return fmt.Errorf("pre-capture gate failed")
		}

		stats, err := p.Capture(cmd.Context())
		if err != nil {
			return err
		}
		printStats(stats)

		summary, err := p.Validate(cmd.Context(), string(schemas.PhasePostCapture))
		if err != nil {
			return err
		}
		if !summary.Success() {
			printGateFailures(summary)
			return fmt.Errorf("post-capture gate failed")
		}
		fmt.Println("Capture complete; artifacts passed the post-capture gate.")
		return nil
	},
}

func init() {
	addRunFlags(captureCmd)
	rootCmd.AddCommand(captureCmd)
}

// addRunFlags registers the flags shared by capture and pipeline.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "platform base URL (overrides platform.base_url)")
	cmd.Flags().String("email", "", "login email (overrides auth.email and PLATFORM_EMAIL)")
	cmd.Flags().String("password", "", "login password (overrides auth.password and PLATFORM_PASSWORD)")
	cmd.Flags().String("mode", "", "discovery mode: auto, manual or hybrid")
	cmd.Flags().String("out", "", "artifact output directory")
}

// applyRunFlags binds changed flags into viper and rebuilds the canonical
// config so explicit flags win over file and environment values.
func applyRunFlags(cmd *cobra.Command) error {
	bindings := map[string]string{
		"platform.base_url": "url",
		"auth.email":        "email",
		"auth.password":     "password",
		"crawl.mode":        "mode",
		"output.directory":  "out",
	}
	changed := false
	for key, flag := range bindings {
		if cmd.Flags().Changed(flag) {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return err
			}
			changed = true
		}
	}
	if !changed {
		return nil
	}
	rebuilt, _, err := config.NewFromViper(viper.GetViper())
	if err != nil {
		return err
	}
	// Explicit credential flags outrank the environment precedence applied
	// inside NewFromViper.
	if cmd.Flags().Changed("email") {
		rebuilt.Auth.Email, _ = cmd.Flags().GetString("email")
	}
	if cmd.Flags().Changed("password") {
		rebuilt.Auth.Password, _ = cmd.Flags().GetString("password")
	}
	cfg = rebuilt
	return nil
}
