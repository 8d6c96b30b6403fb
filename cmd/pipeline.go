// -- cmd/pipeline.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaidhar/prism-cli/internal/observability"
	"github.com/kaidhar/prism-cli/internal/pipeline"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the full pipeline: capture plus every validation gate.",
	Long: `Pipeline executes the whole pipeline in order: the pre-capture gate, capture,
the post-capture and pre-generation gates, and the post-generation gate when
a generated source tree is present. The first failing required gate halts the
run and its full check list is printed.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return applyRunFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		p := pipeline.New(cfg, logger, nil)

		summary, err := p.Run(cmd.Context())
		if err != nil {
			return err
		}
		printStats(&summary.Stats)
		if !summary.Success() {
			printGateFailures(summary)
			return fmt.Errorf("pipeline halted at the %s gate", summary.HaltedAt)
		}
		fmt.Println("All gates passed.")
		return nil
	},
}

func init() {
	addRunFlags(pipelineCmd)
	rootCmd.AddCommand(pipelineCmd)
}
