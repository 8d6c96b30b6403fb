// -- cmd/validate.go --
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/observability"
	"github.com/kaidhar/prism-cli/internal/pipeline"
)

var validatePhase string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Evaluate validation gates over existing artifacts without capturing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		p := pipeline.New(cfg, logger, nil)

		summary, err := p.Validate(cmd.Context(), validatePhase)
		if err != nil {
			return err
		}
		for _, result := range summary.GateResults {
			printGateResult(result)
		}
		if !summary.Success() {
			return fmt.Errorf("the %s gate failed", summary.HaltedAt)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validatePhase, "phase", "all",
		"gate phase to evaluate: pre-capture, post-capture, pre-generation, post-generation or all")
	rootCmd.AddCommand(validateCmd)
}

// printGateResult renders one gate's full check list; gates never stop at the
// first failing check, so every row is always present.
func printGateResult(result *schemas.ValidationResult) {
	verdict := "PASSED"
	if !result.Passed {
		verdict = "FAILED"
	}
	fmt.Printf("\nGate %s: %s\n", result.Phase, verdict)

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  CHECK\tREQUIRED\tSTATUS\tEXPECTED\tACTUAL")
	for _, c := range result.Checks {
		status := "ok"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "  %s\t%t\t%s\t%s\t%s\n", c.Name, c.Required, status, c.Expected, c.Actual)
	}
	w.Flush()
	for _, warning := range result.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
}

// printGateFailures prints the full check list of every failed gate.
func printGateFailures(summary *pipeline.Summary) {
	for _, result := range summary.GateResults {
		if !result.Passed {
			printGateResult(result)
		}
	}
}

// printStats renders the end-of-run statistics block.
func printStats(stats *schemas.RunStats) {
	fmt.Println("\nRun statistics:")
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "  pages discovered\t%d\n", stats.PagesDiscovered)
	fmt.Fprintf(w, "  pages attempted\t%d\n", stats.PagesAttempted)
	fmt.Fprintf(w, "  pages succeeded\t%d\n", stats.PagesSucceeded)
	fmt.Fprintf(w, "  pages failed\t%d\n", stats.PagesFailed)
	fmt.Fprintf(w, "  colors found\t%d\n", stats.ColorsFound)
	fmt.Fprintf(w, "  fonts found\t%d\n", stats.FontsFound)
	fmt.Fprintf(w, "  success rate\t%s%%\n", strconv.FormatFloat(stats.SuccessRate*100, 'f', 1, 64))
	w.Flush()
}
