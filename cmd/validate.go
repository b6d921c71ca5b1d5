// =============================================================================
// TTD Writer - Validate Command
// =============================================================================
//
// This file defines the 'validate' command: the run pipeline up to and
// including staging, with no client and no API call. It is the same as
// setting action to verify-inputs in the configuration.
//
// COMMAND USAGE:
//   ttd-writer validate [flags]
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the input tables without calling the API",
	Long: `The validate command selects the action from the input tables, then
parses and validates every table into the staging store. It reports the
first invalid row and exits non-zero, or exits zero when every row is valid.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runWriter(cmd.Context(), true)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
