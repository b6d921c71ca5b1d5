// =============================================================================
// TTD Writer - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI.
//
// COBRA CLI STRUCTURE:
//   rootCmd (ttd-writer)
//   ├── runCmd      (ttd-writer run)
//   ├── validateCmd (ttd-writer validate)
//   └── versionCmd  (ttd-writer version)
//
// EXIT CODES:
//   0 - success
//   1 - configuration or input error, fixable by the operator
//   2 - internal error
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// dataDir is the Keboola data directory holding config.json, in/ and out/.
var dataDir string

// cfgFile overrides the configuration file location.
var cfgFile string

// verbose forces debug logging regardless of the "debug" option.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "ttd-writer",
	Short: "TTD Writer - create and update The Trade Desk campaigns from tables",
	Long: `TTD Writer reads campaign and ad-group tables from the data directory,
validates every row against the entity schemas and then creates, updates,
clones or puts the entities through The Trade Desk API.

The input tables present in <data-dir>/in/tables decide what the run does:

  create_campaigns                   create campaigns
  create_adgroups                    create ad groups in existing campaigns
  create_campaigns + create_adgroups create campaigns, then their ad groups
  update_campaigns / update_adgroups update entities (either or both)
  clone_campaigns                    clone campaigns
  put_adgroups                       put ad groups

Every API exchange is written to the audit log table.

Example Usage:
  ttd-writer run                        # Run the job described by /data/config.json
  ttd-writer run --data-dir ./data      # Use another data directory
  ttd-writer validate                   # Validate the inputs without calling the API`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI and exits with the code matching the error class.
// This is called by main.main().
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(types.ExitCode(err))
	}
}

// configPath returns --config, or config.json inside the data directory.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(dataDir, "config.json")
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&dataDir,
		"data-dir",
		"/data",
		"Path to the data directory",
	)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the configuration file (default is <data-dir>/config.json)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
