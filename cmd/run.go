// =============================================================================
// TTD Writer - Run Command
// =============================================================================
//
// This file defines the 'run' command, which executes one writer job.
//
// COMMAND USAGE:
//   ttd-writer run [flags]
//
// PROCESSING PIPELINE:
//   1. Load and validate the configuration
//   2. Discover the input tables and select the action
//   3. Validate every input table into the staging store
//   4. Unless the action is verify-inputs:
//      a. Open the audit log
//      b. Build the API client
//      c. Send the staged records
//   5. Write the metrics file, if configured
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/ttd-writer/internal/auditlog"
	"github.com/ginjaninja78/ttd-writer/internal/client"
	"github.com/ginjaninja78/ttd-writer/internal/config"
	"github.com/ginjaninja78/ttd-writer/internal/logging"
	"github.com/ginjaninja78/ttd-writer/internal/metrics"
	"github.com/ginjaninja78/ttd-writer/internal/staging"
	"github.com/ginjaninja78/ttd-writer/internal/types"
	"github.com/ginjaninja78/ttd-writer/internal/workflow"
	"github.com/ginjaninja78/ttd-writer/pkg/utils"
)

// =============================================================================
// RUN COMMAND DEFINITION
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the writer job described by the configuration",
	Long: `The run command loads the configuration, validates every input table and,
unless the configured action is verify-inputs, sends the records to the API.

No API call is made unless every input row is valid.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runWriter(cmd.Context(), false)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runWriter executes one job. verifyOnly forces the verify-inputs action.
func runWriter(ctx context.Context, verifyOnly bool) (err error) {
	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	if !utils.FileExists(dataDir) {
		return types.NewConfigError("data directory %s does not exist", dataDir)
	}
	cfg, err := config.Load(configPath(), dataDir)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Debug = true
	}
	if verifyOnly {
		cfg.Action = config.ActionVerifyInputs
	}

	log := logging.New(cfg.Debug)
	defer log.Sync()
	log.Info("configuration loaded", zap.Stringer("config", cfg))

	files := utils.NewFileManager(dataDir)
	if err := files.EnsureDirectories(); err != nil {
		return err
	}

	m := metrics.New()
	defer func() {
		if werr := m.WriteTextfile(cfg.MetricsFile); werr != nil {
			log.Warn("failed to write metrics file", zap.String("path", cfg.MetricsFile), zap.Error(werr))
		}
	}()

	// =========================================================================
	// STEP 2: OPEN THE STAGING STORE
	// =========================================================================

	stagingDir := cfg.StagingDir
	if stagingDir == "" {
		stagingDir = files.StagingDir()
		defer os.RemoveAll(stagingDir)
	}
	store, err := staging.Open(stagingDir)
	if err != nil {
		return fmt.Errorf("staging store: %w", err)
	}
	defer store.Close()

	// =========================================================================
	// STEP 3: SELECT THE ACTION AND STAGE THE INPUTS
	// =========================================================================

	runner, err := workflow.NewRunner(cfg, files, store, log, m)
	if err != nil {
		return err
	}
	plan, err := runner.Plan()
	if err != nil {
		return err
	}

	if cfg.Action == config.ActionVerifyInputs {
		return runner.Run(ctx, plan, nil)
	}

	// =========================================================================
	// STEP 4: SEND
	// =========================================================================

	audit, err := auditlog.Open(ctx, cfg.AuditLog, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := audit.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close audit log: %w", cerr)
		}
	}()

	api, err := client.New(client.Options{
		BaseURL:                cfg.BaseURL,
		Login:                  cfg.Login,
		Password:               cfg.Password,
		TokenExpirationMinutes: cfg.TokenExpirationMinutes,
		RequestsPerSecond:      cfg.RequestsPerSecond,
		Audit:                  audit,
		Metrics:                m,
		Log:                    log,
	})
	if err != nil {
		return err
	}

	if err := runner.Run(ctx, plan, api); err != nil {
		return err
	}
	log.Info("job finished", zap.String("action", string(plan.Action)))
	return nil
}
