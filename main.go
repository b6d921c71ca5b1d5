// =============================================================================
// TTD Writer - Main Entry Point
// =============================================================================
//
// ttd-writer is a batch connector that reads campaign and ad-group tables from
// a Keboola-style data directory, reshapes them into nested JSON documents,
// validates them and creates or updates the entities through The Trade Desk
// API. Every API exchange is recorded in a CSV audit log.
//
// USAGE:
//   ttd-writer run        - Validate the input tables and call the API
//   ttd-writer validate   - Validate the input tables only
//   ttd-writer version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : ingestion, validation, staging, API client, workflows
//   - pkg/           : data directory and output helpers
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/ttd-writer/cmd"
)

// main hands control to the cmd package, which owns exit codes.
func main() {
	cmd.Execute()
}
