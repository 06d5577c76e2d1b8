// =============================================================================
// Constituent Import - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Constituent Import CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   constituent-import process   - Merge the input tables and write the output tables
//   constituent-import validate  - Re-check written output against the inputs
//   constituent-import version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Core reconciliation logic (not for external import)
//   - pkg/       : Shared utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/constituent-import/cmd"
)

func main() {
	cmd.Execute()
}
