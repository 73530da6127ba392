package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RequireInputLocation validates that exactly one input location argument is provided.
// Returns a helpful error message with usage and examples if missing or too many.
func RequireInputLocation(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`missing required argument: <input_dir>

Usage: %s

Example:
  %s ./exports -d warehouse
  %s s3://bucket/exports/2024-06-01 -d warehouse`, cmd.UseLine(), cmd.CommandPath(), cmd.CommandPath())
	}
	if len(args) > 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	return nil
}

// RequireTableNames validates that at least one table name is provided.
func RequireTableNames(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`requires at least 1 arg(s): <table>...

Usage: %s

Example:
  %s orders customers -d warehouse --schema sales`, cmd.UseLine(), cmd.CommandPath())
	}
	return nil
}
