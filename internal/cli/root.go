package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pgstage",
	Short: "Staged, all-or-nothing CSV loads into PostgreSQL",
	Long: asciiLogo + `

pgstage loads a directory of delimited files into existing PostgreSQL tables.
Each file name selects its target table. Rows are parsed against the table's
declared column types, streamed in batches into a session-private staging
table, and promoted into the target. Everything runs in one transaction:
either every file is committed or nothing is.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  12 - Target table not found
  13 - Column count mismatch
  14 - Cell parse error
  15 - Load rejected by the database
  16 - Column with an unmapped type`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout, os.Stderr)
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	// -h is taken by --host on the data commands.
	rootCmd.PersistentFlags().Bool("help", false, "Help for pgstage")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().String("log-format", "text",
		"Log output format: text|json|console\n"+
			"json and console carry the run ID on every line")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", completeLogFormats)
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

func getLogFormatFlag(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return "text"
	}
	return format
}
