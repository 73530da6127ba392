package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgstage/internal/catalog"
	"github.com/vvka-141/pgstage/internal/db"
	"github.com/vvka-141/pgstage/internal/files/filesystem"
	"github.com/vvka-141/pgstage/internal/files/scanner"
	"github.com/vvka-141/pgstage/internal/logging"
	"github.com/vvka-141/pgstage/internal/report"
	"github.com/vvka-141/pgstage/internal/services"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

var checkCmd = &cobra.Command{
	Use:   "check <input_dir>",
	Short: "Validate input files against their target tables without writing",
	Long: `Check runs everything a load does short of writing: each file's target
table is looked up, its column types are mapped, and every row is parsed.
Nothing is staged and no transaction is opened, so check is safe to run
against production.

Files are checked concurrently on up to --parallel pooled connections.
The report lists every file; the exit code reflects the first failure
category found.

Examples:
  pgstage check ./exports -d warehouse
  pgstage check ./exports -d warehouse --parallel 8 -o markdown`,
	Args:              RequireInputLocation,
	ValidArgsFunction: completeDirectories,
	RunE:              runCheck,
}

var checkFlags loadFlagValues

func init() {
	rootCmd.AddCommand(checkCmd)

	addLoadFlags(checkCmd, &checkFlags)
	checkCmd.Flags().IntVar(&checkFlags.parallel, "parallel", pgstage.DefaultCheckParallelism,
		"Number of files checked concurrently")
}

func runCheck(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	format, err := report.ParseFormat(checkFlags.output)
	if err != nil {
		return err
	}

	cfg, projectCfg, err := buildLoadConfig(cmd, args[0], &checkFlags, verbose)
	if err != nil {
		return err
	}

	fsProvider, err := filesystem.NewProvider(cfg.InputDir, s3Options(cmd, &checkFlags, projectCfg))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cfg.InputDir, err)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), getLogFormatFlag(cmd), verbose)
	if err != nil {
		return err
	}

	checker := services.NewCheckService(
		services.NewSessionManager(db.NewConnector, logger),
		scanner.NewScannerWithFS(fsProvider),
		fsProvider,
		catalog.NewReader(),
		logger,
	)

	ctx, cancel := runContext(cfg.Timeout)
	defer cancel()

	result, err := checker.Check(ctx, cfg)
	if len(result.Files) == 0 {
		if err != nil {
			return err
		}
		report.WriteCheck(cmd.OutOrStdout(), result, format)
		return nil
	}

	report.WriteCheck(cmd.OutOrStdout(), result, format)
	if err != nil {
		// Every failure is already listed in the report.
		cmd.SilenceErrors = true
		return err
	}

	logger.Info("✓ %d file(s), %d rows valid", len(result.Files), result.TotalRows())
	return nil
}
