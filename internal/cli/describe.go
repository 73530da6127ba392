package cli

import (
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

var describeCmd = &cobra.Command{
	Use:   "describe <table>...",
	Short: "Show how each column of a table would be parsed",
	Long: `Describe reads the named tables from the catalog and prints, per column,
the declared type, the type category it maps to and the parse directive
used for its cells. Columns that a load would reject as unmapped are
marked unmapped.

Examples:
  pgstage describe orders customers -d warehouse
  pgstage describe events -d warehouse --schema audit -o markdown`,
	Args: RequireTableNames,
	RunE: runDescribe,
}

type describeFlagValues struct {
	connectionFlags
	configPath      string
	schema          string
	temporalLayouts []string
	output          string
}

var describeFlags describeFlagValues

func init() {
	rootCmd.AddCommand(describeCmd)

	addConnectionFlags(describeCmd, &describeFlags.connectionFlags)
	describeCmd.Flags().StringVar(&describeFlags.configPath, "config", "",
		"Path to pgstage.yaml (default: ./pgstage.yaml)")
	describeCmd.Flags().StringVar(&describeFlags.schema, "schema", pgstage.DefaultSchema,
		"Schema holding the tables")
	describeCmd.Flags().StringSliceVar(&describeFlags.temporalLayouts, "temporal-layout", nil,
		"Extra Go time layout for date and timestamp cells (can be specified multiple times)")
	describeCmd.Flags().StringVarP(&describeFlags.output, "output", "o", report.FormatTable,
		"Report format: table|markdown|csv")

	_ = describeCmd.RegisterFlagCompletionFunc("output", completeOutputFormats)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	format, err := report.ParseFormat(describeFlags.output)
	if err != nil {
		return err
	}

	projectCfg, err := loadProjectConfig(".", describeFlags.configPath)
	if err != nil {
		return err
	}

	schema := describeFlags.schema
	layouts := describeFlags.temporalLayouts
	if projectCfg != nil {
		if projectCfg.Load.Schema != "" && !cmd.Flags().Changed("schema") {
			schema = projectCfg.Load.Schema
		}
		if len(projectCfg.Load.TemporalLayouts) > 0 && !cmd.Flags().Changed("temporal-layout") {
			layouts = projectCfg.Load.TemporalLayouts
		}
	}

	connConfig, err := resolveConnection(describeFlags.connectionFlags, projectCfg, "describe", verbose)
	if err != nil {
		return err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), getLogFormatFlag(cmd), verbose)
	if err != nil {
		return err
	}

	fsProvider := filesystem.NewOSFileSystem()
	describer := services.NewCheckService(
		services.NewSessionManager(db.NewConnector, logger),
		scanner.NewScannerWithFS(fsProvider),
		fsProvider,
		catalog.NewReader(),
		logger,
	)

	ctx, cancel := runContext(0)
	defer cancel()

	plans, err := describer.Describe(ctx, connConfig, schema, args, layouts)
	if err != nil {
		return err
	}

	report.WritePlans(cmd.OutOrStdout(), plans, format)
	return nil
}
