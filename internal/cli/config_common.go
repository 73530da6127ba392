package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgstage/internal/config"
	"github.com/vvka-141/pgstage/internal/files/filesystem"
	"github.com/vvka-141/pgstage/internal/report"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// loadFlagValues holds the flags shared by load and check.
type loadFlagValues struct {
	connectionFlags

	configPath       string
	schema           string
	batchSize        int
	progressInterval int
	delimiter        string
	noHeader         bool
	extension        string
	allowUnmapped    bool
	temporalLayouts  []string
	timeZone         string
	parallel         int
	timeout          time.Duration
	output           string

	s3Region    string
	s3Endpoint  string
	s3PathStyle bool
}

// addLoadFlags registers the input, parsing and output flags on cmd.
// Only flags the user actually set override pgstage.yaml.
func addLoadFlags(cmd *cobra.Command, f *loadFlagValues) {
	addConnectionFlags(cmd, &f.connectionFlags)

	cmd.Flags().StringVar(&f.configPath, "config", "",
		"Path to pgstage.yaml (default: <input_dir>/pgstage.yaml, or ./pgstage.yaml for s3:// input)")
	cmd.Flags().StringVar(&f.schema, "schema", pgstage.DefaultSchema,
		"Schema holding the target tables")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", pgstage.DefaultBatchSize,
		"Rows per batch")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", string(pgstage.DefaultDelimiter),
		"Field delimiter: a single character, or tab|comma|semicolon|pipe")
	cmd.Flags().BoolVar(&f.noHeader, "no-header", false,
		"Treat the first line of each file as data instead of a header")
	cmd.Flags().StringVar(&f.extension, "extension", pgstage.DefaultFileExtension,
		"Extension of input files (case-insensitive)")
	cmd.Flags().BoolVar(&f.allowUnmapped, "allow-unmapped", false,
		"Load columns of unrecognised types (jsonb, arrays, ...) as text\n"+
			"instead of failing before any data is read")
	cmd.Flags().StringSliceVar(&f.temporalLayouts, "temporal-layout", nil,
		"Extra Go time layout for date and timestamp cells (can be specified multiple times)\n"+
			"Example: --temporal-layout 02.01.2006")
	cmd.Flags().StringVar(&f.timeZone, "time-zone", "",
		"IANA zone for timestamptz values without an offset (default UTC)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0,
		"Abort and roll back when the run takes longer than this (0 = no limit)\n"+
			"Examples: 30s, 5m, 1h30m")
	cmd.Flags().StringVarP(&f.output, "output", "o", report.FormatTable,
		"Report format: table|markdown|csv")

	cmd.Flags().StringVar(&f.s3Region, "s3-region", "",
		"Region of the S3 bucket (default: AWS configuration chain)")
	cmd.Flags().StringVar(&f.s3Endpoint, "s3-endpoint", "",
		"Custom endpoint for S3-compatible stores, e.g. http://localhost:9000")
	cmd.Flags().BoolVar(&f.s3PathStyle, "s3-path-style", false,
		"Use path-style S3 addressing (required by most S3-compatible stores)")

	_ = cmd.RegisterFlagCompletionFunc("output", completeOutputFormats)
}

// loadProjectConfig loads godotenv and project configuration.
// Returns nil config if pgstage.yaml does not exist (not an error), unless
// the path was given explicitly.
func loadProjectConfig(inputLocation, configPath string) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	if configPath != "" {
		projectCfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w: %w", configPath, pgstage.ErrInvalidConfig, err)
		}
		return projectCfg, nil
	}

	dir := inputLocation
	if dir == "" || filesystem.IsS3URI(dir) {
		dir = "."
	}

	projectCfg, err := config.Load(dir)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil // Config file not found is not an error
		}
		return nil, fmt.Errorf("failed to load %s: %w: %w", config.ConfigFileName, pgstage.ErrInvalidConfig, err)
	}
	return projectCfg, nil
}

// resolveEffectiveTimeout returns the effective timeout, preferring pgstage.yaml if flag wasn't set.
func resolveEffectiveTimeout(
	cmd *cobra.Command,
	projectCfg *config.ProjectConfig,
	flagTimeout time.Duration,
) (time.Duration, error) {
	if projectCfg != nil && projectCfg.Timeout != "" && !cmd.Flags().Changed("timeout") {
		return projectCfg.ParsedTimeout()
	}
	return flagTimeout, nil
}

// buildLoadConfig layers defaults, pgstage.yaml and explicitly set flags
// into a LoadConfig, and resolves the connection.
func buildLoadConfig(cmd *cobra.Command, inputLocation string, f *loadFlagValues, verbose bool) (pgstage.LoadConfig, *config.ProjectConfig, error) {
	projectCfg, err := loadProjectConfig(inputLocation, f.configPath)
	if err != nil {
		return pgstage.LoadConfig{}, nil, err
	}

	cfg := pgstage.LoadConfig{
		InputDir: inputLocation,
		Verbose:  verbose,
	}
	if projectCfg != nil {
		if err := projectCfg.Load.ApplyTo(&cfg); err != nil {
			return pgstage.LoadConfig{}, nil, err
		}
	}

	if err := applyChangedLoadFlags(cmd, f, &cfg); err != nil {
		return pgstage.LoadConfig{}, nil, err
	}

	cfg.Timeout, err = resolveEffectiveTimeout(cmd, projectCfg, f.timeout)
	if err != nil {
		return pgstage.LoadConfig{}, nil, err
	}

	connConfig, err := resolveConnection(f.connectionFlags, projectCfg, cmd.Name(), verbose)
	if err != nil {
		return pgstage.LoadConfig{}, nil, err
	}
	cfg.Connection = *connConfig

	cfg.ApplyDefaults()
	return cfg, projectCfg, nil
}

func applyChangedLoadFlags(cmd *cobra.Command, f *loadFlagValues, cfg *pgstage.LoadConfig) error {
	changed := cmd.Flags().Changed

	if changed("schema") {
		cfg.Schema = f.schema
	}
	if changed("batch-size") {
		if f.batchSize <= 0 {
			return fmt.Errorf("--batch-size must be positive, got %d: %w", f.batchSize, pgstage.ErrInvalidConfig)
		}
		cfg.BatchSize = f.batchSize
	}
	if changed("progress-interval") {
		if f.progressInterval <= 0 {
			return fmt.Errorf("--progress-interval must be positive, got %d: %w", f.progressInterval, pgstage.ErrInvalidConfig)
		}
		cfg.ProgressInterval = f.progressInterval
	}
	if changed("delimiter") {
		d, err := config.ParseDelimiter(f.delimiter)
		if err != nil {
			return err
		}
		cfg.Delimiter = d
	}
	if changed("no-header") {
		cfg.NoHeader = f.noHeader
	}
	if changed("extension") {
		cfg.FileExtension = config.NormalizeExtension(f.extension)
	}
	if changed("allow-unmapped") {
		cfg.AllowUnmapped = f.allowUnmapped
	}
	if changed("temporal-layout") {
		cfg.TemporalLayouts = append([]string(nil), f.temporalLayouts...)
	}
	if changed("time-zone") {
		if _, err := time.LoadLocation(f.timeZone); err != nil {
			return fmt.Errorf("--time-zone %q: %w", f.timeZone, pgstage.ErrInvalidConfig)
		}
		cfg.TimeZone = f.timeZone
	}
	if changed("parallel") {
		if f.parallel <= 0 {
			return fmt.Errorf("--parallel must be positive, got %d: %w", f.parallel, pgstage.ErrInvalidConfig)
		}
		cfg.Parallelism = f.parallel
	}
	return nil
}

// s3Options merges the --s3-* flags over the s3 block of pgstage.yaml.
func s3Options(cmd *cobra.Command, f *loadFlagValues, projectCfg *config.ProjectConfig) filesystem.S3Options {
	var opts filesystem.S3Options
	if projectCfg != nil {
		opts.Region = projectCfg.S3.Region
		opts.Endpoint = projectCfg.S3.Endpoint
		opts.PathStyle = projectCfg.S3.PathStyle
	}
	if f.s3Region != "" {
		opts.Region = f.s3Region
	}
	if f.s3Endpoint != "" {
		opts.Endpoint = f.s3Endpoint
	}
	if cmd.Flags().Changed("s3-path-style") {
		opts.PathStyle = f.s3PathStyle
	}
	return opts
}
