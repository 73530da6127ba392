package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgstage/internal/config"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// newTestLoadCommand returns a detached command carrying the load flags,
// parsed from args.
func newTestLoadCommand(t *testing.T, args ...string) (*cobra.Command, *loadFlagValues) {
	t.Helper()
	f := &loadFlagValues{}
	cmd := &cobra.Command{Use: "load"}
	addLoadFlags(cmd, f)
	cmd.Flags().IntVar(&f.progressInterval, "progress-interval", pgstage.DefaultProgressInterval, "")
	cmd.Flags().IntVar(&f.parallel, "parallel", pgstage.DefaultCheckParallelism, "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v) error = %v", args, err)
	}
	return cmd, f
}

func writeProjectConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", config.ConfigFileName, err)
	}
}

func TestBuildLoadConfig_Defaults(t *testing.T) {
	clearConnectionEnv(t)
	dir := t.TempDir()
	cmd, f := newTestLoadCommand(t, "-d", "warehouse")

	cfg, projectCfg, err := buildLoadConfig(cmd, dir, f, false)
	if err != nil {
		t.Fatalf("buildLoadConfig() error = %v", err)
	}
	if projectCfg != nil {
		t.Errorf("expected no project config, got %+v", projectCfg)
	}

	if cfg.InputDir != dir {
		t.Errorf("InputDir = %q, want %q", cfg.InputDir, dir)
	}
	if cfg.Schema != pgstage.DefaultSchema {
		t.Errorf("Schema = %q, want %q", cfg.Schema, pgstage.DefaultSchema)
	}
	if cfg.BatchSize != pgstage.DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", cfg.BatchSize, pgstage.DefaultBatchSize)
	}
	if cfg.Delimiter != ',' {
		t.Errorf("Delimiter = %q, want ','", cfg.Delimiter)
	}
	if cfg.FileExtension != ".csv" {
		t.Errorf("FileExtension = %q, want .csv", cfg.FileExtension)
	}
	if cfg.NoHeader || cfg.AllowUnmapped {
		t.Errorf("NoHeader/AllowUnmapped should default to false: %+v", cfg)
	}
	if cfg.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", cfg.Timeout)
	}
	if cfg.Connection.Database != "warehouse" || cfg.Connection.Host != "localhost" {
		t.Errorf("unexpected connection: %+v", cfg.Connection)
	}
}

func TestBuildLoadConfig_YAMLThenFlags(t *testing.T) {
	clearConnectionEnv(t)
	dir := t.TempDir()
	writeProjectConfig(t, dir, `
connection:
  host: db.internal
  port: 6432
  database: warehouse
load:
  schema: sales
  batch_size: 500
  delimiter: semicolon
  has_header: false
  file_extension: tsv
  fail_on_unmapped_types: false
  temporal_layouts: ["02.01.2006"]
timeout: 90s
`)

	t.Run("yaml values apply when flags are not set", func(t *testing.T) {
		cmd, f := newTestLoadCommand(t)

		cfg, projectCfg, err := buildLoadConfig(cmd, dir, f, false)
		if err != nil {
			t.Fatalf("buildLoadConfig() error = %v", err)
		}
		if projectCfg == nil {
			t.Fatal("expected project config to be loaded")
		}
		if cfg.Schema != "sales" || cfg.BatchSize != 500 || cfg.Delimiter != ';' {
			t.Errorf("yaml load section not applied: %+v", cfg)
		}
		if !cfg.NoHeader || !cfg.AllowUnmapped || cfg.FileExtension != ".tsv" {
			t.Errorf("yaml flags not applied: %+v", cfg)
		}
		if len(cfg.TemporalLayouts) != 1 || cfg.TemporalLayouts[0] != "02.01.2006" {
			t.Errorf("TemporalLayouts = %v", cfg.TemporalLayouts)
		}
		if cfg.Timeout != 90*time.Second {
			t.Errorf("Timeout = %v, want 90s", cfg.Timeout)
		}
		if cfg.Connection.Host != "db.internal" || cfg.Connection.Port != 6432 || cfg.Connection.Database != "warehouse" {
			t.Errorf("yaml connection not applied: %+v", cfg.Connection)
		}
	})

	t.Run("explicit flags override yaml", func(t *testing.T) {
		cmd, f := newTestLoadCommand(t,
			"--batch-size", "250",
			"--schema", "staging",
			"--delimiter", "tab",
			"--extension", "csv",
			"--timeout", "5m",
			"--time-zone", "UTC",
			"-d", "reporting",
		)

		cfg, _, err := buildLoadConfig(cmd, dir, f, false)
		if err != nil {
			t.Fatalf("buildLoadConfig() error = %v", err)
		}
		if cfg.BatchSize != 250 || cfg.Schema != "staging" || cfg.Delimiter != '\t' {
			t.Errorf("flags did not override yaml: %+v", cfg)
		}
		if cfg.FileExtension != ".csv" {
			t.Errorf("FileExtension = %q, want .csv", cfg.FileExtension)
		}
		if cfg.TimeZone != "UTC" {
			t.Errorf("TimeZone = %q, want UTC", cfg.TimeZone)
		}
		if cfg.Timeout != 5*time.Minute {
			t.Errorf("Timeout = %v, want 5m", cfg.Timeout)
		}
		if cfg.Connection.Database != "reporting" {
			t.Errorf("Database = %q, want reporting", cfg.Connection.Database)
		}
		// Untouched settings still come from yaml.
		if !cfg.NoHeader || cfg.Connection.Host != "db.internal" {
			t.Errorf("yaml values lost: %+v", cfg)
		}
	})
}

func TestBuildLoadConfig_InvalidFlags(t *testing.T) {
	clearConnectionEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "multi-character delimiter", args: []string{"--delimiter", "ab"}},
		{name: "zero batch size", args: []string{"--batch-size", "0"}},
		{name: "negative progress interval", args: []string{"--progress-interval", "-1"}},
		{name: "zero parallelism", args: []string{"--parallel", "0"}},
		{name: "unknown time zone", args: []string{"--time-zone", "Mars/Olympus_Mons"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, f := newTestLoadCommand(t, append(tt.args, "-d", "warehouse")...)
			_, _, err := buildLoadConfig(cmd, t.TempDir(), f, false)
			if !errors.Is(err, pgstage.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadProjectConfig(t *testing.T) {
	t.Run("missing file in input dir is not an error", func(t *testing.T) {
		cfg, err := loadProjectConfig(t.TempDir(), "")
		if err != nil || cfg != nil {
			t.Errorf("expected (nil, nil), got (%v, %v)", cfg, err)
		}
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		_, err := loadProjectConfig(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, pgstage.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("explicit path wins over input dir", func(t *testing.T) {
		inputDir := t.TempDir()
		writeProjectConfig(t, inputDir, "load:\n  schema: from_input\n")
		other := t.TempDir()
		writeProjectConfig(t, other, "load:\n  schema: from_flag\n")

		cfg, err := loadProjectConfig(inputDir, filepath.Join(other, config.ConfigFileName))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Load.Schema != "from_flag" {
			t.Errorf("Schema = %q, want from_flag", cfg.Load.Schema)
		}
	})

	t.Run("invalid yaml values are config errors", func(t *testing.T) {
		dir := t.TempDir()
		writeProjectConfig(t, dir, "timeout: soon\n")
		_, err := loadProjectConfig(dir, "")
		if !errors.Is(err, pgstage.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestResolveEffectiveTimeout(t *testing.T) {
	projectCfg := &config.ProjectConfig{Timeout: "2m"}

	cmd, f := newTestLoadCommand(t)
	got, err := resolveEffectiveTimeout(cmd, projectCfg, f.timeout)
	if err != nil || got != 2*time.Minute {
		t.Errorf("yaml timeout: got (%v, %v), want 2m", got, err)
	}

	cmd, f = newTestLoadCommand(t, "--timeout", "10s")
	got, err = resolveEffectiveTimeout(cmd, projectCfg, f.timeout)
	if err != nil || got != 10*time.Second {
		t.Errorf("flag timeout: got (%v, %v), want 10s", got, err)
	}

	cmd, f = newTestLoadCommand(t)
	got, err = resolveEffectiveTimeout(cmd, nil, f.timeout)
	if err != nil || got != 0 {
		t.Errorf("no config: got (%v, %v), want 0", got, err)
	}
}

func TestS3Options(t *testing.T) {
	projectCfg := &config.ProjectConfig{S3: config.S3Config{
		Region:    "eu-central-1",
		Endpoint:  "http://minio:9000",
		PathStyle: true,
	}}

	cmd, f := newTestLoadCommand(t, "--s3-endpoint", "http://localhost:9000")
	opts := s3Options(cmd, f, projectCfg)
	if opts.Region != "eu-central-1" || opts.Endpoint != "http://localhost:9000" || !opts.PathStyle {
		t.Errorf("unexpected options: %+v", opts)
	}

	cmd, f = newTestLoadCommand(t, "--s3-path-style=false", "--s3-region", "us-east-1")
	opts = s3Options(cmd, f, projectCfg)
	if opts.Region != "us-east-1" || opts.PathStyle {
		t.Errorf("flags did not override yaml: %+v", opts)
	}
}
