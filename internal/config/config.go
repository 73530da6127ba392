package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	SSLCert        string `yaml:"sslcert,omitempty"`
	SSLKey         string `yaml:"sslkey,omitempty"`
	SSLRootCert    string `yaml:"sslrootcert,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// LoadSection holds load defaults. Pointer fields distinguish "unset" from
// an explicit false.
type LoadSection struct {
	Schema              string   `yaml:"schema,omitempty"`
	BatchSize           int      `yaml:"batch_size,omitempty"`
	ProgressInterval    int      `yaml:"progress_interval,omitempty"`
	Delimiter           string   `yaml:"delimiter,omitempty"`
	HasHeader           *bool    `yaml:"has_header,omitempty"`
	FileExtension       string   `yaml:"file_extension,omitempty"`
	FailOnUnmappedTypes *bool    `yaml:"fail_on_unmapped_types,omitempty"`
	TemporalLayouts     []string `yaml:"temporal_layouts,omitempty"`
	TimeZone            string   `yaml:"time_zone,omitempty"`
	Parallel            int      `yaml:"parallel,omitempty"`
}

type S3Config struct {
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Load       LoadSection      `yaml:"load"`
	Timeout    string           `yaml:"timeout"`
	S3         S3Config         `yaml:"s3"`
}

const ConfigFileName = "pgstage.yaml"

// Load reads pgstage.yaml from dir.
func Load(dir string) (*ProjectConfig, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads a config file from an explicit path.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks values that cannot be caught by YAML decoding alone.
func (c *ProjectConfig) Validate() error {
	var errs []error

	if _, err := c.ParsedTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Load.Delimiter != "" {
		if _, err := ParseDelimiter(c.Load.Delimiter); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Load.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("load.batch_size cannot be negative: %w", pgstage.ErrInvalidConfig))
	}
	if c.Load.ProgressInterval < 0 {
		errs = append(errs, fmt.Errorf("load.progress_interval cannot be negative: %w", pgstage.ErrInvalidConfig))
	}
	if c.Load.Parallel < 0 {
		errs = append(errs, fmt.Errorf("load.parallel cannot be negative: %w", pgstage.ErrInvalidConfig))
	}
	if _, err := pgstage.ParseAuthMethod(c.Connection.AuthMethod); err != nil {
		errs = append(errs, fmt.Errorf("connection.auth_method: %w: %w", pgstage.ErrInvalidConfig, err))
	}

	return errors.Join(errs...)
}

// ParsedTimeout returns the configured timeout, or 0 when unset.
func (c *ProjectConfig) ParsedTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, pgstage.ErrInvalidConfig)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout cannot be negative: %w", pgstage.ErrInvalidConfig)
	}
	return d, nil
}

// ApplyTo copies every set field of the load section into cfg.
// Callers apply command-line overrides afterwards.
func (l LoadSection) ApplyTo(cfg *pgstage.LoadConfig) error {
	if l.Schema != "" {
		cfg.Schema = l.Schema
	}
	if l.BatchSize > 0 {
		cfg.BatchSize = l.BatchSize
	}
	if l.ProgressInterval > 0 {
		cfg.ProgressInterval = l.ProgressInterval
	}
	if l.Delimiter != "" {
		d, err := ParseDelimiter(l.Delimiter)
		if err != nil {
			return err
		}
		cfg.Delimiter = d
	}
	if l.HasHeader != nil {
		cfg.NoHeader = !*l.HasHeader
	}
	if l.FileExtension != "" {
		cfg.FileExtension = NormalizeExtension(l.FileExtension)
	}
	if l.FailOnUnmappedTypes != nil {
		cfg.AllowUnmapped = !*l.FailOnUnmappedTypes
	}
	if len(l.TemporalLayouts) > 0 {
		cfg.TemporalLayouts = append([]string(nil), l.TemporalLayouts...)
	}
	if l.TimeZone != "" {
		cfg.TimeZone = l.TimeZone
	}
	if l.Parallel > 0 {
		cfg.Parallelism = l.Parallel
	}
	return nil
}

// ParseDelimiter accepts a single character or one of the names
// "tab", "comma", "semicolon", "pipe" and the escape `\t`.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q: %w", s, pgstage.ErrInvalidConfig)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// NormalizeExtension adds the leading dot when missing.
func NormalizeExtension(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
