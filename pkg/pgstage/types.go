package pgstage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoadConfig contains all parameters needed for a load or check operation.
// It is supplied once at startup and treated as immutable for the run.
type LoadConfig struct {
	// InputDir is the directory (or object-store prefix) holding the source files.
	InputDir string

	// Connection is the resolved target database connection.
	Connection ConnectionConfig

	// Schema is the catalog schema searched for target tables.
	Schema string

	// BatchSize is the number of data rows per batch.
	BatchSize int

	// ProgressInterval reports progress every N batches.
	ProgressInterval int

	// Delimiter separates fields in source files.
	Delimiter rune

	// NoHeader treats the first record as data instead of a header row.
	NoHeader bool

	// FileExtension selects input files (case-insensitive), including the dot.
	FileExtension string

	// AllowUnmapped loads columns with unrecognised declared types as text
	// instead of failing the run.
	AllowUnmapped bool

	// TemporalLayouts are extra time.Parse layouts tried for date and timestamp columns.
	TemporalLayouts []string

	// TimeZone is the IANA zone used for timestamptz values written without
	// an offset. Empty means UTC.
	TimeZone string

	// Parallelism bounds concurrent file validation in check mode.
	Parallelism int

	// Timeout is the global timeout for the entire run (0 = none).
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool
}

// ApplyDefaults fills unset fields with package defaults.
func (c *LoadConfig) ApplyDefaults() {
	if c.Schema == "" {
		c.Schema = DefaultSchema
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ProgressInterval == 0 {
		c.ProgressInterval = DefaultProgressInterval
	}
	if c.Delimiter == 0 {
		c.Delimiter = DefaultDelimiter
	}
	if c.FileExtension == "" {
		c.FileExtension = DefaultFileExtension
	}
	if c.Parallelism == 0 {
		c.Parallelism = DefaultCheckParallelism
	}
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if c.InputDir == "" {
		errs = append(errs, fmt.Errorf("InputDir is required: %w", ErrInvalidConfig))
	}

	if c.Connection.Database == "" {
		errs = append(errs, fmt.Errorf("target database is required: %w", ErrInvalidConfig))
	}

	if !c.Connection.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("auth method %v: %w", c.Connection.AuthMethod, ErrInvalidConfig))
	}

	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d: %w", c.BatchSize, ErrInvalidConfig))
	}

	if c.ProgressInterval <= 0 {
		errs = append(errs, fmt.Errorf("progress interval must be positive, got %d: %w", c.ProgressInterval, ErrInvalidConfig))
	}

	if c.Delimiter == '"' || c.Delimiter == '\r' || c.Delimiter == '\n' || c.Delimiter == 0xFFFD {
		errs = append(errs, fmt.Errorf("invalid delimiter %q: %w", c.Delimiter, ErrInvalidConfig))
	}

	if !strings.HasPrefix(c.FileExtension, ".") {
		errs = append(errs, fmt.Errorf("file extension must start with a dot, got %q: %w", c.FileExtension, ErrInvalidConfig))
	}

	if c.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("parallelism must be at least 1: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			errs = append(errs, fmt.Errorf("unknown time zone %q: %w", c.TimeZone, ErrInvalidConfig))
		}
	}

	return errors.Join(errs...)
}

// Location returns the zone for offset-less timestamptz values.
// It falls back to UTC when TimeZone is empty or unknown; Validate reports the latter.
func (c *LoadConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Client certificate paths (mTLS)
	SSLCert     string
	SSLKey      string
	SSLRootCert string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID: if tenant, client and secret are all set, Service Principal
	// auth is used; otherwise the DefaultAzureCredential chain.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWS RDS IAM
	AWSRegion string

	// Google Cloud SQL instance connection name (project:region:instance)
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodCertificate                    // mTLS
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodCertificate:
		return "Certificate"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod maps a configuration string to an AuthMethod.
// An empty string selects standard authentication.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "certificate", "cert", "mtls":
		return AuthMethodCertificate, nil
	case "aws", "aws-iam", "aws_iam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam", "google_iam", "gcp":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure-entra-id", "entra":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("unknown auth method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}
