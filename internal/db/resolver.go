package db

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/vvka-141/pgstage/internal/config"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Note: Password is NOT included as a CLI flag for security reasons.
// Use one of these methods instead:
//  1. $PGPASSWORD environment variable
//  2. .pgpass file (PostgreSQL standard)
//  3. Connection string with embedded password
type GranularConnFlags struct {
	Host        string
	Port        int
	Username    string
	Database    string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

// IsEmpty returns true if no connection-related granular flags were provided by the user.
// Database is excluded because -d may retarget a connection string at another database.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == "" &&
		g.SSLCert == "" && g.SSLKey == "" && g.SSLRootCert == ""
}

// AuthFlags select and configure cloud authentication.
// Secrets (AZURE_CLIENT_SECRET) are only read from the environment.
type AuthFlags struct {
	Method         string // --auth-method; empty means infer
	AWSRegion      string // Overrides AWS_REGION
	GoogleInstance string // project:region:instance
	AzureTenantID  string // Overrides AZURE_TENANT_ID
	AzureClientID  string // Overrides AZURE_CLIENT_ID
}

// EnvVars represents PostgreSQL standard environment variables.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST            string // PostgreSQL server host
	PGPORT            string // PostgreSQL server port
	PGUSER            string // PostgreSQL username
	PGPASSWORD        string // PostgreSQL password (discouraged, use .pgpass instead)
	PGDATABASE        string // Target database name
	PGSSLMODE         string // SSL mode
	PGSSLCERT         string // Client certificate path
	PGSSLKEY          string // Client key path
	PGSSLROOTCERT     string // CA certificate path
	PGAPPNAME         string // application_name
	PGCONNECT_TIMEOUT string // Seconds
	DATABASE_URL      string // Full connection string (Heroku/Rails convention)

	AWS_REGION string

	// Azure Entra ID environment variables (Azure SDK standard names)
	AZURE_TENANT_ID     string // Azure AD tenant/directory ID
	AZURE_CLIENT_ID     string // Azure AD application/client ID
	AZURE_CLIENT_SECRET string // Azure AD client secret (for Service Principal auth)
}

// LoadFromEnvironment loads PostgreSQL and cloud provider environment variables.
// This follows standard PostgreSQL client behavior and Azure SDK conventions.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		PGSSLCERT:           os.Getenv("PGSSLCERT"),
		PGSSLKEY:            os.Getenv("PGSSLKEY"),
		PGSSLROOTCERT:       os.Getenv("PGSSLROOTCERT"),
		PGAPPNAME:           os.Getenv("PGAPPNAME"),
		PGCONNECT_TIMEOUT:   os.Getenv("PGCONNECT_TIMEOUT"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// HasAzureCredentials returns true if Azure Entra ID environment variables are set.
func (e *EnvVars) HasAzureCredentials() bool {
	return e.AZURE_TENANT_ID != "" || e.AZURE_CLIENT_ID != ""
}

// ResolveConnectionParams resolves the target connection using PostgreSQL-standard precedence:
//
//  1. Connection string flag (--connection)
//  2. DATABASE_URL, when no granular flags are given
//  3. Per parameter: granular flag > PG* environment variable > pgstage.yaml > default
//
// The -d flag retargets a connection string at another database.
//
// Authentication: --auth-method, then connection.auth_method in pgstage.yaml.
// Without either, Azure identifiers (flags or AZURE_* variables) select
// Azure Entra ID and a client certificate selects certificate auth.
//
// Returns an error if BOTH --connection and granular flags are provided.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	authFlags *AuthFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*pgstage.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if authFlags == nil {
		authFlags = &AuthFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U, --sslmode)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://user@localhost:5432/warehouse\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U loader -d warehouse\n"+
				"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=loader: %w",
			pgstage.ErrInvalidConfig,
		)
	}

	var cfg *pgstage.ConnectionConfig
	var err error

	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, granularFlags, envVars)
	case granularFlags.IsEmpty() && envVars.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(envVars.DATABASE_URL, granularFlags, envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AppName == "" {
		cfg.AppName = envVars.PGAPPNAME
	}
	if cfg.ConnectTimeout == 0 && envVars.PGCONNECT_TIMEOUT != "" {
		seconds, err := strconv.Atoi(envVars.PGCONNECT_TIMEOUT)
		if err != nil || seconds < 0 {
			return nil, fmt.Errorf("invalid $PGCONNECT_TIMEOUT value '%s': %w", envVars.PGCONNECT_TIMEOUT, pgstage.ErrInvalidConfig)
		}
		cfg.ConnectTimeout = time.Duration(seconds) * time.Second
	}

	if err := applyAuth(cfg, authFlags, envVars, pc); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyAuth picks the auth method and attaches the cloud settings it needs.
// Flags take precedence over environment variables, which take precedence over pgstage.yaml.
func applyAuth(cfg *pgstage.ConnectionConfig, flags *AuthFlags, env *EnvVars, pc config.ConnectionConfig) error {
	tenantID := firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
	clientID := firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)

	method := firstNonEmpty(flags.Method, pc.AuthMethod)
	if method != "" {
		m, err := pgstage.ParseAuthMethod(method)
		if err != nil {
			return err
		}
		cfg.AuthMethod = m
	} else if tenantID != "" || clientID != "" {
		cfg.AuthMethod = pgstage.AuthMethodAzureEntraID
	}

	switch cfg.AuthMethod {
	case pgstage.AuthMethodAzureEntraID:
		cfg.AzureTenantID = tenantID
		cfg.AzureClientID = clientID
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case pgstage.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case pgstage.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	case pgstage.AuthMethodStandard:
		if cfg.SSLCert != "" {
			cfg.AuthMethod = pgstage.AuthMethodCertificate
		}
	}

	return nil
}

// resolveFromConnectionString parses a connection string. The -d flag,
// when given, replaces its database, and PGPASSWORD fills a missing password.
func resolveFromConnectionString(connStr string, flags *GranularConnFlags, envVars *EnvVars) (*pgstage.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	if flags.Database != "" {
		cfg.Database = flags.Database
	}
	if cfg.Password == "" {
		cfg.Password = envVars.PGPASSWORD
	}

	return cfg, nil
}

// resolveFromGranularParams builds ConnectionConfig from granular flags,
// environment variables and pgstage.yaml.
//
// Precedence for each parameter (following PostgreSQL standards):
//  1. CLI flag (highest priority)
//  2. Environment variable
//  3. pgstage.yaml
//  4. Default value (lowest priority)
func resolveFromGranularParams(
	flags *GranularConnFlags,
	envVars *EnvVars,
	pc config.ConnectionConfig,
) (*pgstage.ConnectionConfig, error) {
	cfg := &pgstage.ConnectionConfig{
		AuthMethod:       pgstage.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstNonEmpty(flags.Host, envVars.PGHOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", envVars.PGPORT, pgstage.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}

	// Username falls back to the current OS user, as libpq does.
	cfg.Username = firstNonEmpty(flags.Username, envVars.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = envVars.PGPASSWORD
	cfg.Database = firstNonEmpty(flags.Database, envVars.PGDATABASE, pc.Database)
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, "prefer")
	cfg.SSLCert = firstNonEmpty(flags.SSLCert, envVars.PGSSLCERT, pc.SSLCert)
	cfg.SSLKey = firstNonEmpty(flags.SSLKey, envVars.PGSSLKEY, pc.SSLKey)
	cfg.SSLRootCert = firstNonEmpty(flags.SSLRootCert, envVars.PGSSLROOTCERT, pc.SSLRootCert)

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
