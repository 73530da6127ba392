package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgstage/internal/config"
	"github.com/vvka-141/pgstage/internal/db"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// connectionFlags holds the connection-related flag values shared by the
// load, check and describe commands.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	sslCert        string
	sslKey         string
	sslRootCert    string
	authMethod     string
	awsRegion      string
	googleInstance string
	azureTenantID  string
	azureClientID  string
}

// addConnectionFlags registers the connection flags on cmd.
func addConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	// Connection string flag (mutually exclusive with granular flags)
	cmd.Flags().StringVar(&f.connection, "connection", "",
		"PostgreSQL connection string (URI or ADO.NET format).\n"+
			"Mutually exclusive with granular flags (--host, --port, --username).\n"+
			"Alternative: Use PGSTAGE_CONNECTION_STRING or DATABASE_URL environment variable.\n"+
			"Example: postgresql://loader@localhost:5432/warehouse")

	// Granular connection flags (PostgreSQL standard)
	// Precedence: flag > environment variable > pgstage.yaml > default
	cmd.Flags().StringVarP(&f.host, "host", "h", "",
		"PostgreSQL server host\n"+
			"Precedence: --host > $PGHOST > pgstage.yaml > localhost")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0,
		"PostgreSQL server port\n"+
			"Precedence: --port > $PGPORT > pgstage.yaml > 5432")
	cmd.Flags().StringVarP(&f.username, "username", "U", "",
		"PostgreSQL user (default: $PGUSER or current OS user)")
	cmd.Flags().StringVarP(&f.database, "database", "d", "",
		"Target database name (or $PGDATABASE)\n"+
			"Overrides the database of a connection string")
	cmd.Flags().StringVar(&f.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")
	cmd.Flags().StringVar(&f.sslCert, "sslcert", "",
		"Client certificate file; enables certificate authentication (or $PGSSLCERT)")
	cmd.Flags().StringVar(&f.sslKey, "sslkey", "",
		"Client private key file (or $PGSSLKEY)")
	cmd.Flags().StringVar(&f.sslRootCert, "sslrootcert", "",
		"CA certificate used to verify the server (or $PGSSLROOTCERT)")

	// Cloud authentication
	cmd.Flags().StringVar(&f.authMethod, "auth-method", "",
		"Authentication method: standard|certificate|aws|google|azure\n"+
			"Default: inferred from the other flags and environment")
	cmd.Flags().StringVar(&f.awsRegion, "aws-region", "",
		"AWS region for RDS IAM tokens (overrides $AWS_REGION)")
	cmd.Flags().StringVar(&f.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")
	cmd.Flags().StringVar(&f.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	cmd.Flags().StringVar(&f.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")

	_ = cmd.RegisterFlagCompletionFunc("sslmode", completeSSLModes)
	_ = cmd.RegisterFlagCompletionFunc("auth-method", completeAuthMethods)
}

// connectionStringFromEnv returns the first non-empty connection string from
// PGSTAGE_CONNECTION_STRING or DATABASE_URL environment variables.
func connectionStringFromEnv() string {
	if s := os.Getenv("PGSTAGE_CONNECTION_STRING"); s != "" {
		return s
	}
	return os.Getenv("DATABASE_URL")
}

// resolveConnection resolves the target connection from flags, environment
// and pgstage.yaml, and makes sure a target database is known.
func resolveConnection(
	flags connectionFlags,
	projectCfg *config.ProjectConfig,
	commandName string,
	verbose bool,
) (*pgstage.ConnectionConfig, error) {
	granularFlags := &db.GranularConnFlags{
		Host:        flags.host,
		Port:        flags.port,
		Username:    flags.username,
		Database:    flags.database,
		SSLMode:     flags.sslMode,
		SSLCert:     flags.sslCert,
		SSLKey:      flags.sslKey,
		SSLRootCert: flags.sslRootCert,
	}

	authFlags := &db.AuthFlags{
		Method:         flags.authMethod,
		AWSRegion:      flags.awsRegion,
		GoogleInstance: flags.googleInstance,
		AzureTenantID:  flags.azureTenantID,
		AzureClientID:  flags.azureClientID,
	}

	connString := flags.connection
	if connString == "" && granularFlags.IsEmpty() {
		connString = connectionStringFromEnv()
	}

	connConfig, err := db.ResolveConnectionParams(
		connString,
		granularFlags,
		authFlags,
		db.LoadFromEnvironment(),
		projectCfg,
	)
	if err != nil {
		return nil, err
	}

	if err := requireDatabase(connConfig.Database, commandName); err != nil {
		return nil, err
	}

	if verbose {
		logConnectionVerbose(connConfig)
	}
	return connConfig, nil
}

// requireDatabase fails with usage guidance when no database is known.
func requireDatabase(database, commandName string) error {
	if database == "" {
		return fmt.Errorf("database name is required\n"+
			"Provide via:\n"+
			"  1. --database/-d flag: pgstage %s ./exports -d warehouse\n"+
			"  2. Connection string: pgstage %s ./exports --connection \"postgresql://user@host/warehouse\"\n"+
			"  3. Environment variable: export PGDATABASE=warehouse\n"+
			"  4. pgstage.yaml: connection.database: %w",
			commandName, commandName, pgstage.ErrInvalidConfig)
	}
	return nil
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(connConfig *pgstage.ConnectionConfig) {
	fmt.Fprintf(os.Stderr, "[VERBOSE] Connection resolved:\n")
	fmt.Fprintf(os.Stderr, "  Host: %s\n", connConfig.Host)
	fmt.Fprintf(os.Stderr, "  Port: %d\n", connConfig.Port)
	fmt.Fprintf(os.Stderr, "  User: %s\n", connConfig.Username)
	fmt.Fprintf(os.Stderr, "  Database: %s\n", connConfig.Database)
	fmt.Fprintf(os.Stderr, "  SSL Mode: %s\n", connConfig.SSLMode)
	if connConfig.SSLCert != "" {
		fmt.Fprintf(os.Stderr, "  SSL Cert: %s\n", connConfig.SSLCert)
	}
	if connConfig.SSLKey != "" {
		fmt.Fprintf(os.Stderr, "  SSL Key: %s\n", connConfig.SSLKey)
	}
	if connConfig.SSLRootCert != "" {
		fmt.Fprintf(os.Stderr, "  SSL Root Cert: %s\n", connConfig.SSLRootCert)
	}
	fmt.Fprintf(os.Stderr, "  Auth Method: %s\n", connConfig.AuthMethod)
}
