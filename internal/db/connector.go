package db

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgstage/internal/retry"
	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns covers a load's single session plus the parallel
	// readers of check mode.
	DefaultMaxConns = 8

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps the session connection alive while a
	// large file is being parsed between batches.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, cfg *pgstage.ConnectionConfig) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
}

// newConnectExecutor builds the retry policy shared by every connector:
// DefaultRetryMaxAttempts attempts with exponential backoff starting at
// DefaultRetryInitialDelay and capped at DefaultRetryMaxDelay.
func newConnectExecutor() *retry.Executor {
	strategy := retry.NewExponentialBackoff(pgstage.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(pgstage.DefaultRetryInitialDelay),
		retry.WithMaxDelay(pgstage.DefaultRetryMaxDelay),
	)
	return retry.NewExecutor(retry.NewConnectClassifier(), strategy).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			fmt.Fprintf(os.Stderr, "Connection attempt %d failed, retrying in %v: %v\n", attempt+1, delay, err)
		})
}

// openPool parses connStr, creates the pool and pings it once.
func openPool(ctx context.Context, connStr string, cfg *pgstage.ConnectionConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w: %w", pgstage.ErrInvalidConfig, err)
	}

	configurePool(poolConfig, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}

	return pool, nil
}

// StandardConnector implements the Connector interface for password and
// client-certificate authentication with automatic retry on transient failures.
type StandardConnector struct {
	config        *pgstage.ConnectionConfig
	retryExecutor *retry.Executor
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
func NewStandardConnector(config *pgstage.ConnectionConfig) *StandardConnector {
	return &StandardConnector{
		config:        config,
		retryExecutor: newConnectExecutor(),
	}
}

// Connect establishes a connection pool using standard authentication with automatic retry.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	connStr := BuildConnectionString(c.config)

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		var err error
		pool, err = openPool(ctx, connStr, c.config)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}

var _ pgstage.Connector = (*StandardConnector)(nil)

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's AuthMethod. It satisfies pgstage.ConnectorFactory.
func NewConnector(config *pgstage.ConnectionConfig) (pgstage.Connector, error) {
	switch config.AuthMethod {
	case pgstage.AuthMethodStandard, pgstage.AuthMethodCertificate:
		return NewStandardConnector(config), nil
	case pgstage.AuthMethodAWSIAM:
		return newAWSConnector(config)
	case pgstage.AuthMethodGoogleIAM:
		return newGoogleConnector(config)
	case pgstage.AuthMethodAzureEntraID:
		return newAzureConnector(config)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, pgstage.ErrUnsupportedAuthMethod)
	}
}

var _ pgstage.ConnectorFactory = NewConnector

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
// Both pgstage.ErrConnectionFailed and the original error stay in the chain
// so the retry classifier can still inspect its SQLSTATE.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`%w: connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w`, pgstage.ErrConnectionFailed, addr, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`%w: cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable
  - Network connection issue

Original error: %w`, pgstage.ErrConnectionFailed, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`%w: password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or ~/.pgpass)
  - Wrong username
  - User does not have access to the database

Original error: %w`, pgstage.ErrConnectionFailed, database, err)

	case strings.Contains(errStr, `role "`) && strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`%w: login role does not exist on %s

Possible causes:
  - Wrong -U/--username, or $PGUSER points to another role
  - Cloud IAM user not yet created in the database

Original error: %w`, pgstage.ErrConnectionFailed, addr, err)

	case strings.Contains(errStr, "permission denied for database"):
		return fmt.Errorf(`%w: role may not connect to database "%s"

A load needs CONNECT on the database and TEMPORARY for its staging tables:
  GRANT CONNECT, TEMPORARY ON DATABASE %s TO <role>;

Original error: %w`, pgstage.ErrConnectionFailed, database, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`%w: database "%s" does not exist

pgstage loads into existing tables of an existing database; it never
creates either. Create the database and target tables first.

Original error: %w`, pgstage.ErrConnectionFailed, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`%w: connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Network latency or packet loss
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w`, pgstage.ErrConnectionFailed, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`%w: SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)
  - Client certificates missing (check --sslcert, --sslkey)

Original error: %w`, pgstage.ErrConnectionFailed, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`%w: too many connections to database "%s"

Possible causes:
  - max_connections limit reached in postgresql.conf
  - --parallel is higher than the server allows for this role
  - Stale sessions from interrupted loads

Original error: %w`, pgstage.ErrConnectionFailed, database, err)

	default:
		return fmt.Errorf("%w: failed to connect to database: %w", pgstage.ErrConnectionFailed, err)
	}
}

// newAWSConnector creates a token-based connector with the AWS IAM token provider.
func newAWSConnector(config *pgstage.ConnectionConfig) (pgstage.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %w", err)
	}

	return NewTokenBasedConnector(config, tokenProvider, "AWS IAM"), nil
}

// newGoogleConnector creates a GoogleCloudSQLConnector for Google Cloud SQL IAM authentication.
func newGoogleConnector(config *pgstage.ConnectionConfig) (pgstage.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", pgstage.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires username (-U): %w", pgstage.ErrInvalidConfig)
	}

	return NewGoogleCloudSQLConnector(config, config.GoogleInstance), nil
}

// newAzureConnector creates a token-based connector with the Azure Entra ID token provider.
// If explicit credentials (tenant, client, secret) are provided, uses Service Principal auth.
// Otherwise, falls back to DefaultAzureCredential chain.
func newAzureConnector(config *pgstage.ConnectionConfig) (pgstage.Connector, error) {
	var tokenProvider TokenProvider
	var err error

	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(
			config.AzureTenantID,
			config.AzureClientID,
			config.AzureClientSecret,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Service Principal provider: %w", err)
		}
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Default Credential provider: %w", err)
		}
	}

	return NewTokenBasedConnector(config, tokenProvider, "Azure"), nil
}
