package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

func TestConnectionStringFromEnv(t *testing.T) {
	tests := []struct {
		name        string
		pgstageConn string
		databaseURL string
		want        string
	}{
		{name: "neither set", want: ""},
		{name: "database url only", databaseURL: "postgresql://a/db1", want: "postgresql://a/db1"},
		{name: "pgstage variable wins", pgstageConn: "postgresql://b/db2", databaseURL: "postgresql://a/db1", want: "postgresql://b/db2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PGSTAGE_CONNECTION_STRING", tt.pgstageConn)
			t.Setenv("DATABASE_URL", tt.databaseURL)
			if got := connectionStringFromEnv(); got != tt.want {
				t.Errorf("connectionStringFromEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveConnection(t *testing.T) {
	t.Run("connection string from environment", func(t *testing.T) {
		clearConnectionEnv(t)
		t.Setenv("PGSTAGE_CONNECTION_STRING", "postgresql://loader@db.example.com:5433/warehouse?sslmode=require")

		cfg, err := resolveConnection(connectionFlags{}, nil, "load", false)
		if err != nil {
			t.Fatalf("resolveConnection() error = %v", err)
		}
		if cfg.Host != "db.example.com" || cfg.Port != 5433 || cfg.Database != "warehouse" || cfg.SSLMode != "require" {
			t.Errorf("unexpected config: %+v", cfg)
		}
	})

	t.Run("database flag retargets a connection string", func(t *testing.T) {
		clearConnectionEnv(t)

		cfg, err := resolveConnection(connectionFlags{
			connection: "postgresql://loader@localhost/postgres",
			database:   "warehouse",
		}, nil, "load", false)
		if err != nil {
			t.Fatalf("resolveConnection() error = %v", err)
		}
		if cfg.Database != "warehouse" {
			t.Errorf("Database = %q, want warehouse", cfg.Database)
		}
	})

	t.Run("client certificate selects certificate auth", func(t *testing.T) {
		clearConnectionEnv(t)

		cfg, err := resolveConnection(connectionFlags{
			host:     "localhost",
			database: "warehouse",
			sslCert:  "/etc/certs/loader.crt",
			sslKey:   "/etc/certs/loader.key",
		}, nil, "load", false)
		if err != nil {
			t.Fatalf("resolveConnection() error = %v", err)
		}
		if cfg.AuthMethod != pgstage.AuthMethodCertificate {
			t.Errorf("AuthMethod = %v, want Certificate", cfg.AuthMethod)
		}
	})

	t.Run("explicit aws auth carries the region", func(t *testing.T) {
		clearConnectionEnv(t)

		cfg, err := resolveConnection(connectionFlags{
			host:       "db.abc.eu-west-1.rds.amazonaws.com",
			database:   "warehouse",
			username:   "loader",
			authMethod: "aws",
			awsRegion:  "eu-west-1",
		}, nil, "load", false)
		if err != nil {
			t.Fatalf("resolveConnection() error = %v", err)
		}
		if cfg.AuthMethod != pgstage.AuthMethodAWSIAM || cfg.AWSRegion != "eu-west-1" {
			t.Errorf("unexpected auth settings: method=%v region=%q", cfg.AuthMethod, cfg.AWSRegion)
		}
	})

	t.Run("unknown auth method", func(t *testing.T) {
		clearConnectionEnv(t)

		_, err := resolveConnection(connectionFlags{database: "warehouse", authMethod: "kerberos"}, nil, "load", false)
		if !errors.Is(err, pgstage.ErrUnsupportedAuthMethod) {
			t.Errorf("expected ErrUnsupportedAuthMethod, got %v", err)
		}
	})
}

func TestRequireDatabase(t *testing.T) {
	if err := requireDatabase("warehouse", "load"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := requireDatabase("", "check")
	if !errors.Is(err, pgstage.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "pgstage check") {
		t.Errorf("expected the command name in the guidance, got: %v", err)
	}
}
