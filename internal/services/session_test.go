package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

func TestNewSessionManager_NilDeps(t *testing.T) {
	connFactory := func(_ *pgstage.ConnectionConfig) (pgstage.Connector, error) {
		return &mockConnector{}, nil
	}

	tests := []struct {
		name string
		fn   func()
	}{
		{"nil connectorFactory", func() { NewSessionManager(nil, &mockLogger{}) }},
		{"nil logger", func() { NewSessionManager(connFactory, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("Expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestOpenSession_ConnectorFactoryFails(t *testing.T) {
	connFactory := func(_ *pgstage.ConnectionConfig) (pgstage.Connector, error) {
		return nil, pgstage.ErrUnsupportedAuthMethod
	}
	sm := NewSessionManager(connFactory, &mockLogger{})

	_, err := sm.OpenSession(context.Background(), &pgstage.ConnectionConfig{Database: "db"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "failed to create connector") {
		t.Errorf("Expected 'failed to create connector' in error, got: %v", err)
	}
	if !errors.Is(err, pgstage.ErrUnsupportedAuthMethod) {
		t.Errorf("Expected ErrUnsupportedAuthMethod, got: %v", err)
	}
}

func TestOpenSession_ConnectFails(t *testing.T) {
	connFactory := func(_ *pgstage.ConnectionConfig) (pgstage.Connector, error) {
		return &mockConnector{err: errors.New("connection refused")}, nil
	}
	sm := NewSessionManager(connFactory, &mockLogger{})

	_, err := sm.OpenSession(context.Background(), &pgstage.ConnectionConfig{Database: "db"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !errors.Is(err, pgstage.ErrConnectionFailed) {
		t.Errorf("Expected ErrConnectionFailed, got: %v", err)
	}
	if got := pgstage.ExitCodeForError(err); got != pgstage.ExitConnectionError {
		t.Errorf("ExitCodeForError = %d, want %d", got, pgstage.ExitConnectionError)
	}
}

func TestConnect_KeepsExistingSentinel(t *testing.T) {
	connFactory := func(_ *pgstage.ConnectionConfig) (pgstage.Connector, error) {
		return &mockConnector{err: pgstage.ErrConnectionFailed}, nil
	}
	sm := NewSessionManager(connFactory, &mockLogger{})

	_, err := sm.Connect(context.Background(), &pgstage.ConnectionConfig{Database: "db"})
	if !errors.Is(err, pgstage.ErrConnectionFailed) {
		t.Fatalf("Expected ErrConnectionFailed, got: %v", err)
	}
	if strings.Count(err.Error(), pgstage.ErrConnectionFailed.Error()) != 1 {
		t.Errorf("sentinel repeated in message: %v", err)
	}
}
