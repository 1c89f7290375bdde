// Package pgconnect opens short-lived pgx connections to the managed
// PostgreSQL servers in the fleet inventory. Connections are per-operation;
// the console never holds standing pools against managed instances.
package pgconnect

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgdeck/pgdeck/internal/models"
)

const connectTimeout = 10 * time.Second

// DSN builds the connection string for a registered server.
func DSN(srv *models.ServerModel) string {
	sslMode := srv.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=10",
		srv.Host, srv.Port, srv.Username, srv.Password, srv.Database, sslMode)
}

// Connect opens a single connection to a managed server.
func Connect(ctx context.Context, srv *models.ServerModel) (*pgx.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, DSN(srv))
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", srv.Name, err)
	}
	return conn, nil
}
