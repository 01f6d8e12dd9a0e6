// Package arangodb dials the shared ArangoDB connection used by the graph
// client backend. It owns only connection setup; query shape and document
// decoding are the graph client's concern, since they're tied to RDE's
// node/edge model rather than to the driver itself.
package arangodb

import (
	"context"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
)

// Config names the connection parameters for a single ArangoDB deployment.
type Config struct {
	URL      string
	Username string
	Password string
	Database string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("arangodb URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("arangodb username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("arangodb database name is required")
	}
	return nil
}

// Dial opens an HTTP/2 connection to ArangoDB, authenticates, and resolves
// the configured database handle.
func Dial(ctx context.Context, cfg Config) (arangodb.Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("arangodb config: %w", err)
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))
	if err := conn.SetAuthentication(connection.NewBasicAuth(cfg.Username, cfg.Password)); err != nil {
		return nil, fmt.Errorf("arangodb auth: %w", err)
	}

	client := arangodb.NewClient(conn)
	db, err := client.GetDatabase(ctx, cfg.Database, nil)
	if err != nil {
		return nil, fmt.Errorf("get database %q: %w", cfg.Database, err)
	}
	return db, nil
}
