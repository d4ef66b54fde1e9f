package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ConnectNeo4j builds the graph driver. Connectivity is probed but not
// required: the driver connects lazily, and retrieval is designed to
// proceed without the graph, so a down Neo4j must not block startup.
func ConnectNeo4j(cfg *Config) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		slog.Warn("Neo4j not reachable at startup, graph expansion degraded until it returns",
			"uri", cfg.Neo4jURI, "error", err)
	}

	return driver, nil
}
