// Package testdb starts a throwaway Postgres for integration tests.
package testdb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"collab-service/internal/config"
	"collab-service/internal/db"
)

// SkipEnv disables container startup when set to any non-empty value.
const SkipEnv = "NEXUS_SKIP_DB_TESTS"

// Start runs postgres:16-alpine, applies migrations and returns the pool
// with a cleanup func.
func Start(ctx context.Context) (*sqlx.DB, func(), error) {
	if os.Getenv(SkipEnv) != "" {
		return nil, nil, fmt.Errorf("%s is set", SkipEnv)
	}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("research_nexus"),
		postgres.WithUsername("nexus"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start container: %w", err)
	}
	terminate := func() {
		if err := container.Terminate(context.Background()); err != nil {
			slog.Warn("failed to terminate container", "error", err)
		}
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable", "application_name=test")
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := db.Connect(ctx, config.DatabaseConfig{
		DSN:             dsn,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
		ConnectTimeout:  30 * time.Second,
	}, slog.Default())
	if err != nil {
		terminate()
		return nil, nil, err
	}

	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}

// Truncate empties every service table between tests.
func Truncate(ctx context.Context, pool *sqlx.DB) error {
	_, err := pool.ExecContext(ctx, `TRUNCATE messages, conversation_participants, conversations, collaborator_matches, profiles`)
	return err
}
