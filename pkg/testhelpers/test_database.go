package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/floroz/gavel-listings/pkg/database"
)

type TestDatabase struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// NewTestDatabase starts a throwaway Postgres, applies the goose migrations
// from migrationsPath and registers cleanup on t.
func NewTestDatabase(t *testing.T, migrationsPath string) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(testcontainers.TestLogger(t)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %s", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	if err := database.Migrate(ctx, connStr, migrationsPath); err != nil {
		t.Fatalf("failed to migrate: %s", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect to database: %s", err)
	}
	if pingErr := pool.Ping(ctx); pingErr != nil {
		t.Fatalf("failed to ping database: %s", pingErr)
	}

	td := &TestDatabase{
		Container: pgContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
	t.Cleanup(td.Close)
	return td
}

// Truncate empties the given tables between subtests.
func (td *TestDatabase) Truncate(t *testing.T, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := td.Pool.Exec(context.Background(), "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Fatalf("failed to truncate %s: %s", table, err)
		}
	}
}

func (td *TestDatabase) Close() {
	td.Pool.Close()
	if termErr := td.Container.Terminate(context.Background()); termErr != nil {
		// Container teardown failures should not fail the test
		fmt.Printf("failed to terminate container: %v\n", termErr)
	}
}

// NewTestRabbitMQ starts a RabbitMQ container and returns its AMQP URL.
func NewTestRabbitMQ(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
		rabbitmq.WithAdminPassword("password"),
	)
	if err != nil {
		t.Fatalf("failed to start rabbitmq container: %s", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(context.Background()); termErr != nil {
			t.Logf("failed to terminate rabbitmq container: %s", termErr)
		}
	})

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get amqp url: %s", err)
	}
	return amqpURL
}
