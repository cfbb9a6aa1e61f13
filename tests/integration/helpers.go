// Package integration contains end-to-end tests that provision a real
// PostgreSQL server in a disposable container.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"memosetup/core"
)

// Container configuration constants
const (
	postgresImage         = "postgres:15"
	postgresPort          = "5432/tcp"
	testDatabaseName      = "memo"
	testDatabasePassword  = "mark42"
	containerStartTimeout = 120 * time.Second
)

// setupPostgresContainer starts a disposable PostgreSQL container and
// returns a descriptor pointing at its mapped port. The wait strategy only
// covers the listening socket, so the readiness poll under test still has
// real work to do.
func setupPostgresContainer(t *testing.T, ctx context.Context) core.ConnectionDescriptor {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{postgresPort},
		Env: map[string]string{
			"POSTGRES_PASSWORD": testDatabasePassword,
			"POSTGRES_DB":       testDatabaseName,
		},
		WaitingFor: wait.ForListeningPort(postgresPort).
			WithStartupTimeout(containerStartTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start PostgreSQL container")

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err, "Failed to get PostgreSQL container host")

	mappedPort, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err, "Failed to get PostgreSQL mapped port")

	return core.ConnectionDescriptor{
		Kind:     core.BackendLocalPostgres,
		User:     "postgres",
		Password: testDatabasePassword,
		Host:     host,
		Port:     mappedPort.Int(),
		Database: testDatabaseName,
	}
}
