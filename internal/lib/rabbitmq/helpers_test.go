package rabbitmq

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipRabbitMQTestsEnv = "true"

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// amqpURIForTest возвращает адрес брокера: внешний из TEST_RABBITMQ_URL
// или поднятый через testcontainers.
func amqpURIForTest(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()
	if testing.Short() || os.Getenv("SKIP_RABBITMQ_TESTS") == skipRabbitMQTestsEnv {
		t.Skip("skipping RabbitMQ integration test")
	}
	if uri := os.Getenv("TEST_RABBITMQ_URL"); uri != "" {
		t.Logf("Using external RabbitMQ service: %s", uri)
		return uri, func() {}
	}

	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-management",
		ExposedPorts: []string{"5672/tcp"},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": "guest",
			"RABBITMQ_DEFAULT_PASS": "guest",
		},
		WaitingFor: wait.ForListeningPort("5672/tcp").WithStartupTimeout(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port()), cleanup
}
