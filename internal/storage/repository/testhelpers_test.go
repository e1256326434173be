package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shortsos/shortsos/internal/migrations"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	storage, cleanup := startTestPostgres(t)

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))
	return storage, cleanup
}

// startTestPostgres поднимает пустой PostgreSQL в контейнере.
func startTestPostgres(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestVerification содержит проверки состояния базы.
type TestVerification struct {
	storage *Storage
}

func (v *TestVerification) credits(t *testing.T, userID string) int {
	var credits int
	err := v.storage.DB.QueryRow("SELECT credits FROM accounts WHERE user_id = $1", userID).Scan(&credits)
	require.NoError(t, err)
	return credits
}

func (v *TestVerification) count(t *testing.T, query string, args ...any) int {
	var n int
	require.NoError(t, v.storage.DB.QueryRow(query, args...).Scan(&n))
	return n
}
