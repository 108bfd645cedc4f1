//go:build integration

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gatehouse/gatehouse/internal/store"
)

func TestMigrator_FullCycle(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrator, err := store.NewMigrator(connStr)
	require.NoError(t, err)
	defer migrator.Close()

	// Fresh database reads as version 0.
	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, migrator.Up())

	version, dirty, err = migrator.Version()
	require.NoError(t, err)
	assert.Greater(t, version, uint(0), "Up() should apply at least one migration")
	assert.False(t, dirty)

	// Up again is a no-op, not an error.
	require.NoError(t, migrator.Up())

	// The schema is actually usable.
	pool, err := store.Connect(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `INSERT INTO users (id, username, password_hash, created_at, updated_at)
		VALUES ('01JG00000000000000000000AA', 'sue', 'hash', now(), now())`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `INSERT INTO users (id, username, password_hash, created_at, updated_at)
		VALUES ('01JG00000000000000000000AB', 'SUE', 'hash', now(), now())`)
	assert.Error(t, err, "unique index on LOWER(username) must reject case-insensitive duplicates")

	require.NoError(t, migrator.Down())

	version, dirty, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)
}
