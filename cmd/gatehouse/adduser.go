// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	authmemory "github.com/gatehouse/gatehouse/internal/auth/memory"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/store"
)

// Default timeout for the adduser command.
const defaultAddUserTimeout = 30 * time.Second

// addUserConfig holds configuration for the adduser subcommand.
type addUserConfig struct {
	username string
	password string
	timeout  time.Duration
}

// NewAddUserCmd creates the adduser subcommand.
func NewAddUserCmd() *cobra.Command {
	cfg := &addUserConfig{}

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Register a user from the command line",
		Long: `Registers a user directly against the database, running the same
validation and hashing as the HTTP register flow. Idempotent for an existing
username: reports it and exits cleanly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddUser(cmd, args, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.username, "username", "", "username to register (required)")
	cmd.Flags().StringVar(&cfg.password, "password", "", "password to register (required)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultAddUserTimeout, "timeout for database operations (e.g., 30s, 1m)")
	_ = cmd.MarkFlagRequired("username") //nolint:errcheck // flag exists
	_ = cmd.MarkFlagRequired("password") //nolint:errcheck // flag exists

	return cmd
}

func runAddUser(cmd *cobra.Command, _ []string, cfg *addUserConfig) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM; bound with a timeout
	// so a wedged database can't hang the command.
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Sessions aren't touched here, but the service constructor wants a
	// repository; an empty in-memory store satisfies it.
	service, err := auth.NewService(
		authpg.NewUserRepository(pool),
		authmemory.NewSessionStore(),
		auth.NewArgon2idHasher(),
	)
	if err != nil {
		return err
	}

	ref, err := service.Register(ctx, cfg.username, cfg.password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			cmd.Printf("User %q already exists, nothing to do\n", cfg.username)
			return nil
		}
		return err
	}

	cmd.Printf("Created user %q (id %s)\n", ref.Username, ref.ID.String())
	return nil
}
