// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package memory_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/memory"
)

func mustNewUser(t *testing.T, username string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(username, "hash-"+username)
	require.NoError(t, err)
	return user
}

func TestUserStore_Create(t *testing.T) {
	ctx := t.Context()

	t.Run("stores and retrieves user", func(t *testing.T) {
		store := memory.NewUserStore()
		user := mustNewUser(t, "sue")

		require.NoError(t, store.Create(ctx, user))

		got, err := store.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Username, got.Username)
		assert.Equal(t, user.PasswordHash, got.PasswordHash)
	})

	t.Run("rejects duplicate username", func(t *testing.T) {
		store := memory.NewUserStore()
		require.NoError(t, store.Create(ctx, mustNewUser(t, "sue")))

		err := store.Create(ctx, mustNewUser(t, "sue"))
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)
	})

	t.Run("rejects duplicate username in different case", func(t *testing.T) {
		store := memory.NewUserStore()
		require.NoError(t, store.Create(ctx, mustNewUser(t, "sue")))

		err := store.Create(ctx, mustNewUser(t, "Sue"))
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)
	})

	t.Run("store keeps its own copy", func(t *testing.T) {
		store := memory.NewUserStore()
		user := mustNewUser(t, "sue")
		require.NoError(t, store.Create(ctx, user))

		user.PasswordHash = "mutated"

		got, err := store.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "hash-sue", got.PasswordHash)
	})

	t.Run("concurrent registrations resolve to one winner", func(t *testing.T) {
		store := memory.NewUserStore()

		const attempts = 32
		errs := make([]error, attempts)
		var wg sync.WaitGroup
		for i := range attempts {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.Create(ctx, mustNewUser(t, "sue"))
			}(i)
		}
		wg.Wait()

		var won int
		for _, err := range errs {
			if err == nil {
				won++
			} else {
				assert.ErrorIs(t, err, auth.ErrUsernameTaken)
			}
		}
		assert.Equal(t, 1, won)
	})
}

func TestUserStore_GetByUsername(t *testing.T) {
	ctx := t.Context()
	store := memory.NewUserStore()
	user := mustNewUser(t, "sue")
	require.NoError(t, store.Create(ctx, user))

	t.Run("finds user case-insensitively", func(t *testing.T) {
		got, err := store.GetByUsername(ctx, "SUE")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "sue", got.Username, "stored casing is preserved")
	})

	t.Run("unknown username reports not found", func(t *testing.T) {
		_, err := store.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserStore_List(t *testing.T) {
	ctx := t.Context()
	store := memory.NewUserStore()

	t.Run("empty store lists nothing", func(t *testing.T) {
		refs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("lists users ordered by id", func(t *testing.T) {
		// ULIDs are monotonic enough within one process that creation
		// order and id order coincide here.
		alice := mustNewUser(t, "alice")
		bob := mustNewUser(t, "bob")
		require.NoError(t, store.Create(ctx, alice))
		require.NoError(t, store.Create(ctx, bob))

		refs, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, refs, 2)
		assert.True(t, refs[0].ID.Compare(refs[1].ID) < 0)
	})
}

func TestUserStore_UpdatePassword(t *testing.T) {
	ctx := t.Context()
	store := memory.NewUserStore()
	user := mustNewUser(t, "sue")
	require.NoError(t, store.Create(ctx, user))

	t.Run("replaces stored hash", func(t *testing.T) {
		require.NoError(t, store.UpdatePassword(ctx, user.ID, "newhash"))

		got, err := store.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "newhash", got.PasswordHash)
	})

	t.Run("unknown id reports not found", func(t *testing.T) {
		err := store.UpdatePassword(ctx, mustNewUser(t, "ghost").ID, "newhash")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}
