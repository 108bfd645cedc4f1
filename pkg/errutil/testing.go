// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireOops unwraps err into its oops form, failing the test when err is
// not an oops error.
func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	return oopsErr
}

// AssertErrorCode asserts that err is an oops error carrying the given code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.Equal(t, code, requireOops(t, err).Code())
}

// AssertErrorIsCode asserts that err wraps the sentinel and carries the
// given oops code. Flow errors pair a sentinel for errors.Is dispatch with
// a code for logs, and tests usually want both pinned at once.
func AssertErrorIsCode(t *testing.T, err, sentinel error, code string) {
	t.Helper()
	assert.ErrorIs(t, err, sentinel)
	AssertErrorCode(t, err, code)
}

// AssertErrorContext asserts that err is an oops error whose context holds
// the given key/value pair.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	assert.Contains(t, ctx, key)
	assert.Equal(t, value, ctx[key])
}
