// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err is an oops error tagged with code.
func AssertErrorCode(tb testing.TB, err error, code string) {
	tb.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(tb, ok, "expected oops error, got %T", err)
	assert.Equal(tb, code, oopsErr.Code())
}

// AssertErrorContext asserts that err is an oops error carrying the
// given context key and value.
func AssertErrorContext(tb testing.TB, err error, key string, value any) {
	tb.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(tb, ok, "expected oops error, got %T", err)
	ctx := oopsErr.Context()
	require.Contains(tb, ctx, key)
	assert.Equal(tb, value, ctx[key])
}
