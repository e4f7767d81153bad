// Package dbtest holds the conformance checks every db.Adapter must pass.
package dbtest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/recall/internal/db"
)

// RunAdapterTests exercises the key-value contract against a.
// Keys are prefixed with the test name so shared servers stay isolated.
func RunAdapterTests(t *testing.T, a db.Adapter) {
	t.Helper()
	ctx := context.Background()
	key := strings.ReplaceAll(t.Name(), "/", "_") + ".tracked_files.json"

	t.Run("absent", func(t *testing.T) {
		ok, err := a.Exists(ctx, key+".absent")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = a.Read(ctx, key+".absent")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("write then read", func(t *testing.T) {
		require.NoError(t, a.Write(ctx, key, []byte(`{"items":[]}`)))

		ok, err := a.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := a.Read(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `{"items":[]}`, string(got))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, a.Write(ctx, key, []byte("first")))
		require.NoError(t, a.Write(ctx, key, []byte("second")))

		got, err := a.Read(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, a.Write(ctx, key+".a", []byte("a")))
		require.NoError(t, a.Write(ctx, key+".b", []byte("b")))

		got, err := a.Read(ctx, key+".a")
		require.NoError(t, err)
		assert.Equal(t, "a", string(got))
	})
}
