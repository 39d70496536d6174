// Package storetest contains a conformance suite for store.Backend
// implementations.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/stow/store"
)

// Run exercises the store.Backend contract against the backend returned by
// newBackend. A fresh backend is created for each subtest.
func Run(t *testing.T, newBackend func(t *testing.T) store.Backend) {
	t.Helper()

	t.Run("ok/put_get", func(t *testing.T) {
		b := newBackend(t)

		err := b.Put("ns", "key", []byte("value"), store.AccessibleAfterFirstUnlock)
		require.NoError(t, err)

		ok, err := b.Exists("ns", "key")
		require.NoError(t, err)
		assert.True(t, ok)

		val, err := b.Get("ns", "key")
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), val)
	})

	t.Run("ok/overwrite", func(t *testing.T) {
		b := newBackend(t)

		require.NoError(t, b.Put("ns", "key", []byte("one"), store.AccessibleAlways))
		require.NoError(t, b.Put("ns", "key", []byte("two"), store.AccessibleAlways))

		val, err := b.Get("ns", "key")
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), val)
	})

	t.Run("ok/namespace_isolation", func(t *testing.T) {
		b := newBackend(t)

		require.NoError(t, b.Put("a", "key", []byte("in a"), store.AccessibleAlways))
		require.NoError(t, b.Put("b", "key", []byte("in b"), store.AccessibleAlways))

		val, err := b.Get("a", "key")
		require.NoError(t, err)
		assert.Equal(t, []byte("in a"), val)

		require.NoError(t, b.DeleteAll("a"))

		ok, err := b.Exists("a", "key")
		require.NoError(t, err)
		assert.False(t, ok)

		val, err = b.Get("b", "key")
		require.NoError(t, err)
		assert.Equal(t, []byte("in b"), val)
	})

	t.Run("ok/delete", func(t *testing.T) {
		b := newBackend(t)

		require.NoError(t, b.Put("ns", "key", []byte("value"), store.AccessibleAlways))
		require.NoError(t, b.Delete("ns", "key"))

		ok, err := b.Exists("ns", "key")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = b.Get("ns", "key")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ok/delete_all", func(t *testing.T) {
		b := newBackend(t)

		for _, k := range []string{"k1", "k2", "k3"} {
			require.NoError(t, b.Put("ns", k, []byte(k), store.AccessibleAlways))
		}
		require.NoError(t, b.DeleteAll("ns"))

		for _, k := range []string{"k1", "k2", "k3"} {
			ok, err := b.Exists("ns", k)
			require.NoError(t, err)
			assert.False(t, ok, k)
		}

		if l, ok := b.(store.Lister); ok {
			keys, err := l.List("ns")
			require.NoError(t, err)
			assert.Empty(t, keys)
		}
	})

	t.Run("ok/empty_payload", func(t *testing.T) {
		b := newBackend(t)

		require.NoError(t, b.Put("ns", "key", []byte{}, store.AccessibleAlways))
		val, err := b.Get("ns", "key")
		require.NoError(t, err)
		assert.Empty(t, val)
	})

	t.Run("ok/list", func(t *testing.T) {
		b := newBackend(t)
		l, ok := b.(store.Lister)
		if !ok {
			t.Skip("backend doesn't support enumeration")
		}

		for _, k := range []string{"b", "a", "c"} {
			require.NoError(t, b.Put("ns", k, []byte(k), store.AccessibleAlways))
		}
		require.NoError(t, b.Put("other", "d", []byte("d"), store.AccessibleAlways))

		keys, err := l.List("ns")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, keys)
	})

	t.Run("ok/accessibility", func(t *testing.T) {
		b := newBackend(t)
		ar, ok := b.(store.AccessReader)
		if !ok {
			t.Skip("backend doesn't persist accessibility")
		}

		require.NoError(t, b.Put("ns", "custom", []byte("v"), store.AccessibleCustom))
		require.NoError(t, b.Put("ns", "always", []byte("v"), store.AccessibleAlways))

		access, err := ar.Accessibility("ns", "custom")
		require.NoError(t, err)
		assert.Equal(t, store.AccessibleCustom, access)

		access, err = ar.Accessibility("ns", "always")
		require.NoError(t, err)
		assert.Equal(t, store.AccessibleAlways, access)

		_, err = ar.Accessibility("ns", "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("err/get_missing", func(t *testing.T) {
		b := newBackend(t)

		_, err := b.Get("ns", "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("err/delete_missing", func(t *testing.T) {
		b := newBackend(t)

		err := b.Delete("ns", "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
