package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/stow/store/memory"
)

// assertPointer fails compilation if *T can't be used with Save and Get.
func assertPointer[T any, PT Pointer[T]]() {}

func TestBlob(t *testing.T) {
	t.Parallel()

	assertPointer[Blob]()
	assertPointer[Profile]()
	assertPointer[Settings]()

	s, err := New(memory.New(), testNS)
	require.NoError(t, err)

	require.NoError(t, Save(s, &Blob{Key: "raw", Data: []byte("data")}))

	got := &Blob{Data: []byte("stale and longer")}
	require.NoError(t, s.Load("raw", got))
	assert.Equal(t, []byte("data"), got.Data)
	assert.Equal(t, []string{"raw"}, s.AllKeys())
}
