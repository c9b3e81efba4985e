package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileObjectStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileObjectStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "spring.json", "application/json", []byte(`{"id":"spring"}`)))
	require.NoError(t, store.Put(ctx, "autumn.json", "application/json", []byte(`{"id":"autumn"}`)))

	data, err := store.Get(ctx, "spring.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"spring"}`, string(data))

	require.NoError(t, store.Put(ctx, "spring.json", "application/json", []byte(`{"id":"spring","round":2}`)))
	data, err = store.Get(ctx, "spring.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"spring","round":2}`, string(data))

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"autumn.json", "spring.json"}, keys)

	keys, err = store.List(ctx, "spr")
	require.NoError(t, err)
	assert.Equal(t, []string{"spring.json"}, keys)

	require.NoError(t, store.Delete(ctx, "spring.json"))
	_, err = store.Get(ctx, "spring.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "spring.json"), ErrObjectNotFound)
}

func TestFileObjectStore_RejectsPathKeys(t *testing.T) {
	store, err := NewFileObjectStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "../escape.json", "nested/key.json"} {
		err := store.Put(context.Background(), key, "", []byte("x"))
		assert.Error(t, err, "key %q", key)
	}
}

func TestNewFileObjectStore_RequiresDir(t *testing.T) {
	_, err := NewFileObjectStore("")
	assert.Error(t, err)
}
