package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeta_GetAbsentKeyReturnsNil(t *testing.T) {
	meta := NewMeta(openTestStore(t))

	v, err := meta.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMeta_SetGetOverwriteDelete(t *testing.T) {
	ctx := context.Background()
	meta := NewMeta(openTestStore(t))

	require.NoError(t, meta.Set(ctx, MetaSessionToken, []byte("tok-1")))
	v, err := meta.Get(ctx, MetaSessionToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("tok-1"), v)

	require.NoError(t, meta.Set(ctx, MetaSessionToken, []byte("tok-2")))
	v, err = meta.Get(ctx, MetaSessionToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("tok-2"), v)

	require.NoError(t, meta.Delete(ctx, MetaSessionToken))
	v, err = meta.Get(ctx, MetaSessionToken)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMeta_Clear(t *testing.T) {
	ctx := context.Background()
	meta := NewMeta(openTestStore(t))

	require.NoError(t, meta.Set(ctx, MetaSessionToken, []byte("a")))
	require.NoError(t, meta.Set(ctx, MetaLastPull, []byte("b")))
	require.NoError(t, meta.Clear(ctx))

	for _, key := range []string{MetaSessionToken, MetaLastPull} {
		v, err := meta.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, v)
	}
}
