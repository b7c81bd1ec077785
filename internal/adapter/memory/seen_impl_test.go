package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/nextdoor-crawler/internal/adapter/memory"
)

func TestSeenSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	seen, err := memory.NewSeenSetProvider().NewRun(ctx)
	require.NoError(t, err)

	for _, link := range []string{"a", "b", "a", "c", "b"} {
		_, err := seen.MarkSeen(ctx, link)
		require.NoError(t, err)
	}
	n, err := seen.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	isNew, err := seen.MarkSeen(ctx, "c")
	require.NoError(t, err)
	assert.False(t, isNew)

	require.NoError(t, seen.Release(ctx))
	n, err = seen.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
