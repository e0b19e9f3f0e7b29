package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docwatch/docwatch/internal/watch"
)

func TestMemoryAppendOnlyLog(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	key := watch.SnapshotKey{URL: "https://x/docs", APIName: "docs"}

	snap, err := m.LoadLatest(ctx, key)
	require.NoError(t, err)
	require.Nil(t, snap)

	require.NoError(t, m.Append(ctx, watch.Snapshot{URL: key.URL, APIName: key.APIName, ContentHash: "one"}))
	require.NoError(t, m.Append(ctx, watch.Snapshot{URL: key.URL, APIName: key.APIName, ContentHash: "two"}))

	snap, err = m.LoadLatest(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, "two", snap.ContentHash)
	require.Equal(t, 2, m.Len(key))

	// Distinct method names keep distinct logs.
	other := watch.SnapshotKey{URL: key.URL, APIName: key.APIName, MethodName: "get"}
	require.Zero(t, m.Len(other))
}
