package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/orderdesk/repository/memory"
)

func TestLeaseRepository(t *testing.T) {
	ctx := context.Background()
	clock := now
	leases := memory.NewLeaseRepositoryWithClock(func() time.Time { return clock })

	ok, err := leases.Acquire(ctx, "O1", "李审核", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = leases.Acquire(ctx, "O1", "张审核", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = leases.Acquire(ctx, "O1", "李审核", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "re-entrant")

	require.NoError(t, leases.Release(ctx, "O1", "张审核"))
	holder, err := leases.Holder(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, "李审核", holder, "only the holder can release")

	clock = clock.Add(2 * time.Minute)
	holder, err = leases.Holder(ctx, "O1")
	require.NoError(t, err)
	assert.Empty(t, holder)

	ok, err = leases.Acquire(ctx, "O1", "张审核", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease can be taken")
}
