package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerMutualExclusion(t *testing.T) {
	l := newMemoryOrderLocker(time.Minute)
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "refund:ORD1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Acquire(ctx, "refund:ORD1")
	require.NoError(t, err)
	assert.False(t, ok, "second acquire on a held key must fail")
}

func TestMemoryLockerReleaseFreesKey(t *testing.T) {
	l := newMemoryOrderLocker(time.Minute)
	ctx := context.Background()

	ok, _ := l.Acquire(ctx, "refund:ORD1")
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, "refund:ORD1"))

	ok, err := l.Acquire(ctx, "refund:ORD1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLockerTTLBoundsCrashedHolder(t *testing.T) {
	l := newMemoryOrderLocker(10 * time.Millisecond)
	ctx := context.Background()

	ok, _ := l.Acquire(ctx, "refund:ORD1")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err := l.Acquire(ctx, "refund:ORD1")
	require.NoError(t, err)
	assert.True(t, ok, "an expired hold no longer blocks")
}

func TestMemoryLockerKeysAreIndependent(t *testing.T) {
	l := newMemoryOrderLocker(time.Minute)
	ctx := context.Background()

	ok, _ := l.Acquire(ctx, "refund:ORD1")
	require.True(t, ok)

	ok, err := l.Acquire(ctx, "refund:ORD2")
	require.NoError(t, err)
	assert.True(t, ok)
}
