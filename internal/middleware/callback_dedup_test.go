package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduperFirstDeliveryPasses(t *testing.T) {
	d := newMemoryCallbackDeduper(time.Minute)

	dup, err := d.Seen(context.Background(), "ORD1:T1")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestMemoryDeduperFlagsRedelivery(t *testing.T) {
	d := newMemoryCallbackDeduper(time.Minute)
	ctx := context.Background()

	_, err := d.Seen(ctx, "ORD1:T1")
	require.NoError(t, err)

	dup, err := d.Seen(ctx, "ORD1:T1")
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestMemoryDeduperKeysAreIndependent(t *testing.T) {
	d := newMemoryCallbackDeduper(time.Minute)
	ctx := context.Background()

	_, _ = d.Seen(ctx, "ORD1:T1")

	dup, err := d.Seen(ctx, "ORD1:T2")
	require.NoError(t, err)
	assert.False(t, dup, "a different tid for the same order is not a duplicate")
}

func TestMemoryDeduperExpiry(t *testing.T) {
	d := newMemoryCallbackDeduper(10 * time.Millisecond)
	ctx := context.Background()

	_, _ = d.Seen(ctx, "ORD1:T1")
	time.Sleep(20 * time.Millisecond)

	dup, err := d.Seen(ctx, "ORD1:T1")
	require.NoError(t, err)
	assert.False(t, dup, "expired keys are forgotten")
}

func TestNewCallbackDeduperWithoutRedisAddr(t *testing.T) {
	d, err := NewCallbackDeduper("", "", 0, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, d)

	dup, err := d.Seen(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, dup)
}
