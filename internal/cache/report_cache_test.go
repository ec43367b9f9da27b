package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

func TestMemoryRoundTripAndInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	var got payload
	ok, err := m.Get(ctx, "top", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "top", payload{Name: "Mouse", Qty: 3}))
	ok, err = m.Get(ctx, "top", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{Name: "Mouse", Qty: 3}, got)

	require.NoError(t, m.Invalidate(ctx))
	ok, err = m.Get(ctx, "top", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemory(30 * time.Second)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", payload{Qty: 1}))
	now = now.Add(31 * time.Second)

	var got payload
	ok, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDropsSetAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute)

	var got payload
	ok, err := m.Get(ctx, "hourly", &got)
	require.NoError(t, err)
	require.False(t, ok)

	// A write commits while the report is being computed.
	require.NoError(t, m.Invalidate(ctx))
	require.NoError(t, m.Set(ctx, "hourly", payload{Qty: 1}))

	ok, err = m.Get(ctx, "hourly", &got)
	require.NoError(t, err)
	assert.False(t, ok, "a report computed before the write must not be stored")

	require.NoError(t, m.Set(ctx, "hourly", payload{Qty: 2}))
	ok, err = m.Get(ctx, "hourly", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, got.Qty)
}

func TestNoopNeverHits(t *testing.T) {
	ctx := context.Background()
	var c ReportCache = Noop{}
	require.NoError(t, c.Set(ctx, "k", 1))
	var v int
	ok, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis("not-a-url", time.Minute)
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}

func TestNewPicksBackend(t *testing.T) {
	c, closeFn, err := New("", time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
	assert.NoError(t, closeFn())

	c, closeFn, err = New("", 0)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)
	assert.NoError(t, closeFn())

	_, _, err = New("not-a-url", time.Minute)
	assert.Error(t, err)
}
