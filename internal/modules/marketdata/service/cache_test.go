package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chart_analyst/internal/metrics"
	"chart_analyst/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetcherStub struct {
	calls  int
	series models.Series
	err    error
}

func (f *fetcherStub) Candles(_ context.Context, _, _ string, _ int) (models.Series, error) {
	f.calls++
	return f.series, f.err
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		s.Close()
	})
	return s, client
}

func stubSeries(t *testing.T) models.Series {
	t.Helper()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		{Time: start, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Time: start.Add(time.Hour), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 11},
	}
	s, err := models.NewSeries("BTC-USDT", "1h", bars)
	require.NoError(t, err)
	return s
}

func TestCachedFetcher_HitAfterMiss(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	next := &fetcherStub{series: stubSeries(t)}
	m := metrics.New(nil)
	c := NewCachedFetcher(next, rdb, time.Minute, m)

	first, err := c.Candles(context.Background(), "BTC-USDT", "1h", 2)
	require.NoError(t, err)
	second, err := c.Candles(context.Background(), "BTC-USDT", "1h", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first.Closes(), second.Closes())
	assert.Equal(t, "1h", second.Timeframe())
	for i, b := range second.Bars() {
		assert.True(t, b.Time.Equal(first.Bar(i).Time))
	}
	assert.True(t, mr.Exists(cacheKey("BTC-USDT", "1h", 2)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
}

func TestCachedFetcher_TTL(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	next := &fetcherStub{series: stubSeries(t)}
	c := NewCachedFetcher(next, rdb, 30*time.Second, nil)

	_, err := c.Candles(context.Background(), "BTC-USDT", "1h", 2)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL(cacheKey("BTC-USDT", "1h", 2)))

	mr.FastForward(31 * time.Second)
	_, err = c.Candles(context.Background(), "BTC-USDT", "1h", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedFetcher_RedisDownIsBypassed(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	mr.Close()

	next := &fetcherStub{series: stubSeries(t)}
	c := NewCachedFetcher(next, rdb, time.Minute, nil)

	s, err := c.Candles(context.Background(), "BTC-USDT", "1h", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, next.calls)
}

func TestCachedFetcher_UpstreamErrorNotCached(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	next := &fetcherStub{err: models.UpstreamError{Source: "okx", Err: errors.New("down")}}
	c := NewCachedFetcher(next, rdb, time.Minute, nil)

	_, err := c.Candles(context.Background(), "BTC-USDT", "1h", 2)
	var up models.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.False(t, mr.Exists(cacheKey("BTC-USDT", "1h", 2)))
}

func TestCachedFetcher_CorruptEntryRefetches(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("BTC-USDT", "1h", 2), "{not json"))

	next := &fetcherStub{series: stubSeries(t)}
	c := NewCachedFetcher(next, rdb, time.Minute, nil)

	s, err := c.Candles(context.Background(), "BTC-USDT", "1h", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, next.calls)
}
