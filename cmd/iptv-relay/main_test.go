package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alorle/iptv-relay/cache"
	"github.com/alorle/iptv-relay/catalog"
	"github.com/alorle/iptv-relay/config"
	"github.com/alorle/iptv-relay/logging"
	"github.com/alorle/iptv-relay/registry"
)

func TestMergeHeaders(t *testing.T) {
	base := map[string]string{"User-Agent": "Mozilla/5.0", "Accept": "*/*"}
	merged := mergeHeaders(base, map[string]string{"User-Agent": "VLC/3.0.20"})

	assert.Equal(t, map[string]string{"User-Agent": "VLC/3.0.20", "Accept": "*/*"}, merged)
	assert.Equal(t, "Mozilla/5.0", base["User-Agent"], "base must not be modified")
}

func TestCatalogStores_Memory(t *testing.T) {
	cfg := config.Default()

	factory, pinger, closeFn, err := catalogStores(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer closeFn()

	assert.Nil(t, pinger)
	store := factory(catalog.Profile{Name: "sports", TTL: time.Hour})
	mem, ok := store.(*cache.MemoryStore[catalog.Catalog])
	require.True(t, ok)
	assert.Equal(t, time.Hour, mem.TTL())
}

func TestCatalogStores_InvalidRedisURL(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.RedisURL = "http://localhost:6379"

	_, _, _, err := catalogStores(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}

func TestNewFetcher_UsesEveryRelay(t *testing.T) {
	cfg := config.Default()
	f := newFetcher(cfg, nil, cfg.Fetch.Headers, logging.Discard())
	assert.NotNil(t, f)
}

func TestSweepRegistry_StopsWithContext(t *testing.T) {
	now := time.Now()
	reg := registry.New(registry.WithMaxAge(time.Minute), registry.WithClock(func() time.Time { return now }))
	reg.Register("https://h.example/a.m3u8", registry.Manifest)
	now = now.Add(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweepRegistry(ctx, reg, 5*time.Millisecond, logging.Discard())
		close(done)
	}()

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
