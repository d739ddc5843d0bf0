// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "demo:7:dot", Key("demo", 7, "dot"))
	assert.Equal(t, "demo:7:cycles:unique", Key("demo", 7, "cycles", "unique"))
}

func TestLRU_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, 0)

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	val, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), val)

	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, 0)

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))
	_, _, _ = c.Get(ctx, "a") // a is now most recent
	require.NoError(t, c.Set(ctx, "c", []byte("3")))

	_, ok, _ := c.Get(ctx, "b")
	assert.False(t, ok, "b should have been evicted")
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Evictions())
	assert.Equal(t, 2, c.Len())
}

func TestLRU_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(4, 0)

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf))
	buf[0] = 'x'

	val, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(val))
	val[0] = 'y'

	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestLRU_TTL(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(4, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	now = now.Add(30 * time.Second)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRU_DeleteGraph(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(10, 0)
	require.NoError(t, c.Set(ctx, Key("app", 1, "dot"), []byte("x")))
	require.NoError(t, c.Set(ctx, Key("app", 2, "scc"), []byte("x")))
	require.NoError(t, c.Set(ctx, Key("application", 1, "dot"), []byte("x")))

	require.NoError(t, c.DeleteGraph(ctx, "app"))
	assert.Equal(t, 1, c.Len())
	_, ok, _ := c.Get(ctx, Key("application", 1, "dot"))
	assert.True(t, ok)
}

func TestLRU_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(50, 0)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (w*31+i)%100)
				_ = c.Set(ctx, key, []byte(key))
				_, _, _ = c.Get(ctx, key)
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Config{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(ctx, DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &LRU{}, c)

	_, err = New(ctx, Config{Backend: "memcached"})
	assert.Error(t, err)

	_, err = New(ctx, Config{Backend: "redis"})
	assert.Error(t, err)
}
