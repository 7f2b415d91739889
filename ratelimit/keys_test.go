/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedLimiterStore(t *testing.T) {
	store, err := newKeyedLimiterStore[int](2)
	require.NoError(t, err)

	calls := 0
	provider := func(v int) func() int {
		return func() int {
			calls++
			return v
		}
	}

	require.Equal(t, 1, store.getOrAdd("a", provider(1)))
	require.Equal(t, 2, store.getOrAdd("b", provider(2)))
	require.Equal(t, 2, calls)

	// Existing value is reused, the provider is not called again.
	require.Equal(t, 1, store.getOrAdd("a", provider(100)))
	require.Equal(t, 2, calls)

	// "b" is the least recently used now and gets evicted.
	require.Equal(t, 3, store.getOrAdd("c", provider(3)))
	require.Equal(t, 2, store.len())
	require.Equal(t, 4, store.getOrAdd("b", provider(4)))
	require.Equal(t, 4, calls)
}

func TestKeyedLimiterStoreMaxEntries(t *testing.T) {
	_, err := newKeyedLimiterStore[int](0)
	require.Error(t, err)

	store, err := newKeyedLimiterStore[int](10)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		store.getOrAdd(key, func() int { return i })
	}
	require.Equal(t, 10, store.len())
}
