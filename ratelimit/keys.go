/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"container/list"
	"fmt"
	"sync"
)

// keyedLimiterStore is a bounded store of per-key limiter state with LRU eviction.
// It backs the fixed-rate limiters so that the number of tracked keys never
// exceeds maxEntries (the sliding window limiter reclaims idle keys instead).
type keyedLimiterStore[V any] struct {
	maxEntries int

	mu      sync.Mutex
	lruList *list.List
	entries map[string]*list.Element // map of entries, value is a lruList element
}

type keyedStoreEntry[V any] struct {
	key   string
	value V
}

func newKeyedLimiterStore[V any](maxEntries int) (*keyedLimiterStore[V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	return &keyedLimiterStore[V]{
		maxEntries: maxEntries,
		lruList:    list.New(),
		entries:    make(map[string]*list.Element),
	}, nil
}

// getOrAdd returns the value stored for the key, constructing and storing a new one
// with valueProvider if the key is absent. The oldest entry is evicted when the
// store is full.
func (s *keyedLimiterStore[V]) getOrAdd(key string, valueProvider func() V) V {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[key]; ok {
		s.lruList.MoveToFront(elem)
		return elem.Value.(*keyedStoreEntry[V]).value
	}

	value := valueProvider()
	s.entries[key] = s.lruList.PushFront(&keyedStoreEntry[V]{key: key, value: value})
	if s.lruList.Len() > s.maxEntries {
		oldest := s.lruList.Back()
		s.lruList.Remove(oldest)
		delete(s.entries, oldest.Value.(*keyedStoreEntry[V]).key)
	}
	return value
}

func (s *keyedLimiterStore[V]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
