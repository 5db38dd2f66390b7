// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cache

import (
	"strconv"
	"sync"
	"testing"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string, int](10)
	c.Set("a", 1)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v, want 1, true", v, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) found a value never set")
	}

	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) after overwrite = %d, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheEviction(t *testing.T) {
	tests := []struct {
		name    string
		touch   string // key read before the overflowing Set
		evicted string
	}{
		{"oldest goes first", "", "a"},
		{"read refreshes", "a", "b"},
		{"head read keeps order", "c", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New[string, int](3)
			c.Set("a", 1)
			c.Set("b", 2)
			c.Set("c", 3)
			if tt.touch != "" {
				c.Get(tt.touch)
			}
			c.Set("d", 4)

			if c.Len() != 3 {
				t.Fatalf("Len() = %d, want 3", c.Len())
			}
			if _, ok := c.Get(tt.evicted); ok {
				t.Errorf("%q still cached", tt.evicted)
			}
			for _, k := range []string{"a", "b", "c", "d"} {
				if k == tt.evicted {
					continue
				}
				if _, ok := c.Get(k); !ok {
					t.Errorf("%q evicted, want %q", k, tt.evicted)
				}
			}
			if got := c.Stats().Evictions; got != 1 {
				t.Errorf("Evictions = %d, want 1", got)
			}
		})
	}
}

func TestCacheUnlimited(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		c := New[int, int](capacity)
		for i := range 1000 {
			c.Set(i, i)
		}
		if c.Len() != 1000 {
			t.Errorf("capacity %d: Len() = %d, want 1000", capacity, c.Len())
		}
		if st := c.Stats(); st.Capacity != 0 || st.Evictions != 0 {
			t.Errorf("capacity %d: stats = %v", capacity, st)
		}
	}
}

func TestCacheDeleteClear(t *testing.T) {
	c := New[string, int](4)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if !c.Delete("b") {
		t.Error("Delete(b) = false")
	}
	if c.Delete("b") {
		t.Error("second Delete(b) = true")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("b still cached after Delete")
	}

	// Deleting the middle entry must keep the list intact for eviction.
	c.Set("d", 4)
	c.Set("e", 5)
	c.Set("f", 6)
	if _, ok := c.Get("a"); ok {
		t.Error("a survived eviction after Delete")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	c.Set("g", 7)
	if v, ok := c.Get("g"); !ok || v != 7 {
		t.Errorf("Get(g) after Clear = %d, %v", v, ok)
	}
}

func TestCacheGetOrCreate(t *testing.T) {
	c := New[string, int](10)
	calls := 0
	create := func() int {
		calls++
		return 42
	}

	for range 3 {
		if v := c.GetOrCreate("k", create); v != 42 {
			t.Errorf("GetOrCreate = %d, want 42", v)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 {
		t.Errorf("stats = %v, want 2 hits 1 miss", st)
	}
}

func TestStatsHitRate(t *testing.T) {
	tests := []struct {
		hits, misses uint64
		want         float64
	}{
		{0, 0, 0},
		{1, 0, 1},
		{1, 3, 0.25},
	}
	for _, tt := range tests {
		s := Stats{Hits: tt.hits, Misses: tt.misses}
		if got := s.HitRate(); got != tt.want {
			t.Errorf("HitRate(%d/%d) = %v, want %v", tt.hits, tt.misses, got, tt.want)
		}
	}

	s := Stats{Len: 1, Capacity: 2, Hits: 3, Misses: 4, Evictions: 5}
	if got, want := s.String(), "Cache[1/2, 3 hits, 4 misses, 5 evicted]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := New[string, int](64)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				k := strconv.Itoa((g*500 + i) % 100)
				c.GetOrCreate(k, func() int { return i })
				c.Get(k)
			}
		}()
	}
	wg.Wait()

	if c.Len() > 64 {
		t.Errorf("Len() = %d exceeds capacity 64", c.Len())
	}
}
