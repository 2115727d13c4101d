package api

import (
	"fmt"
	"testing"
	"time"
)

func TestReplayCacheKeysStayBounded(t *testing.T) {
	c := newReplayCache(4)
	for i := range 100 {
		key := fmt.Sprintf("POST /v1/tick k%d", i)
		unlock := c.lock(key)
		c.cache.Add(key, cachedResponse{status: 200})
		unlock()
	}
	if got := c.cache.Len(); got != 4 {
		t.Fatalf("cache len=%d want 4", got)
	}
	if got := len(c.keys); got != 0 {
		t.Fatalf("key locks=%d want 0 once idle", got)
	}
}

func TestReplayCacheSerialisesSameKey(t *testing.T) {
	c := newReplayCache(4)
	unlock := c.lock("k")

	acquired := make(chan func())
	go func() { acquired <- c.lock("k") }()
	select {
	case <-acquired:
		t.Fatal("second request ran while the first held the key")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	var second func()
	select {
	case second = <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second request never acquired the key")
	}
	c.mu.Lock()
	held := len(c.keys)
	c.mu.Unlock()
	if held != 1 {
		t.Fatalf("key locks=%d want 1 while held", held)
	}
	second()
	if len(c.keys) != 0 {
		t.Fatalf("key locks=%d want 0 after release", len(c.keys))
	}
}
