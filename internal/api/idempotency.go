package api

import (
	"bytes"
	"net/http"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

type cachedResponse struct {
	status int
	header http.Header
	body   []byte
}

// replayCache remembers responses to mutating requests by Idempotency-Key
// so a retried command is answered without running twice.
type replayCache struct {
	mu    sync.Mutex
	cache *lru.Cache
	keys  map[string]*keyLock
}

// keyLock is held by every request currently using a key. It is dropped once
// the last of them finishes.
type keyLock struct {
	sync.Mutex
	refs int
}

func newReplayCache(size int) *replayCache {
	c, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return &replayCache{cache: c, keys: make(map[string]*keyLock)}
}

// lock serialises requests sharing a key.
func (c *replayCache) lock(key string) func() {
	c.mu.Lock()
	kl, ok := c.keys[key]
	if !ok {
		kl = &keyLock{}
		c.keys[key] = kl
	}
	kl.refs++
	c.mu.Unlock()
	kl.Lock()
	return func() {
		kl.Unlock()
		c.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(c.keys, key)
		}
		c.mu.Unlock()
	}
}

type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.buf.Write(p)
	return r.ResponseWriter.Write(p)
}

func (s *Server) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := idempotencyKey(r)
		if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		cacheKey := r.Method + " " + r.URL.Path + " " + key
		unlock := s.replay.lock(cacheKey)
		defer unlock()

		if v, ok := s.replay.cache.Get(cacheKey); ok {
			cached := v.(cachedResponse)
			for k, vals := range cached.header {
				w.Header()[k] = vals
			}
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(cached.status)
			_, _ = w.Write(cached.body)
			return
		}

		rec := &recorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		// Server errors are not cached so the client can retry.
		if rec.status >= 500 || rec.status == 0 {
			return
		}
		s.replay.cache.Add(cacheKey, cachedResponse{
			status: rec.status,
			header: w.Header().Clone(),
			body:   append([]byte(nil), rec.buf.Bytes()...),
		})
		s.log.Debug("cached idempotent response", "key", key, "status", rec.status)
	})
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}
