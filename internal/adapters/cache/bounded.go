package cache

import (
	"container/list"
	"sync"
	"time"
	"trip-route-engine/internal/platform/metrics"
)

// Option configures an in-memory cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now, for tests that need to move past a TTL.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

type entry[V any] struct {
	key      string
	value    V
	storedAt time.Time
}

// boundedTTL is a mutex-guarded map with a TTL and a size bound. Entries are
// kept in insertion order; a refresh counts as a new insertion. On overflow
// the oldest entry is evicted. Expired entries are removed lazily on read.
type boundedTTL[V any] struct {
	mu       sync.Mutex
	name     string
	ttl      time.Duration
	capacity int
	now      func() time.Time
	order    *list.List
	items    map[string]*list.Element
}

func newBoundedTTL[V any](name string, capacity int, ttl time.Duration, o options) *boundedTTL[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &boundedTTL[V]{
		name:     name,
		ttl:      ttl,
		capacity: capacity,
		now:      o.now,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

func (b *boundedTTL[V]) get(key string) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero V
	el, ok := b.items[key]
	if !ok {
		metrics.CacheLookups.WithLabelValues(b.name, "miss").Inc()
		return zero, false
	}

	e := el.Value.(*entry[V])
	if b.now().Sub(e.storedAt) >= b.ttl {
		b.order.Remove(el)
		delete(b.items, key)
		metrics.CacheLookups.WithLabelValues(b.name, "expired").Inc()
		return zero, false
	}

	metrics.CacheLookups.WithLabelValues(b.name, "hit").Inc()
	return e.value, true
}

func (b *boundedTTL[V]) put(key string, value V) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if el, ok := b.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.storedAt = now
		b.order.MoveToBack(el)
		return
	}

	b.items[key] = b.order.PushBack(&entry[V]{key: key, value: value, storedAt: now})

	for b.order.Len() > b.capacity {
		oldest := b.order.Front()
		b.order.Remove(oldest)
		delete(b.items, oldest.Value.(*entry[V]).key)
		metrics.CacheEvictions.WithLabelValues(b.name).Inc()
	}
}

func (b *boundedTTL[V]) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.items[key]
	return ok
}

func (b *boundedTTL[V]) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order.Init()
	b.items = make(map[string]*list.Element, b.capacity)
}

func (b *boundedTTL[V]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.order.Len()
}
