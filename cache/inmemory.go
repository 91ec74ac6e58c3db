package cache

import (
	"context"
	"encoding/binary"
	"sync"
	"time"
)

const (
	janitorInterval = 5 * time.Minute
	counterSize     = 8
)

type memoryItem struct {
	value      []byte
	expiration time.Time
}

func (i *memoryItem) expired() bool {
	if i.expiration.IsZero() {
		return false
	}
	return time.Now().After(i.expiration)
}

// InMemory is a thread-safe in-process Store. It backs single-instance
// deployments and all unit tests.
type InMemory struct {
	items     sync.Map // map[string]*memoryItem
	closeMu   sync.Mutex
	stopClean chan struct{}
}

// NewInMemory creates an in-process store and starts its janitor.
func NewInMemory() *InMemory {
	c := &InMemory{stopClean: make(chan struct{})}
	go c.janitor()
	return c
}

func (c *InMemory) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.items.Range(func(key, value any) bool {
				if item, ok := value.(*memoryItem); ok && item.expired() {
					c.items.Delete(key)
				}
				return true
			})
		case <-c.stopClean:
			return
		}
	}
}

func (c *InMemory) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := c.items.Load(key)
	if !ok {
		return nil, false, nil
	}

	item, ok := value.(*memoryItem)
	if !ok || item.expired() {
		c.items.Delete(key)
		return nil, false, nil
	}

	return item.value, true, nil
}

func (c *InMemory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := &memoryItem{value: value}
	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}
	c.items.Store(key, item)
	return nil
}

func (c *InMemory) Delete(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

func (c *InMemory) Exists(_ context.Context, key string) (bool, error) {
	value, ok := c.items.Load(key)
	if !ok {
		return false, nil
	}
	if item, itemOK := value.(*memoryItem); itemOK && item.expired() {
		c.items.Delete(key)
		return false, nil
	}
	return true, nil
}

// Expire replaces the key's expiration, keeping its value. The swap retries
// until it lands so a concurrent Increment cannot strip the deadline off a
// counter.
func (c *InMemory) Expire(_ context.Context, key string, ttl time.Duration) error {
	for {
		value, ok := c.items.Load(key)
		if !ok {
			return nil
		}

		item, ok := value.(*memoryItem)
		if !ok || item.expired() {
			return nil
		}

		next := &memoryItem{value: item.value}
		if ttl > 0 {
			next.expiration = time.Now().Add(ttl)
		}
		if c.items.CompareAndSwap(key, value, next) {
			return nil
		}
		// CAS lost, retry.
	}
}

// Increment atomically adds delta to the counter stored at key, creating it
// at zero when absent. The stored expiration survives the update.
func (c *InMemory) Increment(_ context.Context, key string, delta int64) (int64, error) {
	for {
		value, loaded := c.items.Load(key)

		var current int64
		var prev *memoryItem
		if loaded {
			if item, ok := value.(*memoryItem); ok {
				prev = item
				if item.expired() {
					c.items.Delete(key)
					prev = nil
				} else if len(item.value) >= counterSize {
					current = int64(binary.BigEndian.Uint64(item.value)) //nolint:gosec // counter round-trip
				}
			}
		}

		next := current + delta
		encoded := make([]byte, counterSize)
		binary.BigEndian.PutUint64(encoded, uint64(next)) //nolint:gosec // counter round-trip

		item := &memoryItem{value: encoded}
		if prev != nil {
			item.expiration = prev.expiration
		}

		if prev != nil {
			if c.items.CompareAndSwap(key, value, item) {
				return next, nil
			}
		} else {
			if _, raced := c.items.LoadOrStore(key, item); !raced {
				return next, nil
			}
		}
		// CAS lost, retry.
	}
}

func (c *InMemory) SupportsPerKeyTTL() bool {
	return true
}

func (c *InMemory) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	select {
	case <-c.stopClean:
		return nil
	default:
		close(c.stopClean)
	}
	return nil
}
