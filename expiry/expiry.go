// Package expiry provides a time-ordered set of keys that expire after a
// fixed time-to-live.
package expiry

import (
	"container/list"
	"time"

	"github.com/benbjohnson/clock"
)

// Collection is a set of keys stamped with the time they were last added.
//
// Keys are kept in a list ordered from stalest to freshest. Adding a key
// again moves it to the fresh end, so timestamps never decrease when walking
// from the stale end and a sweep can stop at the first live key.
//
// Collection is not safe for concurrent use.
type Collection[K comparable] struct {
	ttl     time.Duration
	clock   clock.Clock
	order   *list.List
	index   map[K]*list.Element
	expired []K
}

type stamped[K comparable] struct {
	key K
	at  time.Time
}

// New creates a collection whose keys expire ttl after they were last added.
// A nil clk uses the wall clock.
func New[K comparable](ttl time.Duration, clk clock.Clock) *Collection[K] {
	if clk == nil {
		clk = clock.New()
	}
	return &Collection[K]{
		ttl:   ttl,
		clock: clk,
		order: list.New(),
		index: make(map[K]*list.Element),
	}
}

// TTL returns the expiry threshold.
func (c *Collection[K]) TTL() time.Duration {
	return c.ttl
}

// Add stamps key with the current time and moves it to the fresh end.
func (c *Collection[K]) Add(key K) {
	now := c.clock.Now()
	if elem, ok := c.index[key]; ok {
		elem.Value.(*stamped[K]).at = now
		c.order.MoveToBack(elem)
		return
	}
	c.index[key] = c.order.PushBack(&stamped[K]{key: key, at: now})
}

// AddAll adds every key in order.
func (c *Collection[K]) AddAll(keys ...K) {
	for _, key := range keys {
		c.Add(key)
	}
}

// Contains reports whether key is present and not expired.
func (c *Collection[K]) Contains(key K) bool {
	c.sweep()
	_, ok := c.index[key]
	return ok
}

// Len returns the number of live keys.
func (c *Collection[K]) Len() int {
	c.sweep()
	return c.order.Len()
}

// Items returns the live keys from stalest to freshest.
func (c *Collection[K]) Items() []K {
	c.sweep()
	items := make([]K, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		items = append(items, elem.Value.(*stamped[K]).key)
	}
	return items
}

// CollectExpired returns every key that expired since the last call and
// forgets about them.
func (c *Collection[K]) CollectExpired() []K {
	c.sweep()
	expired := c.expired
	c.expired = nil
	return expired
}

// isExpired compares ages in whole seconds. A key exactly at the boundary is
// still live.
func (c *Collection[K]) isExpired(at, now time.Time) bool {
	age := int64(now.Sub(at) / time.Second)
	return age > int64(c.ttl/time.Second)
}

func (c *Collection[K]) sweep() {
	now := c.clock.Now()
	for elem := c.order.Front(); elem != nil; elem = c.order.Front() {
		entry := elem.Value.(*stamped[K])
		if !c.isExpired(entry.at, now) {
			break
		}
		c.order.Remove(elem)
		delete(c.index, entry.key)
		c.expired = append(c.expired, entry.key)
	}
}
