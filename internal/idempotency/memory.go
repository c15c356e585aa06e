/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package idempotency

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryCache keeps recently applied keys in process memory and drops them
// once they are older than the TTL.
type MemoryCache struct {
	keys            map[string]time.Time
	mutex           sync.RWMutex
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	started  bool
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		keys:            make(map[string]time.Time),
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start runs the cleanup loop until Stop is called or ctx is cancelled.
func (c *MemoryCache) Start(ctx context.Context) {
	c.mutex.Lock()
	c.started = true
	c.mutex.Unlock()

	go c.cleanupLoop(ctx)
}

// Stop ends the cleanup loop and waits for it to exit.
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)

		c.mutex.RLock()
		started := c.started
		c.mutex.RUnlock()
		if started {
			<-c.doneChan
		}
	})
}

func (c *MemoryCache) Seen(_ context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	seenAt, exists := c.keys[key]
	if !exists {
		return false, nil
	}
	return c.now().Sub(seenAt) < c.ttl, nil
}

func (c *MemoryCache) Remember(_ context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.keys[key] = c.now()
	return nil
}

// Len returns the number of tracked keys.
func (c *MemoryCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.keys)
}

// cleanupLoop periodically removes expired keys
func (c *MemoryCache) cleanupLoop(ctx context.Context) {
	defer close(c.doneChan)

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// cleanup removes keys older than the TTL
func (c *MemoryCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cutoff := c.now().Add(-c.ttl)
	cleaned := 0

	for key, seenAt := range c.keys {
		if seenAt.Before(cutoff) {
			delete(c.keys, key)
			cleaned++
		}
	}

	if cleaned > 0 {
		zap.L().Debug("Cleaned up expired idempotency keys",
			zap.Int("cleaned", cleaned),
			zap.Int("remaining", len(c.keys)))
	}
}
