package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/logger"
)

// Memory is a process-local cache with TTL and a size bound. The oldest
// entry is evicted when the bound is reached.
type Memory struct {
	mu      sync.Mutex
	data    map[string]memoryEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	createdAt time.Time
	expiresAt time.Time
}

// NewMemory creates a Memory cache. maxSize <= 0 means unbounded.
func NewMemory(ttl time.Duration, maxSize int) *Memory {
	return &Memory{data: make(map[string]memoryEntry), ttl: ttl, maxSize: maxSize, now: time.Now}
}

func (m *Memory) Put(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; !exists && m.maxSize > 0 && len(m.data) >= m.maxSize {
		m.evictOldestLocked()
	}
	now := m.now()
	m.data[key] = memoryEntry{value: b, createdAt: now, expiresAt: now.Add(m.ttl)}
	logger.Log.Debug("cache put", zap.String("key", key), zap.Int("size", len(m.data)))
	return nil
}

func (m *Memory) Take(_ context.Context, key string, dst any) error {
	m.mu.Lock()
	e, ok := m.data[key]
	delete(m.data, key)
	m.mu.Unlock()
	if !ok || m.now().After(e.expiresAt) {
		return ErrMiss
	}
	if err := json.Unmarshal(e.value, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *Memory) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range m.data {
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldestKey, oldest = k, e.createdAt
		}
	}
	delete(m.data, oldestKey)
}
