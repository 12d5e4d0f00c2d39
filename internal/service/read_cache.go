package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"checkin-desk/internal/repository"
)

// ReadCache 名单 / 签到表的读穿缓存
// 生产环境由 pkg/redis.Client 实现；Redis 不可用时使用 NewMemoryCache
type ReadCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func rosterCacheKey(ref repository.TableRef) string {
	return "roster:" + ref.Collection + ":" + ref.Table
}

func ledgerCacheKey(ref repository.TableRef) string {
	return "ledger:" + ref.Collection + ":" + ref.Table
}

// cachedRows 读取缓存中的行；未命中或解码失败都视为未命中
func cachedRows(ctx context.Context, c ReadCache, key string) ([][]string, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var rows [][]string
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func storeRows(ctx context.Context, c ReadCache, key string, rows [][]string, ttl time.Duration) error {
	if c == nil || ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b, ttl)
}

// ── 进程内实现 ──

type memoryEntry struct {
	val       []byte
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache 进程内 TTL 缓存
func NewMemoryCache() ReadCache {
	return &memoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (m *memoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{val: append([]byte(nil), val...), expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}
