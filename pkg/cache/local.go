package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// localCache 基于 golang-lru 的本地缓存，过期在读取时惰性判断
type localCache struct {
	config LocalConfig
	items  *lru.Cache[string, cacheItem]
	now    func() time.Time
}

type cacheItem struct {
	value      []byte
	expiration time.Time
}

// NewLocalCache 创建本地缓存
func NewLocalCache(config LocalConfig) Cache {
	size := config.MaxSize
	if size <= 0 {
		size = 1000
	}
	items, _ := lru.New[string, cacheItem](size)
	return &localCache{config: config, items: items, now: time.Now}
}

func (lc *localCache) Get(ctx context.Context, key string) ([]byte, bool) {
	item, ok := lc.items.Get(key)
	if !ok {
		return nil, false
	}
	if !item.expiration.IsZero() && lc.now().After(item.expiration) {
		lc.items.Remove(key)
		return nil, false
	}
	return item.value, true
}

func (lc *localCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = lc.config.DefaultExpiration
	}
	item := cacheItem{value: value}
	if expiration > 0 {
		item.expiration = lc.now().Add(expiration)
	}
	lc.items.Add(key, item)
	return nil
}

func (lc *localCache) Delete(ctx context.Context, key string) error {
	lc.items.Remove(key)
	return nil
}

func (lc *localCache) Clear(ctx context.Context) error {
	lc.items.Purge()
	return nil
}

func (lc *localCache) Close() error { return nil }
