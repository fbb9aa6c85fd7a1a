package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type IdemStore interface {
	Set(key string, ttl time.Duration) bool // return true if set, false if exists
}

type MemoryIdemStore struct {
	mu sync.Mutex
	m  map[string]time.Time
}

func NewMemoryIdemStore() *MemoryIdemStore { return &MemoryIdemStore{m: make(map[string]time.Time)} }

func (s *MemoryIdemStore) Set(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if exp, ok := s.m[key]; ok && exp.After(now) {
		return false
	}
	s.m[key] = now.Add(ttl)
	return true
}

// GC 定期清理过期键，ctx 取消后退出
func (s *MemoryIdemStore) GC(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.mu.Lock()
			for k, exp := range s.m {
				if exp.Before(now) {
					delete(s.m, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

type IdempotencyConfig struct {
	HeaderName string        // 作为幂等键的请求头，签名接口使用 Signature
	TTL        time.Duration // 重复请求的拒绝窗口
	Store      IdemStore
}

// IdempotencyMiddleware 拒绝窗口期内的重复请求（签名接口的重放）
func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "Idempotency-Key"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryIdemStore()
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if key == "" {
			// 兜底以请求体生成哈希作为幂等键
			var b []byte
			if c.Request.Body != nil {
				b, _ = io.ReadAll(c.Request.Body)
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(b))
			h := sha256.Sum256(append([]byte(c.Request.Method+c.Request.URL.Path), b...))
			key = hex.EncodeToString(h[:])
		}
		if !store.Set(key, cfg.TTL) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate request"})
			return
		}
		c.Next()
	}
}
