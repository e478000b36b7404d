package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/reboot-tools/gradboard/internal/config"
)

const redisBreakerDuration = 30 * time.Second

// Manager enforces a fixed per-second limit, preferring Redis when
// configured and falling back to memory while Redis is unreachable.
type Manager struct {
	limit         int
	nowFn         func() time.Time
	memoryLimiter Limiter
	redisLimiter  Limiter

	mu           sync.Mutex
	breakerUntil time.Time
}

// NewManager constructs a Manager from the login rate limit config.
func NewManager(cfg config.RateLimitConfig) *Manager {
	m := &Manager{
		limit:         cfg.Login,
		nowFn:         time.Now,
		memoryLimiter: NewMemoryLimiter(),
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     strings.TrimSpace(cfg.Redis.Addr),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		m.redisLimiter = NewRedisLimiter(client, cfg.Redis.Prefix)
	}
	return m
}

// Allow checks whether a login attempt for the key should proceed.
func (m *Manager) Allow(ctx context.Context, key string) (Result, error) {
	if m == nil || m.limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	now := m.nowFn()

	if m.redisLimiter != nil && !m.isBreakerActive(now) {
		result, errAllow := m.redisLimiter.Allow(ctx, key, m.limit, now)
		if errAllow == nil {
			return result, nil
		}
		m.tripBreaker(errAllow, now)
	}
	return m.memoryLimiter.Allow(ctx, key, m.limit, now)
}

func (m *Manager) isBreakerActive(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.breakerUntil.IsZero() {
		return false
	}
	if now.Before(m.breakerUntil) {
		return true
	}
	m.breakerUntil = time.Time{}
	return false
}

func (m *Manager) tripBreaker(err error, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.breakerUntil.IsZero() && now.Before(m.breakerUntil) {
		return
	}
	m.breakerUntil = now.Add(redisBreakerDuration)
	log.WithError(err).Warn("rate limit: redis unavailable, falling back to memory")
}
