package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pageza/recipe-app-api/backend/internal/metrics"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for limiter keys
	KeyPrefix string
}

// LimitResult describes the state of a key after a request was counted
type LimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts requests per key
type Limiter interface {
	Allow(ctx context.Context, key string) (LimitResult, error)
}

// RedisLimiter is a fixed-window limiter shared by every API instance
type RedisLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
}

// NewRedisLimiter creates a new redis-backed limiter
func NewRedisLimiter(redisClient *redis.Client, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{
		redis:  redisClient,
		config: config,
	}
}

// Allow counts a request for key in the current window
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (LimitResult, error) {
	windowStart := time.Now().Truncate(rl.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix())

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return LimitResult{}, err
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return LimitResult{
		Allowed:   count <= rl.config.Limit,
		Limit:     rl.config.Limit,
		Remaining: remaining,
		Reset:     windowStart.Add(rl.config.Window),
	}, nil
}

// MemoryLimiter is a per-process token bucket limiter used when redis is unavailable
type MemoryLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*memoryBucket
	config    RateLimitConfig
	lastSweep time.Time
	now       func() time.Time
}

type memoryBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter creates a limiter refilling Limit tokens per Window
func NewMemoryLimiter(config RateLimitConfig) *MemoryLimiter {
	if config.Limit < 1 {
		config.Limit = 1
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &MemoryLimiter{
		limiters:  make(map[string]*memoryBucket),
		config:    config,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (ml *MemoryLimiter) limiter(key string, now time.Time) *rate.Limiter {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if now.Sub(ml.lastSweep) >= ml.config.Window {
		ml.sweep(now)
	}

	b, ok := ml.limiters[key]
	if !ok {
		every := ml.config.Window / time.Duration(ml.config.Limit)
		b = &memoryBucket{limiter: rate.NewLimiter(rate.Every(every), ml.config.Limit)}
		ml.limiters[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// sweep drops buckets idle for a full window; they have refilled and
// are equivalent to a fresh bucket. Callers hold mu.
func (ml *MemoryLimiter) sweep(now time.Time) {
	for key, b := range ml.limiters {
		if now.Sub(b.lastSeen) >= ml.config.Window {
			delete(ml.limiters, key)
		}
	}
	ml.lastSweep = now
}

// Allow takes one token for key
func (ml *MemoryLimiter) Allow(_ context.Context, key string) (LimitResult, error) {
	now := ml.now()
	l := ml.limiter(key, now)
	allowed := l.AllowN(now, 1)
	tokens := l.TokensAt(now)

	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}
	reset := now
	if missing := float64(ml.config.Limit) - tokens; missing > 0 {
		reset = now.Add(time.Duration(missing / float64(l.Limit()) * float64(time.Second)))
	}
	return LimitResult{
		Allowed:   allowed,
		Limit:     ml.config.Limit,
		Remaining: remaining,
		Reset:     reset,
	}, nil
}

// KeyFunc picks the identity a request is counted against
type KeyFunc func(c *gin.Context) string

// KeyByIP counts requests per client address
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByUser counts requests per authenticated user, falling back to the client address
func KeyByUser(c *gin.Context) string {
	if id, ok := GetUserID(c); ok {
		return "user:" + strconv.FormatUint(uint64(id), 10)
	}
	return c.ClientIP()
}

// RateLimit rejects requests over the limiter's budget with 429. Limiter
// errors are logged and the request is let through.
func RateLimit(limiter Limiter, scope string, key KeyFunc, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.Allow(c.Request.Context(), scope+":"+key(c))
		if err != nil {
			log.WithError(err).WithField("scope", scope).Warn("rate limit check failed")
			c.Next()
			return
		}

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

		if !result.Allowed {
			metrics.RateLimitRejections.WithLabelValues(scope).Inc()
			retryAfter := int(math.Ceil(time.Until(result.Reset).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
