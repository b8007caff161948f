package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config tunes the token bucket. Zero values fall back to defaults that
// allow a short burst of login attempts per client IP.
type Config struct {
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

func (config Config) withDefaults() Config {
	if config.Capacity < 1 {
		config.Capacity = 10
	}
	if config.RefillTokens < 1 {
		config.RefillTokens = 1
	}
	if config.RefillInterval <= 0 {
		config.RefillInterval = 6 * time.Second
	}
	if config.TTL < 5*config.RefillInterval {
		config.TTL = 5 * config.RefillInterval
	}
	if config.Prefix == "" {
		config.Prefix = "rl"
	}
	return config
}

// tokenBucketScript refills and consumes atomically so concurrent attempts
// from the same client cannot overdraw the bucket.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
    local elapsed = math.max(0, now_ms - last_refill)
    local intervals = math.floor(elapsed / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + (intervals * refill_tokens))
        last_refill = last_refill + (intervals * interval_ms)
    end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    local until_next = interval_ms - (now_ms - last_refill)
    if until_next < 0 then until_next = 0 end
    retry_after_ms = until_next
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// LoginThrottle returns a gin middleware that rate limits by client IP.
// A nil client or a Redis failure degrades to pass-through: losing the
// throttle must never take logins down with it.
func LoginThrottle(configuration Config, client *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	if client == nil {
		return func(contextGin *gin.Context) { contextGin.Next() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	configuration = configuration.withDefaults()
	return func(contextGin *gin.Context) {
		key := fmt.Sprintf("%s:login:%s", configuration.Prefix, contextGin.ClientIP())
		arguments := []interface{}{
			time.Now().UnixMilli(),
			configuration.Capacity,
			configuration.RefillTokens,
			configuration.RefillInterval.Milliseconds(),
			int64(configuration.TTL / time.Second),
		}
		values, scriptErr := tokenBucketScript.Run(contextGin.Request.Context(), client, []string{key}, arguments...).Result()
		if scriptErr != nil {
			logger.Warn("rate limiter unavailable",
				zap.String("code", "ratelimit.script_error"),
				zap.Error(scriptErr))
			contextGin.Next()
			return
		}
		results, ok := values.([]interface{})
		if !ok || len(results) < 3 {
			contextGin.Next()
			return
		}
		allowed, _ := results[0].(int64)
		if allowed == 1 {
			contextGin.Next()
			return
		}
		retryAfterMillis, _ := results[2].(int64)
		retryAfterSeconds := (retryAfterMillis + 999) / 1000
		if retryAfterSeconds < 1 {
			retryAfterSeconds = 1
		}
		contextGin.Header("Retry-After", strconv.FormatInt(retryAfterSeconds, 10))
		contextGin.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
	}
}
