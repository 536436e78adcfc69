package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"live-auctions/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

// luaSlidingWindow trims the window, counts it and admits the request if
// the count is below the limit, atomically.
// KEYS[1]=key ARGV[1]=now(ms) ARGV[2]=window start(ms) ARGV[3]=window(ms) ARGV[4]=member ARGV[5]=limit
// Returns the new count, or -1 when the request is rejected.
const luaSlidingWindow = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowMs = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)
local count = redis.call('ZCARD', key)
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, windowMs)
  return count + 1
end
return -1
`

var slidingWindow = redis.NewScript(luaSlidingWindow)

// BidRateLimitMiddleware caps bid submissions per user (falling back to the
// client IP) within a sliding window. Redis errors let the request through.
func BidRateLimitMiddleware(rdb redis.UniversalClient, prefix string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:rate_limit:bids:ip:%s", prefix, c.ClientIP())
		if userID := peekUserID(c); userID != "" {
			key = fmt.Sprintf("%s:rate_limit:bids:user:%s", prefix, userID)
		}

		now := time.Now()
		nowMs := now.UnixMilli()
		windowMs := window.Milliseconds()
		member := fmt.Sprintf("%d-%s", now.UnixNano(), utils.GenerateID())

		res, err := slidingWindow.Run(c.Request.Context(), rdb, []string{key},
			nowMs, nowMs-windowMs, windowMs, member, limit).Int()
		if err != nil {
			utils.Warn("Rate limiter unavailable, allowing request", map[string]any{"error": err.Error()})
			c.Next()
			return
		}
		if res < 0 {
			utils.JSONAbort(c, http.StatusTooManyRequests, "too many bids, slow down")
			return
		}
		c.Next()
	}
}

// peekUserID reads user_id from the JSON body and restores the body for the handler
func peekUserID(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	return req.UserID
}
