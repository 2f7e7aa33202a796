package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for request counters, shared with the health handlers.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"
)

const errorLogSize = 50

// HealthMarker records request stats in Redis (skip /, /health*, favicon).
// Server errors are also appended to a capped error log.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		lastReq := map[string]interface{}{
			"time":   start,
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		}
		b, _ := json.Marshal(lastReq)
		ctx := c.UserContext()
		_, _ = rdb.Set(ctx, KeyLastReq, b, 0).Result()
		_, _ = rdb.Incr(ctx, KeyReqTotal).Result()

		err := c.Next()

		ms := time.Since(start).Milliseconds()
		_, _ = rdb.Incr(ctx, KeyResCount).Result()
		_, _ = rdb.IncrByFloat(ctx, KeyResTime, float64(ms)).Result()
		status := c.Response().StatusCode()
		if err != nil || status >= fiber.StatusInternalServerError {
			_, _ = rdb.Incr(ctx, KeyReqErrors).Result()
			entry := map[string]interface{}{
				"time":     time.Now().UTC(),
				"path":     path,
				"method":   c.Method(),
				"status":   status,
				"trace_id": GetTraceID(c),
			}
			if err != nil {
				entry["message"] = err.Error()
			}
			eb, _ := json.Marshal(entry)
			_, _ = rdb.LPush(ctx, KeyErrorLog, eb).Result()
			_, _ = rdb.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1).Result()
		}
		return err
	}
}
