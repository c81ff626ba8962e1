package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// rateLimitPrefix namespaces the counters in Redis.
const rateLimitPrefix = "identity:ratelimit:"

// fixedWindow increments the counter for key and starts its expiry on the
// first hit of a window. Returns the count after the increment.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RateLimit returns middleware that allows maxRequests per client IP and
// route within window, counted in Redis so every instance shares the
// budget. Exceeding it renders 429. When Redis is unreachable requests are
// let through and the failure is logged.
func RateLimit(client *redis.Client, name string, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("%s%s:%s:%d", rateLimitPrefix, name, c.RealIP(), time.Now().UnixNano()/int64(window))

			count, err := hit(c.Request().Context(), client, key, window)
			if err != nil {
				slog.Warn("rate limiter unavailable", slog.String("limit", name), slog.Any("error", err))
				return next(c)
			}
			if count > int64(maxRequests) {
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts. Please wait a minute and try again.")
			}
			return next(c)
		}
	}
}

func hit(ctx context.Context, client *redis.Client, key string, window time.Duration) (int64, error) {
	return fixedWindow.Run(ctx, client, []string{key}, window.Milliseconds()).Int64()
}
