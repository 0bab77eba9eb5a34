package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"inkwell/internal/middleware"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Aside loads key into dest, falling back to fill on a miss and storing the
// result for ttl. Cache errors never fail the call: with no client, a zero
// ttl, or a broken connection it simply runs fill. It reports whether dest
// was served from the cache.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fill func() error) (bool, error) {
	c := GetClient()
	if c == nil || ttl <= 0 {
		return false, fill()
	}

	raw, err := c.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return true, nil
		}
		// undecodable entry, overwrite it below
	case !errors.Is(err, redis.Nil):
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	if err := fill(); err != nil {
		return false, err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return false, nil
	}
	if err := c.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return false, nil
}
