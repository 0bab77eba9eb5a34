package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/middleware"
)

const (
	relatedKeyPrefix = "related:%d"
	threadChannelFmt = "thread:content:%d"

	// ThreadChannelPattern matches every per-content thread channel.
	ThreadChannelPattern = "thread:content:*"
)

// RelatedTTL is the default lifetime of a cached related-content list.
const RelatedTTL = 10 * time.Minute

// RelatedKey is the cache key for the ranked related IDs of a content item.
func RelatedKey(contentID uint) string {
	return fmt.Sprintf(relatedKeyPrefix, contentID)
}

// ThreadChannel is the pub/sub channel carrying thread events for a content item.
func ThreadChannel(contentID uint) string {
	return fmt.Sprintf(threadChannelFmt, contentID)
}

// Invalidate removes keys from the cache. Failures are logged and ignored.
func Invalidate(ctx context.Context, keys ...string) {
	c := GetClient()
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// InvalidateRelated drops every cached related list. Content creation or
// deletion can change any item's neighbours, so per-key invalidation is not enough.
func InvalidateRelated(ctx context.Context) {
	c := GetClient()
	if c == nil {
		return
	}
	iter := c.Scan(ctx, 0, "related:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "related cache scan failed", slog.String("error", err.Error()))
		return
	}
	Invalidate(ctx, keys...)
}
