package cache

import (
	"context"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateCourseCache drops the catalog list and the single-course entry.
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseID string) {
	SafeDelete(ctx, cm.Course, "id:"+courseID)
	SafeInvalidatePattern(ctx, cm.Course, "list:*")
}

// InvalidateCatalog drops every cached course entry.
func InvalidateCatalog(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Course, "*")
}

// InvalidateProfileCache drops a cached profile after it changes.
func InvalidateProfileCache(ctx context.Context, cm *CacheManager, profileID string) {
	SafeDelete(ctx, cm.Profile, "id:"+profileID)
}
