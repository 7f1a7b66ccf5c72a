package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wavefm/wave-backend/internal/cache"
	"github.com/wavefm/wave-backend/internal/logger"
	"go.uber.org/zap"
)

// ResponseCacheMiddleware caches successful GET responses with configurable TTL.
// The chart endpoints use it: they are the expensive read path. When redis is
// not configured the middleware is a no-op.
// Adds X-Cache: HIT/MISS header for debugging.
// Cache key is: response:{path}:{query_string}:{user_id}
func ResponseCacheMiddleware(ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "GET" {
			c.Next()
			return
		}

		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			c.Next()
			return
		}

		// User-specific caching: the visibility filter makes chart results
		// differ per viewer
		userID := ""
		if user, ok := c.Get("user_id"); ok {
			if uid, ok := user.(string); ok {
				userID = uid
			}
		}

		cacheKey := generateCacheKey(c.Request.URL.Path, c.Request.URL.RawQuery, userID)
		ctx := c.Request.Context()

		cachedData, err := redisClient.Get(ctx, cacheKey)
		if err == nil {
			logger.Log.Debug("Cache hit",
				zap.String("key", cacheKey),
				zap.Duration("ttl", ttl),
			)
			c.Header("X-Cache", "HIT")
			c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
			c.Data(http.StatusOK, "application/json", []byte(cachedData))
			c.Abort()
			return
		}

		writer := &cachedResponseWriter{
			ResponseWriter: c.Writer,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		if writer.statusCode >= 200 && writer.statusCode < 300 {
			bodyStr := writer.body.String()
			if bodyStr != "" {
				if err := redisClient.SetEx(ctx, cacheKey, bodyStr, ttl); err != nil {
					logger.Log.Debug("Failed to write response to cache",
						zap.String("key", cacheKey),
						zap.Error(err),
					)
				} else {
					logger.Log.Debug("Response cached",
						zap.String("key", cacheKey),
						zap.Duration("ttl", ttl),
						zap.Int("size_bytes", len(bodyStr)),
					)
				}
			}
		}

		c.Header("X-Cache", "MISS")
		c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
	}
}

// generateCacheKey creates a cache key from request path, query params, and user ID
func generateCacheKey(path, query, userID string) string {
	key := fmt.Sprintf("response:%s", path)

	if query != "" {
		key = fmt.Sprintf("%s:%s", key, query)
	}

	if userID != "" {
		key = fmt.Sprintf("%s:%s", key, userID)
	}

	return key
}

// cachedResponseWriter intercepts response writes to capture the response body
type cachedResponseWriter struct {
	gin.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

// Write writes data to the response while capturing it for caching
func (w *cachedResponseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

// WriteHeader records the HTTP status code
func (w *cachedResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
